package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/rexx/pkg/source"
)

const sample = "/* REXX */\nCALL greet\nEXIT\n\ngreet:\n  SAY 'hi'\n  RETURN\ndone: NOP\n"

// message is a decoded server output frame.
type message struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *ResponseError  `json:"error"`
}

func frame(t *testing.T, id int, method string, params any) []byte {
	t.Helper()
	req := map[string]any{"jsonrpc": "2.0", "method": method}
	if id > 0 {
		req["id"] = id
	}
	if params != nil {
		req["params"] = params
	}
	var buf bytes.Buffer
	require.NoError(t, writeMsg(&buf, req))
	return buf.Bytes()
}

func serve(t *testing.T, s *Server, frames ...[]byte) []message {
	t.Helper()
	in := bytes.NewReader(bytes.Join(frames, nil))
	var out bytes.Buffer

	ctx := logr.NewContext(context.Background(), testr.New(t))
	require.NoError(t, s.Serve(ctx, in, &out))

	var msgs []message
	r := bufio.NewReader(&out)
	for {
		body, err := readMsg(r)
		if err == io.EOF {
			return msgs
		}
		require.NoError(t, err)
		var m message
		require.NoError(t, json.Unmarshal(body, &m))
		msgs = append(msgs, m)
	}
}

func responseTo(t *testing.T, msgs []message, id int) message {
	t.Helper()
	want, _ := json.Marshal(id)
	for _, m := range msgs {
		if string(m.ID) == string(want) && m.Method == "" {
			return m
		}
	}
	t.Fatalf("no response with id %d", id)
	return message{}
}

func didOpen(t *testing.T, uri, text string) []byte {
	return frame(t, 0, "textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{URI: uri, LanguageID: "rexx", Version: 1, Text: text},
	})
}

func symbolNames(t *testing.T, raw json.RawMessage) []string {
	t.Helper()
	var syms []SymbolInformation
	require.NoError(t, json.Unmarshal(raw, &syms))
	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	return names
}

func TestInitialize(t *testing.T) {
	msgs := serve(t, NewServer(WithVersion("v1")), frame(t, 1, "initialize", map[string]any{"rootUri": "file:///tmp"}))

	resp := responseTo(t, msgs, 1)
	require.Nil(t, resp.Error)
	var result InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.True(t, result.Capabilities.DocumentSymbolProvider)
	assert.True(t, result.Capabilities.WorkspaceSymbolProvider)
	assert.Equal(t, TextDocumentSyncKindFull, result.Capabilities.TextDocumentSync.Change)
	require.NotNil(t, result.Capabilities.SemanticTokensProvider)
	assert.Equal(t, tokenLegend.TokenTypes, result.Capabilities.SemanticTokensProvider.Legend.TokenTypes)
	assert.Equal(t, ServerInfo{Name: "rexx-lsp", Version: "v1"}, result.ServerInfo)
}

func TestDocumentSymbols(t *testing.T) {
	uri := "file:///work/prog.rexx"
	msgs := serve(t, NewServer(),
		didOpen(t, uri, sample),
		frame(t, 2, "textDocument/documentSymbol", DocumentSymbolParams{TextDocument: TextDocumentIdentifier{URI: uri}}),
	)

	require.Equal(t, "textDocument/publishDiagnostics", msgs[0].Method)

	resp := responseTo(t, msgs, 2)
	var syms []SymbolInformation
	require.NoError(t, json.Unmarshal(resp.Result, &syms))
	require.Len(t, syms, 2)

	assert.Equal(t, SymbolInformation{
		Name: "greet",
		Kind: SymbolKindFunction,
		Location: Location{
			URI: uri,
			Range: Range{
				Start: Position{Line: 4, Character: 0},
				End:   Position{Line: 4, Character: 5},
			},
		},
	}, syms[0])
	assert.Equal(t, "done", syms[1].Name)
	assert.Equal(t, 7, syms[1].Location.Range.Start.Line)
}

func TestDidChangeReplacesDocument(t *testing.T) {
	uri := "file:///work/prog.rexx"
	msgs := serve(t, NewServer(),
		didOpen(t, uri, sample),
		frame(t, 0, "textDocument/didChange", DidChangeTextDocumentParams{
			TextDocument:   TextDocumentIdentifier{URI: uri},
			ContentChanges: []TextDocumentContentChangeEvent{{Text: "first: NOP\n"}, {Text: "second:\n"}},
		}),
		frame(t, 3, "textDocument/documentSymbol", DocumentSymbolParams{TextDocument: TextDocumentIdentifier{URI: uri}}),
	)
	assert.Equal(t, []string{"second"}, symbolNames(t, responseTo(t, msgs, 3).Result))
}

func TestDocumentSymbolsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.rexx")
	require.NoError(t, os.WriteFile(path, []byte("top:\n  EXIT\n"), 0644))

	s := NewServer(WithLoader(source.NewLoader(dir, 1024)))
	msgs := serve(t, s,
		frame(t, 1, "textDocument/documentSymbol", DocumentSymbolParams{TextDocument: TextDocumentIdentifier{URI: "file://" + path}}),
		frame(t, 2, "textDocument/documentSymbol", DocumentSymbolParams{TextDocument: TextDocumentIdentifier{URI: "file://" + filepath.Join(dir, "missing.rexx")}}),
	)
	assert.Equal(t, []string{"top"}, symbolNames(t, responseTo(t, msgs, 1).Result))
	assert.Equal(t, "[]", string(responseTo(t, msgs, 2).Result))
}

func TestWorkspaceSymbols(t *testing.T) {
	msgs := serve(t, NewServer(),
		didOpen(t, "file:///b.rexx", "greeting:\nfarewell:\n"),
		didOpen(t, "file:///a.rexx", sample),
		frame(t, 1, "workspace/symbol", WorkspaceSymbolParams{Query: "grt"}),
		frame(t, 2, "workspace/symbol", WorkspaceSymbolParams{Query: ""}),
	)

	var syms []SymbolInformation
	require.NoError(t, json.Unmarshal(responseTo(t, msgs, 1).Result, &syms))
	require.Len(t, syms, 2)
	assert.Equal(t, "greet", syms[0].Name)
	assert.Equal(t, "file:///a.rexx", syms[0].Location.URI)
	assert.Equal(t, "greeting", syms[1].Name)

	assert.Len(t, symbolNames(t, responseTo(t, msgs, 2).Result), 4)
}

func TestPublishDiagnostics(t *testing.T) {
	uri := "file:///bad.rexx"
	msgs := serve(t, NewServer(),
		didOpen(t, uri, "SAY 'a' | 'b'\nSAY 'open"),
		frame(t, 0, "textDocument/didClose", DidCloseTextDocumentParams{TextDocument: TextDocumentIdentifier{URI: uri}}),
	)
	require.Len(t, msgs, 2)

	var opened PublishDiagnosticsParams
	require.NoError(t, json.Unmarshal(msgs[0].Params, &opened))
	assert.Equal(t, uri, opened.URI)
	require.Len(t, opened.Diagnostics, 2)
	assert.Equal(t, SeverityError, opened.Diagnostics[0].Severity)
	assert.Equal(t, Range{Start: Position{0, 8}, End: Position{0, 9}}, opened.Diagnostics[0].Range)
	assert.Equal(t, SeverityWarning, opened.Diagnostics[1].Severity)
	assert.Equal(t, 1, opened.Diagnostics[1].Range.Start.Line)

	var closed PublishDiagnosticsParams
	require.NoError(t, json.Unmarshal(msgs[1].Params, &closed))
	assert.Empty(t, closed.Diagnostics)
}

func TestSemanticTokens(t *testing.T) {
	uri := "file:///tokens.rexx"
	msgs := serve(t, NewServer(),
		didOpen(t, uri, "say 'a' /* c */\nx = 1\nlbl: /* a\nb */"),
		frame(t, 1, "textDocument/semanticTokens/full", SemanticTokensParams{TextDocument: TextDocumentIdentifier{URI: uri}}),
	)

	var result SemanticTokens
	require.NoError(t, json.Unmarshal(responseTo(t, msgs, 1).Result, &result))
	assert.Equal(t, []uint32{
		0, 0, 3, tokKeyword, 0,
		0, 4, 3, tokString, 0,
		0, 4, 7, tokComment, 0,
		1, 0, 1, tokVariable, 0,
		0, 2, 1, tokOperator, 0,
		0, 2, 1, tokNumber, 0,
		1, 0, 3, tokFunction, 0,
		0, 5, 4, tokComment, 0,
		1, 0, 4, tokComment, 0,
	}, result.Data)
}

func TestUnknownMethod(t *testing.T) {
	msgs := serve(t, NewServer(),
		frame(t, 0, "$/cancelRequest", map[string]any{"id": 1}),
		frame(t, 7, "textDocument/hover", map[string]any{}),
	)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Error)
	assert.Equal(t, CodeMethodNotFound, msgs[0].Error.Code)
}

func TestInvalidParams(t *testing.T) {
	msgs := serve(t, NewServer(), frame(t, 4, "workspace/symbol", []int{1, 2}))
	resp := responseTo(t, msgs, 4)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestShutdownAndExit(t *testing.T) {
	msgs := serve(t, NewServer(),
		frame(t, 1, "shutdown", nil),
		frame(t, 2, "workspace/symbol", WorkspaceSymbolParams{}),
		frame(t, 0, "exit", nil),
		frame(t, 3, "initialize", nil),
	)
	require.Len(t, msgs, 2)
	assert.Equal(t, "null", string(responseTo(t, msgs, 1).Result))
	assert.Equal(t, CodeInvalidRequest, responseTo(t, msgs, 2).Error.Code)
}

func TestServeReleasesReaderAfterExit(t *testing.T) {
	before := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		serve(t, NewServer(),
			frame(t, 0, "exit", nil),
			frame(t, 1, "initialize", nil),
		)
	}
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, time.Second, 10*time.Millisecond)
}

func TestOversizedFrameStopsServe(t *testing.T) {
	raw := []byte("Content-Length: 999999999999999999\r\n\r\n{}")
	err := NewServer().Serve(context.Background(), bytes.NewReader(raw), io.Discard)
	assert.Error(t, err)
}

func TestMalformedMessage(t *testing.T) {
	body := "{not json"
	raw := []byte("Content-Length: " + itoa(len(body)) + "\r\n\r\n" + body)
	msgs := serve(t, NewServer(), raw)
	require.Len(t, msgs, 1)
	assert.Equal(t, CodeParseError, msgs[0].Error.Code)
}

func TestServeContextCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := NewServer().Serve(ctx, r, io.Discard)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReadMsgErrors(t *testing.T) {
	_, err := readMsg(bufio.NewReader(strings.NewReader("X-Other: 1\r\n\r\n")))
	assert.Error(t, err)

	_, err = readMsg(bufio.NewReader(strings.NewReader("Content-Length: abc\r\n\r\n")))
	assert.Error(t, err)

	_, err = readMsg(bufio.NewReader(strings.NewReader("Content-Length: 10\r\n\r\n{}")))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = readMsg(bufio.NewReader(strings.NewReader("Content-Length: 999999999999999999\r\n\r\n{}")))
	assert.Error(t, err)

	_, err = readMsg(bufio.NewReader(strings.NewReader("Content-Length: " + itoa(maxMessageSize+1) + "\r\n\r\n{}")))
	assert.ErrorIs(t, err, errMessageTooLarge)
}

func TestURIToPath(t *testing.T) {
	assert.Equal(t, "/tmp/a b.rexx", uriToPath("file:///tmp/a%20b.rexx"))
	assert.Equal(t, "relative.rexx", uriToPath("relative.rexx"))
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
