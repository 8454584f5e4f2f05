package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/agenthands/rexx/pkg/source"
)

type Option func(*Server)

// WithLoader lets documentSymbol answer for files the client never opened.
func WithLoader(l *source.Loader) Option {
	return func(s *Server) {
		s.loader = l
	}
}

func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// Server is a language server for REXX speaking JSON-RPC over a framed
// byte stream. Handlers run on the Serve goroutine, one message at a time.
type Server struct {
	mu       sync.RWMutex
	docs     map[string]*document
	loader   *source.Loader
	version  string
	out      io.Writer
	shutdown bool
}

func NewServer(opts ...Option) *Server {
	s := &Server{docs: make(map[string]*document)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve reads requests from r and writes responses to w until the client
// sends exit, r is exhausted, or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.out = w
	logger := logr.FromContextOrDiscard(ctx)

	msgs := make(chan []byte)
	errs := make(chan error, 1)
	go func() {
		in := bufio.NewReader(r)
		for {
			msg, err := readMsg(in)
			if err != nil {
				errs <- err
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			if errors.Is(err, io.EOF) {
				logger.Info("client closed the stream")
				return nil
			}
			return fmt.Errorf("reading message: %w", err)
		case msg := <-msgs:
			var req Request
			if err := json.Unmarshal(msg, &req); err != nil {
				logger.Error(err, "malformed message")
				s.replyError(json.RawMessage("null"), CodeParseError, err.Error())
				continue
			}
			if s.dispatch(ctx, &req) {
				logger.Info("exit requested")
				return nil
			}
		}
	}
}

// dispatch handles one message and reports whether the server should exit.
func (s *Server) dispatch(ctx context.Context, req *Request) bool {
	logger := logr.FromContextOrDiscard(ctx).WithValues("method", req.Method)
	ctx = logr.NewContext(ctx, logger)
	logger.V(1).Info("received message")

	if s.shutdown && req.Method != "exit" {
		if !req.IsNotification() {
			s.replyError(req.ID, CodeInvalidRequest, "server is shutting down")
		}
		return false
	}

	switch req.Method {
	case "initialize":
		if params, ok := decode[InitializeParams](s, req); ok {
			logger.Info("initializing", "rootUri", params.RootURI)
			s.reply(req.ID, s.initializeResult())
		}
	case "initialized":
	case "shutdown":
		s.shutdown = true
		s.reply(req.ID, nil)
	case "exit":
		return true

	case "textDocument/didOpen":
		if params, ok := decode[DidOpenTextDocumentParams](s, req); ok {
			s.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
		}
	case "textDocument/didChange":
		if params, ok := decode[DidChangeTextDocumentParams](s, req); ok && len(params.ContentChanges) > 0 {
			// Full sync: the last change carries the whole document.
			last := params.ContentChanges[len(params.ContentChanges)-1]
			s.update(ctx, params.TextDocument.URI, last.Text)
		}
	case "textDocument/didClose":
		if params, ok := decode[DidCloseTextDocumentParams](s, req); ok {
			s.mu.Lock()
			delete(s.docs, params.TextDocument.URI)
			s.mu.Unlock()
			s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{
				URI:         params.TextDocument.URI,
				Diagnostics: []Diagnostic{},
			})
		}

	case "textDocument/documentSymbol":
		if params, ok := decode[DocumentSymbolParams](s, req); ok {
			result := []SymbolInformation{}
			if doc := s.document(ctx, params.TextDocument.URI); doc != nil {
				result = doc.symbols()
			}
			s.reply(req.ID, result)
		}
	case "workspace/symbol":
		if params, ok := decode[WorkspaceSymbolParams](s, req); ok {
			s.reply(req.ID, s.workspaceSymbols(params.Query))
		}
	case "textDocument/semanticTokens/full":
		if params, ok := decode[SemanticTokensParams](s, req); ok {
			result := SemanticTokens{Data: []uint32{}}
			if doc := s.document(ctx, params.TextDocument.URI); doc != nil {
				result.Data = doc.semanticTokens()
			}
			s.reply(req.ID, result)
		}

	default:
		if !req.IsNotification() {
			s.replyError(req.ID, CodeMethodNotFound, "method not found: "+req.Method)
		}
	}
	return false
}

func (s *Server) initializeResult() InitializeResult {
	return InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: TextDocumentSyncOptions{
				OpenClose: true,
				Change:    TextDocumentSyncKindFull,
			},
			DocumentSymbolProvider:  true,
			WorkspaceSymbolProvider: true,
			SemanticTokensProvider: &SemanticTokensOptions{
				Legend: tokenLegend,
				Full:   true,
			},
		},
		ServerInfo: ServerInfo{Name: "rexx-lsp", Version: s.version},
	}
}

func (s *Server) update(ctx context.Context, uri, text string) {
	doc := analyze(ctx, uri, text)
	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()

	s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: doc.diagnostics(),
	})
}

// document returns the open document for uri, or analyses the file on disk
// when the client never opened it. It returns nil when neither works.
func (s *Server) document(ctx context.Context, uri string) *document {
	s.mu.RLock()
	doc := s.docs[uri]
	s.mu.RUnlock()
	if doc != nil || s.loader == nil {
		return doc
	}

	text, err := s.loader.Read(uriToPath(uri))
	if err != nil {
		logr.FromContextOrDiscard(ctx).Error(err, "reading document from disk", "uri", uri)
		return nil
	}
	return analyze(ctx, uri, text)
}

// workspaceSymbols fuzzy-matches label names across open documents.
func (s *Server) workspaceSymbols(query string) []SymbolInformation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []SymbolInformation{}
	for _, doc := range s.docs {
		for _, sym := range doc.symbols() {
			if query == "" || fuzzy.MatchFold(query, sym.Name) {
				out = append(out, sym)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Location, out[j].Location
		if a.URI != b.URI {
			return a.URI < b.URI
		}
		return a.Range.Start.Line < b.Range.Start.Line
	})
	return out
}

func (s *Server) reply(id json.RawMessage, result any) {
	if result == nil {
		result = json.RawMessage("null")
	}
	s.write(Response{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) replyError(id json.RawMessage, code int, message string) {
	s.write(Response{JSONRPC: "2.0", ID: id, Error: &ResponseError{Code: code, Message: message}})
}

func (s *Server) notify(method string, params any) {
	s.write(Notification{JSONRPC: "2.0", Method: method, Params: params})
}

func (s *Server) write(v any) {
	// Errors here mean the client went away; the read side will notice.
	_ = writeMsg(s.out, v)
}

func decode[T any](s *Server, req *Request) (T, bool) {
	var params T
	if len(req.Params) == 0 {
		return params, true
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		if !req.IsNotification() {
			s.replyError(req.ID, CodeInvalidParams, err.Error())
		}
		return params, false
	}
	return params, true
}

func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return u.Path
}
