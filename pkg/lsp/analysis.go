package lsp

import (
	"context"
	"strings"

	"github.com/go-logr/logr"

	"github.com/agenthands/rexx/pkg/compiler/ast"
	"github.com/agenthands/rexx/pkg/compiler/diagnostics"
	"github.com/agenthands/rexx/pkg/compiler/lexer"
	"github.com/agenthands/rexx/pkg/compiler/parser"
)

// Semantic token types, in legend order.
const (
	tokComment uint32 = iota
	tokString
	tokNumber
	tokKeyword
	tokVariable
	tokOperator
	tokFunction
)

var tokenLegend = SemanticTokensLegend{
	TokenTypes:     []string{"comment", "string", "number", "keyword", "variable", "operator", "function"},
	TokenModifiers: []string{},
}

// document is the analysed state of one text document. It is replaced
// wholesale on every change and never mutated afterwards.
type document struct {
	uri     string
	text    string
	lines   []lexer.LogicalLine
	program *ast.Program
}

func analyze(ctx context.Context, uri, text string) *document {
	logger := logr.FromContextOrDiscard(ctx).WithValues("uri", uri)
	p := parser.NewParser(text, parser.WithLogger(logger))
	prog := p.Parse()
	logger.V(1).Info("analyzed document",
		"instructions", len(prog.Instructions),
		"diagnostics", len(prog.Diagnostics))

	return &document{
		uri:     uri,
		text:    text,
		lines:   lexer.Tokenize(text),
		program: prog,
	}
}

func toRange(r lexer.Range) Range {
	return Range{
		Start: Position{Line: r.Start.Line, Character: r.Start.Character},
		End:   Position{Line: r.End.Line, Character: r.End.Character},
	}
}

func (d *document) symbols() []SymbolInformation {
	out := []SymbolInformation{}
	for _, label := range d.program.Labels() {
		out = append(out, SymbolInformation{
			Name: label.Token.Text(d.text),
			Kind: SymbolKindFunction,
			Location: Location{
				URI:   d.uri,
				Range: toRange(label.Token.Range),
			},
		})
	}
	return out
}

func (d *document) diagnostics() []Diagnostic {
	out := []Diagnostic{}
	for _, diag := range d.program.Diagnostics {
		out = append(out, Diagnostic{
			Range:    toRange(diag.Range),
			Severity: severity(diag.Severity),
			Code:     diag.Code,
			Source:   "rexx",
			Message:  diag.Message,
		})
	}
	return out
}

func severity(s diagnostics.Severity) int {
	switch s {
	case diagnostics.Error:
		return SeverityError
	case diagnostics.Warning:
		return SeverityWarning
	case diagnostics.Info:
		return SeverityInformation
	default:
		return SeverityHint
	}
}

// semanticTokens encodes the document in the relative five-integer form.
// Tokens spanning several lines are split per line.
func (d *document) semanticTokens() []uint32 {
	labels := make(map[int]bool)
	for _, label := range d.program.Labels() {
		labels[label.Token.Range.Start.Index] = true
	}

	data := []uint32{}
	prevLine, prevChar := 0, 0
	emit := func(line, char, length int, typ uint32) {
		deltaChar := char
		if line == prevLine {
			deltaChar = char - prevChar
		}
		data = append(data, uint32(line-prevLine), uint32(deltaChar), uint32(length), typ, 0)
		prevLine, prevChar = line, char
	}

	for _, line := range d.lines {
		for _, tok := range line.Tokens {
			text := tok.Text(d.text)
			typ, ok := d.classify(tok, text, labels)
			if !ok {
				continue
			}
			row, col := tok.Range.Start.Line, tok.Range.Start.Character
			if row == tok.Range.End.Line {
				if tok.Len() > 0 {
					emit(row, col, tok.Len(), typ)
				}
				continue
			}
			for i, part := range splitLines(text) {
				if i > 0 {
					row, col = row+1, 0
				}
				if part != "" {
					emit(row, col, len(part), typ)
				}
			}
		}
	}
	return data
}

func (d *document) classify(tok lexer.Token, text string, labels map[int]bool) (uint32, bool) {
	switch tok.Kind {
	case lexer.KindComment:
		return tokComment, true
	case lexer.KindLiteral:
		return tokString, true
	case lexer.KindNumber:
		return tokNumber, true
	case lexer.KindTodo:
		return tokOperator, true
	case lexer.KindSemicolon:
		return tokOperator, text == "="
	case lexer.KindIdentifier:
		switch {
		case labels[tok.Range.Start.Index]:
			return tokFunction, true
		case parser.Keywords[strings.ToUpper(text)]:
			return tokKeyword, true
		default:
			return tokVariable, true
		}
	}
	return 0, false
}

// splitLines splits on every '\r' and '\n', matching how the scanner
// counts lines.
func splitLines(text string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' || text[i] == '\r' {
			parts = append(parts, text[start:i])
			start = i + 1
		}
	}
	return append(parts, text[start:])
}
