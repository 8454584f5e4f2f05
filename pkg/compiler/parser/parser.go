package parser

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/agenthands/rexx/pkg/compiler/ast"
	"github.com/agenthands/rexx/pkg/compiler/diagnostics"
	"github.com/agenthands/rexx/pkg/compiler/lexer"
)

// Keywords lists the instruction keywords recognized at the start of a
// clause, matched case-insensitively.
var Keywords = map[string]bool{
	"ADDRESS":   true,
	"ARG":       true,
	"CALL":      true,
	"DROP":      true,
	"EXIT":      true,
	"INTERPRET": true,
	"ITERATE":   true,
	"LEAVE":     true,
	"NOP":       true,
	"NUMERIC":   true,
	"OPTIONS":   true,
	"PARSE":     true,
	"PROCEDURE": true,
	"PULL":      true,
	"PUSH":      true,
	"QUEUE":     true,
	"RETURN":    true,
	"SAY":       true,
	"SIGNAL":    true,
	"TRACE":     true,
	"THEN":      true,
	"ELSE":      true,
	"WHEN":      true,
	"OTHERWISE": true,
}

type Option func(*Parser)

// WithLogger sets the logger used for clauses the parser cannot classify.
func WithLogger(logger logr.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

type Parser struct {
	scanner *lexer.Scanner
	src     string
	logger  logr.Logger
	bag     *diagnostics.Bag
}

func NewParser(src string, opts ...Option) *Parser {
	p := &Parser{
		scanner: lexer.NewScanner(src),
		src:     src,
		logger:  logr.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse classifies each logical line of the source. It never fails;
// problems are reported in Program.Diagnostics. Each call rescans from the
// start.
func (p *Parser) Parse() *ast.Program {
	p.scanner.Reset(p.src)
	p.bag = diagnostics.NewBag()
	program := &ast.Program{}

	for _, line := range p.scanner.Tokenize() {
		p.check(line.Tokens)
		p.parseClause(significant(line.Tokens, p.src), program)
	}

	program.Diagnostics = p.bag.Diagnostics()
	return program
}

// Text returns the source text of a token.
func (p *Parser) Text(tok lexer.Token) string {
	return tok.Text(p.src)
}

func (p *Parser) parseClause(tokens []lexer.Token, program *ast.Program) {
	if len(tokens) == 0 {
		return
	}

	first := tokens[0]
	switch first.Kind {
	case lexer.KindUnknown:
		program.Instructions = append(program.Instructions, &ast.Unknown{Token: first})
	case lexer.KindIdentifier:
		switch {
		case isLabel(tokens):
			program.Instructions = append(program.Instructions, &ast.Label{Token: first})
			// A label may share its line with the next clause.
			p.parseClause(tokens[2:], program)
		case p.isAssignment(tokens):
			program.Instructions = append(program.Instructions, &ast.Assignment{Target: first})
		case p.isKeyword(first):
			program.Instructions = append(program.Instructions, &ast.Keyword{
				Token: first,
				Name:  strings.ToUpper(p.Text(first)),
			})
		}
	default:
		p.logger.V(1).Info("unexpected token at start of clause",
			"kind", first.Kind.String(),
			"line", first.Range.Start.Line,
			"character", first.Range.Start.Character)
		p.bag.Add(diagnostics.NewWarning(first.Range,
			fmt.Sprintf("unexpected %s at start of clause", first.Kind)).
			WithCode(diagnostics.CodeUnexpectedToken))
	}
}

// check reports the tokens the scanner accepted leniently.
func (p *Parser) check(tokens []lexer.Token) {
	for _, tok := range tokens {
		switch tok.Kind {
		case lexer.KindUnknown:
			p.bag.Add(diagnostics.NewError(tok.Range,
				fmt.Sprintf("unrecognized character %q", p.Text(tok))).
				WithCode(diagnostics.CodeUnknownCharacter))
		case lexer.KindLiteral:
			if lexer.Unterminated(p.src, tok) {
				p.bag.Add(diagnostics.NewWarning(tok.Range,
					"unterminated string literal, closed at end of input").
					WithCode(diagnostics.CodeUnterminatedLiteral))
			}
		case lexer.KindComment:
			if lexer.Unterminated(p.src, tok) {
				p.bag.Add(diagnostics.NewWarning(tok.Range,
					"unterminated comment, closed at end of input").
					WithCode(diagnostics.CodeUnterminatedComment))
			}
		}
	}
}

func (p *Parser) isAssignment(tokens []lexer.Token) bool {
	if len(tokens) < 2 {
		return false
	}
	op := tokens[1]
	return op.Kind == lexer.KindEqual || (op.Kind == lexer.KindSemicolon && p.Text(op) == "=")
}

func (p *Parser) isKeyword(tok lexer.Token) bool {
	return Keywords[strings.ToUpper(p.Text(tok))]
}

func isLabel(tokens []lexer.Token) bool {
	return len(tokens) > 1 && tokens[1].Kind == lexer.KindColon
}

// significant drops layout tokens and the ';' that terminates a clause.
func significant(tokens []lexer.Token, src string) []lexer.Token {
	out := make([]lexer.Token, 0, len(tokens))
	for _, tok := range tokens {
		switch tok.Kind {
		case lexer.KindWhitespace, lexer.KindComment, lexer.KindEOL, lexer.KindEOS:
			continue
		}
		out = append(out, tok)
	}
	if n := len(out); n > 0 && out[n-1].Kind == lexer.KindSemicolon && out[n-1].Text(src) == ";" {
		out = out[:n-1]
	}
	return out
}
