package lexer

import "unicode/utf8"

// Scanner performs lexical analysis on REXX source.
//
// Offsets are byte offsets into the source string. Characters outside
// literals and comments that are not ASCII become one KindUnknown token per
// encoded rune, so every token range is a valid slice of the source.
type Scanner struct {
	source    string
	cursor    int
	line      int
	lineStart int
}

// NewScanner creates a new scanner for the given source.
func NewScanner(source string) *Scanner {
	return &Scanner{source: source}
}

// Reset re-initializes the scanner with new source for reuse.
func (s *Scanner) Reset(source string) {
	s.source = source
	s.cursor = 0
	s.line = 0
	s.lineStart = 0
}

// Tokenize scans source and groups the tokens into logical lines.
func Tokenize(source string) []LogicalLine {
	return NewScanner(source).Tokenize()
}

// Tokenize drains the scanner and groups its tokens into logical lines.
// The last line always ends with a zero-width KindEOS token at len(source).
func (s *Scanner) Tokenize() []LogicalLine {
	var lines []LogicalLine
	var line LogicalLine
	for {
		prev, hasPrev := line.last()
		tok := s.Next()
		line.Tokens = append(line.Tokens, tok)
		if tok.Kind == KindEOS {
			return append(lines, line)
		}
		if s.endsLine(tok, prev, hasPrev) {
			lines = append(lines, line)
			line = LogicalLine{}
		}
	}
}

// endsLine applies the continuation rule: a newline right after a comma
// keeps the logical line open unless nothing follows it. A literal ';'
// always closes the line.
func (s *Scanner) endsLine(tok, prev Token, hasPrev bool) bool {
	switch tok.Kind {
	case KindEOL:
		if !hasPrev || prev.Kind != KindComma {
			return true
		}
		return tok.Range.End.Index >= len(s.source)
	case KindSemicolon:
		return s.source[tok.Range.Start.Index] == ';'
	}
	return false
}

// Next returns the next token from the source. Once the source is exhausted
// it keeps returning KindEOS.
func (s *Scanner) Next() Token {
	if s.cursor >= len(s.source) {
		return s.token(KindEOS, len(s.source), len(s.source))
	}

	start := s.cursor
	ch := s.source[start]

	switch {
	case ch == ' ' || ch == '\t':
		return s.scanWhitespace()
	case ch == '\n' || ch == '\r':
		return s.scanNewline()
	case ch == '/' && s.peek() == '*':
		return s.scanComment()
	case ch == '"' || ch == '\'':
		return s.scanLiteral()
	case isAlpha(ch):
		return s.scanIdentifier()
	case isDigit(ch):
		return s.scanNumber()
	}

	kind := KindUnknown
	width := 1
	switch ch {
	case ',':
		kind = KindComma
	case ':':
		kind = KindColon
	case '=', ';':
		// '=' shares the statement separator kind; the parser tells them
		// apart by text.
		kind = KindSemicolon
	case '/', '+', '-', '*', '(', ')':
		kind = KindTodo
	default:
		if ch >= utf8.RuneSelf {
			_, width = utf8.DecodeRuneInString(s.source[start:])
		}
	}
	s.cursor += width
	return s.token(kind, start, s.cursor)
}

func (s *Scanner) scanNewline() Token {
	start := s.cursor
	s.cursor++
	tok := s.token(KindEOL, start, s.cursor)
	s.line++
	s.lineStart = s.cursor
	return tok
}

func (s *Scanner) scanWhitespace() Token {
	start := s.cursor
	ch := s.source[start]
	s.cursor++
	for s.at(ch) {
		s.cursor++
	}
	return s.token(KindWhitespace, start, s.cursor)
}

func (s *Scanner) scanIdentifier() Token {
	start := s.cursor
	s.cursor++
	for s.cursor < len(s.source) {
		ch := s.source[s.cursor]
		if !isAlpha(ch) && !isDigit(ch) && ch != '_' {
			break
		}
		s.cursor++
	}
	return s.token(KindIdentifier, start, s.cursor)
}

func (s *Scanner) scanNumber() Token {
	start := s.cursor
	s.cursor++
	for s.cursor < len(s.source) && isDigit(s.source[s.cursor]) {
		s.cursor++
	}
	return s.token(KindNumber, start, s.cursor)
}

// scanLiteral reads up to the matching quote. A backslash skips the next
// character whatever it is. An unterminated literal ends at end of input.
func (s *Scanner) scanLiteral() Token {
	begin := s.pos(s.cursor)
	quote := s.source[s.cursor]
	s.cursor++ // Skip opening quote
	for s.cursor < len(s.source) {
		ch := s.source[s.cursor]
		s.advance()
		if ch == quote {
			break
		}
		if ch == '\\' && s.cursor < len(s.source) {
			// TODO: report unsupported escape sequences once diagnostics carry codes for them.
			s.advance()
		}
	}
	return Token{Kind: KindLiteral, Range: Range{Start: begin, End: s.pos(s.cursor)}}
}

// scanComment reads a possibly nested block comment. Each inner "/*" needs
// its own "*/"; the first "*/" at depth zero closes the comment. An
// unterminated comment ends at end of input.
func (s *Scanner) scanComment() Token {
	begin := s.pos(s.cursor)
	s.cursor += 2 // Skip "/*"
	depth := 0
	for s.cursor < len(s.source) {
		ch := s.source[s.cursor]
		s.advance()
		if ch == '*' && s.at('/') {
			s.cursor++
			if depth == 0 {
				break
			}
			depth--
		} else if ch == '/' && s.at('*') {
			s.cursor++
			depth++
		}
	}
	return Token{Kind: KindComment, Range: Range{Start: begin, End: s.pos(s.cursor)}}
}

// advance consumes one byte inside a multi-line token, keeping the line
// bookkeeping current without emitting EOL tokens.
func (s *Scanner) advance() {
	ch := s.source[s.cursor]
	s.cursor++
	if ch == '\n' || ch == '\r' {
		s.line++
		s.lineStart = s.cursor
	}
}

func (s *Scanner) token(kind Kind, start, end int) Token {
	return Token{Kind: kind, Range: Range{Start: s.pos(start), End: s.pos(end)}}
}

func (s *Scanner) pos(index int) Position {
	return Position{Line: s.line, Character: index - s.lineStart, Index: index}
}

func (s *Scanner) at(ch byte) bool {
	return s.cursor < len(s.source) && s.source[s.cursor] == ch
}

func (s *Scanner) peek() byte {
	if s.cursor+1 >= len(s.source) {
		return 0
	}
	return s.source[s.cursor+1]
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
