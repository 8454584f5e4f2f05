package lexer

import "fmt"

// Kind represents the type of token identified by the scanner.
type Kind uint8

const (
	KindWhitespace Kind = iota
	KindComment
	KindLiteral // '...' or "..."
	KindNumber
	KindComma // ,
	KindColon // :
	KindIdentifier
	KindSemicolon // ; and =
	KindEqual
	KindTodo // / + - * ( ), not classified yet
	KindUnknown
	KindEOL // end of a physical line
	KindEOS // end of the source
)

var kindNames = [...]string{
	KindWhitespace: "Whitespace",
	KindComment:    "Comment",
	KindLiteral:    "Literal",
	KindNumber:     "Number",
	KindComma:      "Comma",
	KindColon:      "Colon",
	KindIdentifier: "Identifier",
	KindSemicolon:  "Semicolon",
	KindEqual:      "Equal",
	KindTodo:       "Todo",
	KindUnknown:    "Unknown",
	KindEOL:        "EOL",
	KindEOS:        "EOS",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Position is a 0-based location in the source.
// Character is always Index minus the offset of the line start.
type Position struct {
	Line      int
	Character int
	Index     int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// Range is the half-open span [Start, End).
type Range struct {
	Start Position
	End   Position
}

// Token represents a lexical unit pointing back to the source.
// It never holds text; use Text with the source it was scanned from.
type Token struct {
	Kind  Kind
	Range Range
}

// Text returns the slice of src covered by the token.
func (t Token) Text(src string) string {
	return src[t.Range.Start.Index:t.Range.End.Index]
}

// Len returns the token width in bytes.
func (t Token) Len() int {
	return t.Range.End.Index - t.Range.Start.Index
}

func (t Token) String() string {
	return fmt.Sprintf("%s[%s-%s]", t.Kind, t.Range.Start, t.Range.End)
}

// LogicalLine is one statement worth of tokens. The last token is always
// KindEOL or KindEOS.
type LogicalLine struct {
	Tokens []Token
}

func (l *LogicalLine) last() (Token, bool) {
	if len(l.Tokens) == 0 {
		return Token{}, false
	}
	return l.Tokens[len(l.Tokens)-1], true
}
