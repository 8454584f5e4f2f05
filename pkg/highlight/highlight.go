package highlight

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/agenthands/rexx/pkg/compiler/lexer"
	"github.com/agenthands/rexx/pkg/compiler/parser"
)

// Highlighter renders source text with one style per token kind.
type Highlighter struct {
	styles  map[lexer.Kind]lipgloss.Style
	keyword *lipgloss.Style
}

// New returns a highlighter with the default theme bound to r. A nil
// renderer uses lipgloss' default renderer.
func New(r *lipgloss.Renderer) *Highlighter {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	style := func(color string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(color)).TabWidth(lipgloss.NoTabConversion)
	}

	keyword := style("12").Bold(true)
	return &Highlighter{
		styles: map[lexer.Kind]lipgloss.Style{
			lexer.KindComment: style("8").Italic(true),
			lexer.KindLiteral: style("2"),
			lexer.KindNumber:  style("5"),
			lexer.KindColon:   style("6"),
			lexer.KindTodo:    style("3"),
			lexer.KindUnknown: style("1").Underline(true),
		},
		keyword: &keyword,
	}
}

// Plain returns a highlighter that reproduces the source unchanged.
func Plain() *Highlighter {
	return &Highlighter{}
}

func (h *Highlighter) Render(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	for _, line := range lexer.Tokenize(src) {
		for _, tok := range line.Tokens {
			text := tok.Text(src)
			style, ok := h.styleFor(tok, text)
			if !ok {
				b.WriteString(text)
				continue
			}
			// Style each physical line on its own so lipgloss never pads a
			// multi-line comment into a block.
			for i, part := range strings.Split(text, "\n") {
				if i > 0 {
					b.WriteByte('\n')
				}
				if part != "" {
					b.WriteString(style.Render(part))
				}
			}
		}
	}
	return b.String()
}

func (h *Highlighter) styleFor(tok lexer.Token, text string) (lipgloss.Style, bool) {
	if tok.Kind == lexer.KindIdentifier && h.keyword != nil && parser.Keywords[strings.ToUpper(text)] {
		return *h.keyword, true
	}
	style, ok := h.styles[tok.Kind]
	return style, ok
}
