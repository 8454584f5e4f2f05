package ast

import (
	"github.com/agenthands/rexx/pkg/compiler/diagnostics"
	"github.com/agenthands/rexx/pkg/compiler/lexer"
)

// Instruction is one classified clause of a program.
type Instruction interface {
	Pos() lexer.Token
	instructionNode()
}

// Program is the root node.
type Program struct {
	Instructions []Instruction
	Diagnostics  []*diagnostics.Diagnostic
}

// Labels returns the label instructions in source order.
func (p *Program) Labels() []*Label {
	var out []*Label
	for _, in := range p.Instructions {
		if l, ok := in.(*Label); ok {
			out = append(out, l)
		}
	}
	return out
}

// Label: NAME ':'
type Label struct {
	Token lexer.Token
}

func (l *Label) Pos() lexer.Token { return l.Token }
func (l *Label) instructionNode() {}

// Keyword: SAY, SIGNAL, CALL, ...
// Name is the upper-cased keyword.
type Keyword struct {
	Token lexer.Token
	Name  string
}

func (k *Keyword) Pos() lexer.Token { return k.Token }
func (k *Keyword) instructionNode() {}

// Assignment: NAME '=' EXPR
type Assignment struct {
	Target lexer.Token
}

func (a *Assignment) Pos() lexer.Token { return a.Target }
func (a *Assignment) instructionNode() {}

// Unknown is a clause that starts with an unrecognized character.
type Unknown struct {
	Token lexer.Token
}

func (u *Unknown) Pos() lexer.Token { return u.Token }
func (u *Unknown) instructionNode() {}
