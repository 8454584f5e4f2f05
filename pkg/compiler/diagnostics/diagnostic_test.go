package diagnostics_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/rexx/pkg/compiler/diagnostics"
	"github.com/agenthands/rexx/pkg/compiler/lexer"
)

func TestBagCounts(t *testing.T) {
	bag := diagnostics.NewBag()
	assert.False(t, bag.HasErrors())

	rng := lexer.Range{}
	bag.Add(diagnostics.NewWarning(rng, "w1"))
	bag.Add(diagnostics.NewError(rng, "e1"))
	bag.Add(diagnostics.NewWarning(rng, "w2"))

	assert.True(t, bag.HasErrors())
	assert.Equal(t, 1, bag.ErrorCount())
	assert.Equal(t, 2, bag.WarningCount())

	got := bag.Diagnostics()
	require.Len(t, got, 3)
	assert.Equal(t, "w1", got[0].Message)
	assert.Equal(t, "e1", got[1].Message)
}

func TestEmit(t *testing.T) {
	bag := diagnostics.NewBag()
	rng := lexer.Range{
		Start: lexer.Position{Line: 2, Character: 4, Index: 20},
		End:   lexer.Position{Line: 2, Character: 5, Index: 21},
	}
	bag.Add(diagnostics.NewError(rng, "unrecognized character").WithCode(diagnostics.CodeUnknownCharacter))
	bag.Add(diagnostics.NewWarning(rng, "no code"))

	var buf bytes.Buffer
	require.NoError(t, bag.Emit(&buf, "prog.rexx"))
	assert.Equal(t,
		"prog.rexx:3:5: error[R001]: unrecognized character\n"+
			"prog.rexx:3:5: warning: no code\n",
		buf.String())
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "error", diagnostics.Error.String())
	assert.Equal(t, "hint", diagnostics.Hint.String())
	assert.Equal(t, "unknown", diagnostics.Severity(9).String())
}
