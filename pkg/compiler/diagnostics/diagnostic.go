package diagnostics

import (
	"fmt"
	"io"
	"sync"

	"github.com/agenthands/rexx/pkg/compiler/lexer"
)

// Severity represents the severity level of a diagnostic
type Severity int

const (
	Error Severity = iota
	Warning
	Info
	Hint
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Hint:
		return "hint"
	default:
		return "unknown"
	}
}

// Codes reported by the parser.
const (
	CodeUnknownCharacter    = "R001"
	CodeUnterminatedLiteral = "R002"
	CodeUnterminatedComment = "R003"
	CodeUnexpectedToken     = "R004"
)

// Diagnostic is a problem found in a source range.
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
	Range    lexer.Range
}

func NewError(rng lexer.Range, message string) *Diagnostic {
	return &Diagnostic{Severity: Error, Message: message, Range: rng}
}

func NewWarning(rng lexer.Range, message string) *Diagnostic {
	return &Diagnostic{Severity: Warning, Message: message, Range: rng}
}

// WithCode sets the diagnostic code
func (d *Diagnostic) WithCode(code string) *Diagnostic {
	d.Code = code
	return d
}

// String formats the diagnostic with 1-based line and column numbers.
func (d *Diagnostic) String() string {
	start := d.Range.Start
	if d.Code != "" {
		return fmt.Sprintf("%d:%d: %s[%s]: %s", start.Line+1, start.Character+1, d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%d:%d: %s: %s", start.Line+1, start.Character+1, d.Severity, d.Message)
}

// Bag collects diagnostics for one file.
type Bag struct {
	mu          sync.Mutex
	diagnostics []*Diagnostic
	errorCount  int
	warnCount   int
}

func NewBag() *Bag {
	return &Bag{}
}

// Add adds a diagnostic to the bag
func (b *Bag) Add(d *Diagnostic) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.diagnostics = append(b.diagnostics, d)
	switch d.Severity {
	case Error:
		b.errorCount++
	case Warning:
		b.warnCount++
	}
}

// Diagnostics returns a copy of the collected diagnostics in insertion order.
func (b *Bag) Diagnostics() []*Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Diagnostic(nil), b.diagnostics...)
}

func (b *Bag) HasErrors() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorCount > 0
}

func (b *Bag) ErrorCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorCount
}

func (b *Bag) WarningCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.warnCount
}

// Emit writes the collected diagnostics in insertion order.
func (b *Bag) Emit(w io.Writer, path string) error {
	return Emit(w, path, b.Diagnostics())
}

// Emit writes one "path:line:col: severity: message" line per diagnostic.
func Emit(w io.Writer, path string, diags []*Diagnostic) error {
	for _, d := range diags {
		if _, err := fmt.Fprintf(w, "%s:%s\n", path, d); err != nil {
			return err
		}
	}
	return nil
}
