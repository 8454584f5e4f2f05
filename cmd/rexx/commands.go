package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-logr/logr"
	"github.com/peterh/liner"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/rexx/pkg/compiler/ast"
	"github.com/agenthands/rexx/pkg/compiler/diagnostics"
	"github.com/agenthands/rexx/pkg/compiler/lexer"
	"github.com/agenthands/rexx/pkg/compiler/parser"
	"github.com/agenthands/rexx/pkg/highlight"
	"github.com/agenthands/rexx/pkg/source"
)

// fileFunc writes its report for one file and returns the number of errors
// it found.
type fileFunc func(ctx context.Context, w io.Writer, path, src string) (int, error)

// eachFile runs fn over every file below path concurrently and writes the
// reports in listing order.
func eachFile(ctx context.Context, files *source.Loader, path string, w io.Writer, fn fileFunc) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	paths, err := files.List(abs)
	if err != nil {
		return 0, err
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("processing files", "count", len(paths))

	outputs := make([]bytes.Buffer, len(paths))
	counts := make([]int, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, p := range paths {
		g.Go(func() error {
			src, err := files.Read(p)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			if counts[i], err = fn(ctx, &outputs[i], p, src); err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for i := range outputs {
		if _, err := outputs[i].WriteTo(w); err != nil {
			return 0, err
		}
		total += counts[i]
	}
	return total, nil
}

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

func dumpLines(_ context.Context, w io.Writer, _, src string) (int, error) {
	for _, line := range lexer.Tokenize(src) {
		dumpConfig.Fdump(w, line)
	}
	return 0, nil
}

func outline(ctx context.Context, w io.Writer, path, src string) (int, error) {
	p := parser.NewParser(src, parser.WithLogger(logr.FromContextOrDiscard(ctx)))
	prog := p.Parse()

	if _, err := fmt.Fprintf(w, "File: %s\n", path); err != nil {
		return 0, err
	}
	for _, in := range prog.Instructions {
		tok := in.Pos()
		if _, err := fmt.Fprintf(w, "  %s %s\n", tok.Range.Start, describe(p, in)); err != nil {
			return 0, err
		}
	}
	return 0, nil
}

func describe(p *parser.Parser, in ast.Instruction) string {
	switch n := in.(type) {
	case *ast.Label:
		return "label " + p.Text(n.Token)
	case *ast.Keyword:
		return "keyword " + n.Name
	case *ast.Assignment:
		return "assignment " + p.Text(n.Target)
	case *ast.Unknown:
		return fmt.Sprintf("unknown %q", p.Text(n.Token))
	default:
		return fmt.Sprintf("%T", n)
	}
}

func check(ctx context.Context, w io.Writer, path, src string) (int, error) {
	p := parser.NewParser(src, parser.WithLogger(logr.FromContextOrDiscard(ctx)))
	diags := p.Parse().Diagnostics
	if err := diagnostics.Emit(w, path, diags); err != nil {
		return 0, err
	}
	errs := 0
	for _, d := range diags {
		if d.Severity == diagnostics.Error {
			errs++
		}
	}
	return errs, nil
}

func colour(h *highlight.Highlighter) fileFunc {
	return func(_ context.Context, w io.Writer, _ string, src string) (int, error) {
		_, err := io.WriteString(w, h.Render(src))
		return 0, err
	}
}

// printTokens writes one row per token: logical line, start, kind, text.
func printTokens(w io.Writer, src string) {
	for i, line := range lexer.Tokenize(src) {
		for _, tok := range line.Tokens {
			fmt.Fprintf(w, "%3d  %-6s %-10s %q\n", i, tok.Range.Start, tok.Kind, tok.Text(src))
		}
	}
}

func repl(w io.Writer) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Fprintln(w, "REXX tokenizer, Ctrl-D to quit")
	for {
		input, err := line.Prompt("rexx> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		line.AppendHistory(input)
		printTokens(w, input)
	}
}
