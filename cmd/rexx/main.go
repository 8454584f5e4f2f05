package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-logr/logr"

	"github.com/agenthands/rexx/pkg/config"
	"github.com/agenthands/rexx/pkg/highlight"
	"github.com/agenthands/rexx/pkg/logging"
	"github.com/agenthands/rexx/pkg/lsp"
	"github.com/agenthands/rexx/pkg/source"
)

var version = "dev"

const usage = `Usage: rexx <command> [flags]

Commands:
  lexer      dump the logical lines of every file under -path
  outline    list the instructions of every file under -path
  check      report diagnostics, exit 1 when errors are found
  highlight  print every file under -path with syntax colours
  repl       tokenize lines typed interactively
  lsp        run the language server on stdin/stdout`

var errUsage = errors.New(usage)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	cmd, args := args[0], args[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	path := fs.String("path", ".", "File or directory to process")
	configPath := fs.String("config", "", "YAML config file (defaults to "+config.DefaultFile+" when present)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg.Debug = cfg.Debug || *debug

	// Logs go to stderr; stdout carries command output and the LSP stream.
	logger, flush, err := logging.New(cfg.Debug, version)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logr.NewContext(ctx, logger.WithValues("command", cmd))

	files := source.NewLoader(rootFor(*path), cfg.MaxFileSize, cfg.Extensions...)

	switch cmd {
	case "lexer":
		_, err := eachFile(ctx, files, *path, os.Stdout, dumpLines)
		return err
	case "outline":
		_, err := eachFile(ctx, files, *path, os.Stdout, outline)
		return err
	case "check":
		errs, err := eachFile(ctx, files, *path, os.Stdout, check)
		if err != nil {
			return err
		}
		if errs > 0 {
			return fmt.Errorf("%d error(s) found", errs)
		}
		return nil
	case "highlight":
		h := highlight.New(lipgloss.NewRenderer(os.Stdout))
		_, err := eachFile(ctx, files, *path, os.Stdout, colour(h))
		return err
	case "repl":
		return repl(os.Stdout)
	case "lsp":
		workspace := source.NewLoader(cfg.Root, cfg.MaxFileSize, cfg.Extensions...)
		server := lsp.NewServer(lsp.WithLoader(workspace), lsp.WithVersion(version))
		logger.Info("starting REXX language server", "root", workspace.Root)
		return server.Serve(ctx, os.Stdin, os.Stdout)
	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}
}

// rootFor jails file commands to the directory they were pointed at.
func rootFor(path string) string {
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		return filepath.Dir(path)
	}
	return path
}
