// Command mdq runs a query over Markdown, MDX, HTML and text documents.
//
//	mdq '.h2 | select(contains("Install"))' README.md
//	cat page.html | mdq --format html '.h1'
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/dgallion1/mdq"
	"github.com/fatih/color"
)

// Exit codes.
const (
	exitOK         = 0
	exitQueryError = 1
	exitUsageError = 2
)

var (
	ErrNoInput     = errors.New("no input: pass files or pipe a document to stdin")
	ErrDiagnostics = errors.New("query has problems")
)

// Context carries the I/O streams shared by every command.
type Context struct {
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Log     *slog.Logger
	Verbose bool
}

// CLI represents the command-line interface
type CLI struct {
	Verbose bool `help:"Enable debug logging" short:"v"`

	Query     QueryCmd     `cmd:"" default:"withargs" help:"Run a query over files or stdin"`
	Check     CheckCmd     `cmd:"" help:"Report problems in a query without running it"`
	Functions FunctionsCmd `cmd:"" help:"List built-in functions"`
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// run parses args, executes the selected command and returns the exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var cli CLI
	exited := -1
	parser, err := kong.New(&cli,
		kong.Name("mdq"),
		kong.Description("jq-like queries for Markdown, MDX, HTML and text."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { exited = code }),
	)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsageError
	}

	kctx, err := parser.Parse(args)
	if exited >= 0 {
		// --help and friends.
		return exited
	}
	if err != nil {
		color.New(color.FgRed).Fprintf(stderr, "Error: %v\n", err)
		return exitUsageError
	}

	appCtx := &Context{
		Stdin:   stdin,
		Stdout:  stdout,
		Stderr:  stderr,
		Log:     newLogger(stderr, cli.Verbose),
		Verbose: cli.Verbose,
	}
	if err := kctx.Run(appCtx); err != nil {
		if !errors.Is(err, ErrDiagnostics) {
			color.New(color.FgRed).Fprintf(stderr, "%v\n", err)
		}
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, mdq.ErrQuery), errors.Is(err, ErrDiagnostics):
		return exitQueryError
	default:
		return exitUsageError
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
