package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/mdq"
	"github.com/fatih/color"
)

// QueryCmd runs a query over each input.
type QueryCmd struct {
	Format    string   `help:"Input format (markdown, mdx, html, text, raw, null, docx, pdf, csv). Defaults to the file extension, or markdown for stdin." short:"f"`
	ListStyle string   `help:"Bullet for rendered list items (dash, plus, star)" default:"dash" name:"list-style"`
	MaxDepth  int      `help:"Maximum query nesting depth" default:"128" name:"max-depth"`
	Separator string   `help:"Printed after each result; escapes \\n, \\t and \\0 are expanded (default newline)"`
	Pdftotext bool     `help:"Fall back to the pdftotext binary for PDF input"`
	Query     string   `arg:"" help:"Query expression"`
	Files     []string `arg:"" optional:"" help:"Input files; stdin when omitted"`
}

// Run executes the query command
func (cmd *QueryCmd) Run(ctx *Context) error {
	style, err := mdq.ParseListStyle(cmd.ListStyle)
	if err != nil {
		return err
	}
	opts := mdq.Options{
		ListStyle: style,
		MaxDepth:  cmd.MaxDepth,
		Pdftotext: cmd.Pdftotext,
		Logger:    ctx.Log,
	}
	if cmd.Format != "" {
		if opts.InputFormat, err = mdq.ParseInputFormat(cmd.Format); err != nil {
			return err
		}
	}

	q, err := mdq.Compile(cmd.Query, &opts)
	if err != nil {
		return err
	}

	if len(cmd.Files) == 0 {
		if ctx.Stdin == nil {
			return ErrNoInput
		}
		data, err := io.ReadAll(ctx.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		return cmd.emit(ctx, q, data, opts)
	}

	for _, path := range cmd.Files {
		fileOpts := opts
		if cmd.Format == "" {
			if fileOpts.InputFormat, err = mdq.FormatForFile(path); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		fileOpts.Logger = ctx.Log.With("file", path)
		if err := cmd.emit(ctx, q, data, fileOpts); err != nil {
			return err
		}
	}
	return nil
}

func (cmd *QueryCmd) emit(ctx *Context, q *mdq.Query, data []byte, opts mdq.Options) error {
	results, err := q.RunBytes(data, &opts)
	if err != nil {
		return err
	}
	sep := "\n"
	if cmd.Separator != "" {
		sep = separatorEscapes.Replace(cmd.Separator)
	}
	for _, r := range results {
		fmt.Fprint(ctx.Stdout, r, sep)
	}
	return nil
}

// CheckCmd reports query diagnostics.
type CheckCmd struct {
	Query string `arg:"" help:"Query expression"`
}

// Run executes the check command
func (cmd *CheckCmd) Run(ctx *Context) error {
	diags := mdq.Diagnose(cmd.Query)
	if len(diags) == 0 {
		color.New(color.FgGreen).Fprintln(ctx.Stdout, "ok")
		return nil
	}
	red := color.New(color.FgRed)
	for _, d := range diags {
		red.Fprintf(ctx.Stderr, "%d:%d: %s", d.Line, d.Column, d.Message)
		if d.Token != "" {
			fmt.Fprintf(ctx.Stderr, " (%s)", d.Token)
		}
		fmt.Fprintln(ctx.Stderr)
		if d.Snippet != "" {
			fmt.Fprintln(ctx.Stderr, indent(d.Snippet))
		}
	}
	return ErrDiagnostics
}

// FunctionsCmd lists the built-in functions.
type FunctionsCmd struct{}

// Run executes the functions command
func (cmd *FunctionsCmd) Run(ctx *Context) error {
	for _, name := range mdq.Functions() {
		fmt.Fprintln(ctx.Stdout, name)
	}
	return nil
}

var separatorEscapes = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\0`, "\x00")

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
