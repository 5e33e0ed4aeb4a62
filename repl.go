package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/peterh/liner"

	"github.com/phobologic/proforma/internal/proforma"
	"github.com/phobologic/proforma/internal/toon"
)

const (
	historyFile = ".proforma_history"
	promptMain  = "proforma> "
	promptCont  = "......... "
)

// prompter is the part of *liner.State the shell loop needs.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// runRepl implements the `proforma repl` subcommand.
func runRepl(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("proforma repl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var legacy bool
	fs.BoolVar(&legacy, "legacy", false, "accept legacy notation syntax")

	if err := fs.Parse(args); err != nil {
		return err
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	var histPath string
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	_, _ = fmt.Fprintln(stdout, "Enter a ProForma notation. Type :quit to exit.")
	repl(ln, proforma.NewParser(legacy), stdout, stderr)
	return nil
}

// repl reads notations until EOF or :quit, printing each parsed term.
func repl(p prompter, parser *proforma.Parser, stdout, stderr io.Writer) {
	for {
		input, ok := readNotation(p, parser)
		if !ok {
			_, _ = fmt.Fprintln(stdout)
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, ":") {
			switch strings.ToLower(input) {
			case ":quit", ":q":
				return
			default:
				_, _ = fmt.Fprintln(stderr, "unknown command. Type :quit to exit.")
			}
			continue
		}

		p.AppendHistory(input)

		term, err := parser.Parse(input)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
			continue
		}
		_, _ = fmt.Fprintln(stdout, toon.EncodeTerm(term))
	}
}

// readNotation prompts until the input no longer ends inside a tag.
// Continuation lines are joined to the input as typed.
func readNotation(p prompter, parser *proforma.Parser) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}

		line, err := p.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			if b.Len() > 0 {
				return b.String(), true
			}
			return "", false
		}
		if err != nil {
			// Ctrl-C abandons the pending input.
			return "", true
		}

		// Only the start of the notation is trimmed. Continuation lines may
		// carry spaces that belong to an open tag.
		if b.Len() == 0 {
			line = strings.TrimLeftFunc(line, unicode.IsSpace)
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(src, ":") {
			return src, true
		}
		if _, err := parser.Parse(src); proforma.IsIncomplete(err) {
			continue
		}
		return src, true
	}
}
