package guard

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// word is one argument of the parsed command. literal is false when the
// word contains any expansion whose value is only known at run time, or a
// brace pattern that bash turns into several words.
type word struct {
	text       string
	literal    bool
	leadingVar bool
	braces     bool
}

// parsed is a single simple command: its words and the file targets of its
// redirections.
type parsed struct {
	words     []word
	redirects []word
}

// parseSimple parses raw as a single foreground simple command. The shell
// grammar is only used to find word boundaries and quoting; nothing is
// expanded or executed.
func parseSimple(raw string) (parsed, error) {
	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(raw), "")
	if err != nil {
		return parsed{}, err
	}
	if len(file.Stmts) != 1 {
		return parsed{}, fmt.Errorf("expected exactly one command, found %d", len(file.Stmts))
	}
	stmt := file.Stmts[0]
	if stmt.Background || stmt.Coprocess || stmt.Negated {
		return parsed{}, fmt.Errorf("expected a plain foreground command")
	}
	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok || len(call.Args) == 0 || len(call.Assigns) > 0 {
		return parsed{}, fmt.Errorf("expected a simple command")
	}
	var out parsed
	for _, w := range call.Args {
		out.words = append(out.words, convertWord(w))
	}
	for _, r := range stmt.Redirs {
		switch r.Op {
		case syntax.DplIn, syntax.DplOut, syntax.Hdoc, syntax.DashHdoc, syntax.WordHdoc:
			continue
		}
		if r.Word != nil {
			out.redirects = append(out.redirects, convertWord(r.Word))
		}
	}
	return out, nil
}

func convertWord(w *syntax.Word) word {
	var sb strings.Builder
	out := word{literal: true}
	for i, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				if lit, ok := inner.(*syntax.Lit); ok {
					sb.WriteString(lit.Value)
					continue
				}
				out.literal = false
				if i == 0 {
					out.leadingVar = true
				}
			}
		default:
			out.literal = false
			if i == 0 {
				out.leadingVar = true
			}
		}
	}
	out.text = sb.String()
	if syntax.SplitBraces(w) {
		out.literal = false
		out.braces = true
	}
	return out
}
