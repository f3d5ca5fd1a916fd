package match

import (
	"errors"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrUnparseable is returned when a command line cannot be parsed as shell.
var ErrUnparseable = errors.New("unparseable command")

// Segment is one simple command extracted from a (possibly chained)
// command line, decomposed for structured matching.
type Segment struct {
	Raw   string   // the segment as written
	Cmd   string   // first token
	Args  []string // positional arguments (non-flag tokens after Cmd)
	Flags []string // flag names, dashes stripped, short flags split
}

// Split parses a command line with a shell parser and returns its simple
// commands as decomposed segments. Chains on &&, ||, ;, | and & are split;
// compound statements (if, while, for, subshells, blocks) contribute the
// commands they contain. Returns ErrUnparseable when the parser rejects
// the input.
func Split(cmd string) ([]Segment, error) {
	if strings.TrimSpace(cmd) == "" {
		return nil, nil
	}

	parser := syntax.NewParser()
	prog, err := parser.Parse(strings.NewReader(cmd), "")
	if err != nil {
		return nil, ErrUnparseable
	}

	var segments []Segment
	printer := syntax.NewPrinter()
	for _, stmt := range prog.Stmts {
		collectSegments(stmt.Cmd, printer, &segments)
	}
	return segments, nil
}

// collectSegments recursively extracts simple commands from a shell AST
// node.
func collectSegments(node syntax.Command, printer *syntax.Printer, segments *[]Segment) {
	if node == nil {
		return
	}

	switch cmd := node.(type) {
	case *syntax.CallExpr:
		appendCall(cmd, printer, segments)

	case *syntax.BinaryCmd:
		collectSegments(cmd.X.Cmd, printer, segments)
		collectSegments(cmd.Y.Cmd, printer, segments)

	case *syntax.Subshell:
		for _, stmt := range cmd.Stmts {
			collectSegments(stmt.Cmd, printer, segments)
		}

	case *syntax.Block:
		for _, stmt := range cmd.Stmts {
			collectSegments(stmt.Cmd, printer, segments)
		}

	case *syntax.IfClause:
		for clause := cmd; clause != nil; clause = clause.Else {
			for _, stmt := range clause.Cond {
				collectSegments(stmt.Cmd, printer, segments)
			}
			for _, stmt := range clause.Then {
				collectSegments(stmt.Cmd, printer, segments)
			}
		}

	case *syntax.WhileClause:
		for _, stmt := range cmd.Cond {
			collectSegments(stmt.Cmd, printer, segments)
		}
		for _, stmt := range cmd.Do {
			collectSegments(stmt.Cmd, printer, segments)
		}

	case *syntax.ForClause:
		for _, stmt := range cmd.Do {
			collectSegments(stmt.Cmd, printer, segments)
		}

	case *syntax.CaseClause:
		for _, item := range cmd.Items {
			for _, stmt := range item.Stmts {
				collectSegments(stmt.Cmd, printer, segments)
			}
		}

	case *syntax.TimeClause:
		if cmd.Stmt != nil {
			collectSegments(cmd.Stmt.Cmd, printer, segments)
		}

	case *syntax.CoprocClause:
		if cmd.Stmt != nil {
			collectSegments(cmd.Stmt.Cmd, printer, segments)
		}

	case *syntax.FuncDecl:
		if cmd.Body != nil {
			collectSegments(cmd.Body.Cmd, printer, segments)
		}

	default:
		// Declarations, arithmetic, tests: keep the printed form as an
		// opaque segment so deny rules can still see it.
		var buf strings.Builder
		printer.Print(&buf, cmd)
		if raw := strings.TrimSpace(buf.String()); raw != "" {
			*segments = append(*segments, decompose(raw, strings.Fields(raw)))
		}
	}
}

// appendCall turns a simple command into a decomposed Segment, printing
// each word individually to preserve token boundaries.
func appendCall(call *syntax.CallExpr, printer *syntax.Printer, segments *[]Segment) {
	if len(call.Args) == 0 {
		return
	}
	tokens := make([]string, 0, len(call.Args))
	for _, word := range call.Args {
		var buf strings.Builder
		printer.Print(&buf, word)
		tokens = append(tokens, unquote(strings.TrimSpace(buf.String())))
	}

	var buf strings.Builder
	printer.Print(&buf, call)
	raw := strings.TrimSpace(buf.String())
	if raw == "" {
		return
	}
	*segments = append(*segments, decompose(raw, tokens))
}

// decompose splits tokens into the command, positional args and flags.
func decompose(raw string, tokens []string) Segment {
	seg := Segment{Raw: raw}
	if len(tokens) == 0 {
		return seg
	}
	seg.Cmd = tokens[0]
	for _, tok := range tokens[1:] {
		if strings.HasPrefix(tok, "-") && tok != "-" && tok != "--" {
			seg.Flags = append(seg.Flags, flagNames(tok)...)
		} else {
			seg.Args = append(seg.Args, tok)
		}
	}
	return seg
}

// flagNames normalizes one flag token into its constituent flag names:
// "--force" -> [force], "--name=x" -> [name], "-rf" -> [r f].
func flagNames(tok string) []string {
	if name, ok := strings.CutPrefix(tok, "--"); ok {
		name, _, _ = strings.Cut(name, "=")
		return []string{name}
	}
	short := strings.TrimPrefix(tok, "-")
	names := make([]string, 0, len(short))
	for _, c := range short {
		names = append(names, string(c))
	}
	return names
}

// unquote strips one level of surrounding quotes from a printed word.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// substitutionPattern matches command substitution syntax.
var substitutionPattern = regexp.MustCompile(`\$\(|` + "`")

type byteRange struct {
	start, end int
}

// quotedHeredocRanges returns byte ranges of heredoc content whose
// delimiter is quoted. Quoted heredocs perform no shell expansion, so
// backticks and $() inside them are literal text.
func quotedHeredocRanges(cmd string) []byteRange {
	parser := syntax.NewParser()
	prog, err := parser.Parse(strings.NewReader(cmd), "")
	if err != nil {
		return nil
	}

	var ranges []byteRange
	syntax.Walk(prog, func(node syntax.Node) bool {
		redir, ok := node.(*syntax.Redirect)
		if !ok {
			return true
		}
		if redir.Op != syntax.Hdoc && redir.Op != syntax.DashHdoc {
			return true
		}
		if redir.Word == nil || len(redir.Word.Parts) == 0 {
			return true
		}

		quoted := false
		for _, part := range redir.Word.Parts {
			switch part.(type) {
			case *syntax.SglQuoted, *syntax.DblQuoted:
				quoted = true
			}
		}

		if quoted && redir.Hdoc != nil {
			start := int(redir.Hdoc.Pos().Offset())
			end := int(redir.Hdoc.End().Offset())
			if start < end && start >= 0 && end <= len(cmd) {
				ranges = append(ranges, byteRange{start: start, end: end})
			}
		}
		return true
	})
	return ranges
}

// ContainsSubstitution reports whether the command line contains command
// substitution ($( or backticks) outside quoted heredocs.
func ContainsSubstitution(cmd string) bool {
	excludeRanges := quotedHeredocRanges(cmd)
	if len(excludeRanges) == 0 {
		return substitutionPattern.MatchString(cmd)
	}

	matches := substitutionPattern.FindAllStringIndex(cmd, -1)
	for _, m := range matches {
		excluded := false
		for _, r := range excludeRanges {
			if m[0] >= r.start && m[0] < r.end {
				excluded = true
				break
			}
		}
		if !excluded {
			return true
		}
	}
	return false
}
