// Package match implements the pure condition-matching layer: one
// function from (event, rule) to a match outcome, dispatching across the
// rule's match-spec variant. Matching never errors and has no side
// effects; anything malformed fails closed to a non-match with a log
// line.
package match

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/hookline/hookline/internal/event"
	"github.com/hookline/hookline/internal/logger"
	"github.com/hookline/hookline/internal/rule"
)

// Outcome is the per-rule match result: whether the rule matched, plus
// any captured regex groups for downstream transform actions.
type Outcome struct {
	Matched bool
	// Captures holds the full regex submatch slice: Captures[0] is the
	// whole match, Captures[1:] the groups.
	Captures []string
}

// caseFolder lower-cases text for keyword comparison across scripts,
// including non-ASCII ones.
var caseFolder = cases.Fold()

// Matcher evaluates match specs against events. Aliases maps alternate
// command spellings onto the canonical name used by rule cmd fields
// (for example python3 -> python).
type Matcher struct {
	Aliases map[string]string
}

// Match tests a rule's match spec against the event. A spec applied to
// the wrong event kind or a missing designated field is a non-match,
// never an error.
func (m *Matcher) Match(ev *event.Event, r *rule.Rule) Outcome {
	if r.Tool != "" && r.Tool != ev.ToolName {
		return Outcome{}
	}

	switch r.Match.Kind {
	case rule.MatchAlways:
		return Outcome{Matched: true}

	case rule.MatchRegex:
		text := ev.MatchText()
		if text == "" {
			return Outcome{}
		}
		caps := r.Match.Pattern.FindStringSubmatch(text)
		if caps == nil {
			return Outcome{}
		}
		return Outcome{Matched: true, Captures: caps}

	case rule.MatchCommand:
		return m.matchCommand(ev, r)

	case rule.MatchKeywords:
		return matchKeywords(ev, r.Match.Keywords)

	case rule.MatchExpr:
		return matchExpr(ev, r)
	}

	return Outcome{}
}

// matchCommand decomposes the event's command line and checks every
// present sub-condition (logical AND) against each segment; the rule
// matches if any segment satisfies all of them.
func (m *Matcher) matchCommand(ev *event.Event, r *rule.Rule) Outcome {
	cmdline := ev.CommandLine()
	if cmdline == "" {
		return Outcome{}
	}

	spec := r.Match
	if spec.HasSubstitution && !ContainsSubstitution(cmdline) {
		return Outcome{}
	}

	segments, err := Split(cmdline)
	if err != nil {
		logger.Warn("command not parseable, treating as non-match", "rule", r.Name, "command", cmdline)
		return Outcome{}
	}

	for _, seg := range segments {
		if m.segmentMatches(spec, seg) {
			return Outcome{Matched: true}
		}
	}
	return Outcome{}
}

func (m *Matcher) segmentMatches(spec rule.MatchSpec, seg Segment) bool {
	cmd := m.resolveAlias(seg.Cmd)

	if spec.Cmd != "" && cmd != spec.Cmd {
		return false
	}

	if len(spec.AnyOfCmds) > 0 {
		found := false
		for _, want := range spec.AnyOfCmds {
			if cmd == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	// Flags are a subset check: every required flag must be present.
	for _, want := range spec.Flags {
		want = strings.TrimLeft(want, "-")
		found := false
		for _, have := range seg.Flags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if spec.ArgsPattern != nil {
		if !spec.ArgsPattern.MatchString(strings.Join(seg.Args, " ")) {
			return false
		}
	}

	return true
}

func (m *Matcher) resolveAlias(cmd string) string {
	if canonical, ok := m.Aliases[cmd]; ok {
		return canonical
	}
	return cmd
}

// matchKeywords reports a match when any keyword is a substring of the
// event's text projection, case-insensitively. Case folding handles
// non-ASCII scripts.
func matchKeywords(ev *event.Event, keywords []string) Outcome {
	text := ev.MatchText()
	if text == "" {
		return Outcome{}
	}
	folded := caseFolder.String(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(folded, caseFolder.String(kw)) {
			return Outcome{Matched: true}
		}
	}
	return Outcome{}
}
