// Package rule defines the declarative rule model, the load-time
// validator, and the queryable rule store.
package rule

import (
	"regexp"
	"time"

	"github.com/hookline/hookline/internal/event"
)

// MatchKind selects the condition strategy a rule uses against an event.
type MatchKind string

const (
	// MatchAlways matches unconditionally.
	MatchAlways MatchKind = "always"
	// MatchRegex applies a regex to the event's text projection.
	MatchRegex MatchKind = "regex"
	// MatchCommand decomposes a Bash command line and matches sub-fields.
	MatchCommand MatchKind = "command"
	// MatchKeywords matches if any keyword is a substring of the text.
	MatchKeywords MatchKind = "keywords"
	// MatchExpr evaluates a restricted boolean expression over event fields.
	MatchExpr MatchKind = "expr"
)

// MatchSpec is the tagged condition variant of a rule. Only the fields of
// the active Kind are populated.
type MatchSpec struct {
	Kind MatchKind

	// MatchRegex
	Pattern *regexp.Regexp

	// MatchCommand. Cmd is exact-matched against the first token of a
	// command segment after alias resolution; ArgsPattern is a regex over
	// the joined positional args; Flags is a subset check; AnyOfCmds is an
	// any-match over first tokens.
	Cmd         string
	ArgsPattern *regexp.Regexp
	Flags       []string
	AnyOfCmds   []string
	// HasSubstitution requires the command line to contain command
	// substitution outside quoted heredocs. Deny rules use it to catch
	// $(...) and backtick injection.
	HasSubstitution bool

	// MatchKeywords
	Keywords []string

	// MatchExpr, compiled lazily by the matcher so that a bad expression
	// fails closed at match time instead of rejecting the rule.
	Expr string
}

// ActionKind identifies the instruction a matched rule issues.
type ActionKind string

const (
	ActionAllow     ActionKind = "allow"
	ActionDeny      ActionKind = "deny"
	ActionAsk       ActionKind = "ask"
	ActionTransform ActionKind = "transform"
	ActionBlock     ActionKind = "block"
	ActionContext   ActionKind = "context"
	ActionLoad      ActionKind = "load"
	ActionMemory    ActionKind = "memory"
	ActionStdout    ActionKind = "stdout"
	ActionStderr    ActionKind = "stderr"
	// ActionNone marks observation-only rules: they match and are audited
	// but issue no instruction.
	ActionNone ActionKind = ""
)

// ActionSpec carries the action kind plus its kind-specific parameters.
type ActionSpec struct {
	Kind ActionKind

	// Reason accompanies deny, ask and block decisions.
	Reason string
	// Message is the context text to inject; defaults to the rule body.
	Message string
	// UpdatedInput is the transform replacement, merged over the tool
	// input. String values may reference regex captures as $1, $2, ...
	UpdatedInput map[string]any
	// Loaders lists loader names requested by a load action.
	Loaders []string
	// Limit bounds how many knowledge entries a memory action surfaces.
	Limit int
	// Suppress on an allow action short-circuits lower-priority
	// context-only rules.
	Suppress bool
	// Interrupt requests interruption on PermissionRequest denials.
	Interrupt bool
}

// Rule is a validated, immutable (match, action) pair. Rules are
// constructed once at load time and never mutated afterwards.
type Rule struct {
	Name        string
	Description string
	EventKind   event.Kind
	Tool        string
	Match       MatchSpec
	Action      ActionSpec
	Priority    int
	Enabled     bool
	Cooldown    time.Duration

	// Source is the originating document path, for logs.
	Source string

	// order preserves load position for stable priority ties.
	order int
}

// Priority bounds. Out-of-range values are clamped at load time.
const (
	PriorityMin     = 0
	PriorityMax     = 100
	PriorityDefault = 50
)

// eventActions is the fixed compatibility table: which action kinds each
// event kind's response schema can express. Events absent from an entry's
// list reject rules declaring that action.
var eventActions = map[event.Kind][]ActionKind{
	event.PreToolUse:         {ActionAllow, ActionDeny, ActionAsk, ActionTransform, ActionContext},
	event.PermissionRequest:  {ActionAllow, ActionDeny},
	event.PostToolUse:        {ActionBlock, ActionContext},
	event.PostToolUseFailure: {},
	event.Notification:       {},
	event.UserPromptSubmit:   {ActionBlock, ActionContext, ActionMemory},
	event.SessionStart:       {ActionLoad, ActionContext},
	event.SessionEnd:         {},
	event.Stop:               {ActionBlock},
	event.SubagentStart:      {ActionLoad, ActionContext},
	event.SubagentStop:       {ActionBlock},
	event.PreCompact:         {ActionStdout, ActionStderr},
}

// ActionAllowed reports whether an action kind is valid for an event kind.
// ActionNone is valid everywhere.
func ActionAllowed(kind event.Kind, action ActionKind) bool {
	if action == ActionNone {
		return true
	}
	for _, a := range eventActions[kind] {
		if a == action {
			return true
		}
	}
	return false
}

// AllowedActions returns the action kinds valid for an event kind.
func AllowedActions(kind event.Kind) []ActionKind {
	return eventActions[kind]
}
