// Package decision defines the outcome type shared by action handlers,
// the router, and the result merger.
package decision

import "github.com/hookline/hookline/internal/event"

// Outcome classifies what a decision instructs the caller to do.
type Outcome string

// Outcome kinds, from terminal permission verdicts down to pure context
// injection. None means the rule produced no instruction.
const (
	Allow     Outcome = "allow"
	Deny      Outcome = "deny"
	Ask       Outcome = "ask"
	Transform Outcome = "transform"
	Block     Outcome = "block"
	Context   Outcome = "context"
	Load      Outcome = "load"
	Memory    Outcome = "memory"
	None      Outcome = "none"
)

// Decision is the result of one rule's handler, and after merging, the
// single final outcome for an event.
type Decision struct {
	Kind  event.Kind
	Rule  string // name of the rule that produced the decision
	Out   Outcome
	Reason string

	// Transform: replacement tool input, merged over the original.
	UpdatedInput map[string]any

	// Context / Load / Memory: messages to surface and loaders to request.
	Context []string
	Loaders []string

	// Allow with Suppress set short-circuits lower-priority context rules.
	Suppress bool

	// Interrupt requests interruption on PermissionRequest denials.
	Interrupt bool

	// SystemMessage is shown to the user without entering the transcript.
	SystemMessage string
}

// Terminal reports whether the outcome ends merging at its precedence
// level (context-like outcomes accumulate instead).
func (d *Decision) Terminal() bool {
	switch d.Out {
	case Deny, Block, Ask, Transform, Allow:
		return true
	}
	return false
}

// Empty reports whether the decision carries no instruction at all.
func (d *Decision) Empty() bool {
	return d == nil || d.Out == None || d.Out == ""
}
