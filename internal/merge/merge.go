// Package merge combines the per-rule decisions for one event into the
// single final Decision, using a fixed precedence ladder:
//
//	deny > block > ask > transform > allow > context/load/memory
//
// Lower-precedence outcomes never override a higher one; their messages
// are surfaced as auxiliary context instead. Conflicts are resolved by
// the priority order the router established before dispatch, never by
// completion order.
package merge

import (
	"github.com/hookline/hookline/internal/decision"
	"github.com/hookline/hookline/internal/logger"
)

// Merge folds the ordered per-rule decisions (highest priority first)
// into one final Decision. A nil or empty input yields a no-decision
// result, which the output layer maps to pass-through.
func Merge(ordered []*decision.Decision) *decision.Decision {
	live := make([]*decision.Decision, 0, len(ordered))
	for _, d := range ordered {
		if !d.Empty() {
			live = append(live, d)
		}
	}
	if len(live) == 0 {
		return &decision.Decision{Out: decision.None}
	}

	final := pickTerminal(live)

	// Transform resolution: at most one transform applies. The winning
	// one (if the ladder reached transform) is already in final; every
	// other transform is logged as superseded, never silently combined.
	for _, d := range live {
		if d.Out != decision.Transform || d == final {
			continue
		}
		winner := "none"
		if final != nil {
			winner = final.Rule
		}
		logger.Warn("transform superseded", "rule", d.Rule, "superseded_by", winner)
	}

	// Auxiliary context: messages and loader requests from all
	// context-like rules, concatenated in priority order. An explicit
	// allow with suppress drops context from lower-priority rules only.
	var context []string
	var loaders []string
	suppressing := false
	for _, d := range live {
		if suppressing && contextual(d) {
			logger.Debug("context suppressed by allow", "rule", d.Rule)
			continue
		}
		context = append(context, d.Context...)
		loaders = append(loaders, d.Loaders...)
		if d == final && d.Out == decision.Allow && d.Suppress {
			suppressing = true
		}
	}

	if final == nil {
		// Context-only outcome.
		first := live[0]
		return &decision.Decision{
			Kind:    first.Kind,
			Rule:    first.Rule,
			Out:     decision.Context,
			Context: context,
			Loaders: loaders,
		}
	}

	merged := *final
	merged.Context = context
	merged.Loaders = loaders
	return &merged
}

// pickTerminal returns the highest-precedence terminal decision, scanning
// the ladder top-down and within each rung by priority order. Nil when
// every decision is context-like.
func pickTerminal(live []*decision.Decision) *decision.Decision {
	for _, out := range []decision.Outcome{
		decision.Deny, decision.Block, decision.Ask,
		decision.Transform, decision.Allow,
	} {
		for _, d := range live {
			if d.Out == out {
				return d
			}
		}
	}
	return nil
}

// contextual reports whether a decision only injects context.
func contextual(d *decision.Decision) bool {
	switch d.Out {
	case decision.Context, decision.Load, decision.Memory:
		return true
	}
	return false
}
