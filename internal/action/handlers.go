package action

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/hookline/hookline/internal/decision"
	"github.com/hookline/hookline/internal/event"
	"github.com/hookline/hookline/internal/knowledge"
	"github.com/hookline/hookline/internal/logger"
	"github.com/hookline/hookline/internal/match"
	"github.com/hookline/hookline/internal/rule"
)

// permissionHandler covers allow, deny, and ask. The three share a shape:
// a terminal verdict plus an optional reason shown to the user.
type permissionHandler struct{}

func (permissionHandler) Execute(_ context.Context, spec rule.ActionSpec, _ match.Outcome, _ *event.Event) (*decision.Decision, error) {
	var out decision.Outcome
	switch spec.Kind {
	case rule.ActionAllow:
		out = decision.Allow
	case rule.ActionDeny:
		out = decision.Deny
	case rule.ActionAsk:
		out = decision.Ask
	default:
		return nil, fmt.Errorf("permission handler got action %q", spec.Kind)
	}
	return &decision.Decision{
		Out:       out,
		Reason:    spec.Reason,
		Suppress:  spec.Suppress,
		Interrupt: spec.Interrupt,
	}, nil
}

// captureRef matches $0..$99 references in transform templates.
var captureRef = regexp.MustCompile(`\$(\d{1,2})`)

// transformHandler rewrites the tool input. String values in the
// updated_input template may reference regex capture groups as $1, $2,
// and so on; $0 is the whole match. References beyond the capture count
// expand to the empty string.
type transformHandler struct{}

func (transformHandler) Execute(_ context.Context, spec rule.ActionSpec, out match.Outcome, _ *event.Event) (*decision.Decision, error) {
	if len(spec.UpdatedInput) == 0 {
		return nil, fmt.Errorf("transform action has no updated_input")
	}
	return &decision.Decision{
		Out:          decision.Transform,
		Reason:       spec.Reason,
		UpdatedInput: expandInput(spec.UpdatedInput, out.Captures),
		Suppress:     spec.Suppress,
	}, nil
}

func expandInput(tmpl map[string]any, caps []string) map[string]any {
	expanded := make(map[string]any, len(tmpl))
	for k, v := range tmpl {
		expanded[k] = expandValue(v, caps)
	}
	return expanded
}

func expandValue(v any, caps []string) any {
	switch val := v.(type) {
	case string:
		return captureRef.ReplaceAllStringFunc(val, func(ref string) string {
			n, err := strconv.Atoi(ref[1:])
			if err != nil || n >= len(caps) {
				return ""
			}
			return caps[n]
		})
	case map[string]any:
		return expandInput(val, caps)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = expandValue(item, caps)
		}
		return items
	default:
		return v
	}
}

// blockHandler stops the current flow with a reason fed back to the agent.
type blockHandler struct{}

func (blockHandler) Execute(_ context.Context, spec rule.ActionSpec, _ match.Outcome, _ *event.Event) (*decision.Decision, error) {
	return &decision.Decision{
		Out:       decision.Block,
		Reason:    spec.Reason,
		Interrupt: spec.Interrupt,
	}, nil
}

// contextHandler injects the rule's message into the agent's context.
type contextHandler struct{}

func (contextHandler) Execute(_ context.Context, spec rule.ActionSpec, _ match.Outcome, _ *event.Event) (*decision.Decision, error) {
	msg := strings.TrimSpace(spec.Message)
	if msg == "" {
		return nil, fmt.Errorf("context action has no message")
	}
	return &decision.Decision{Out: decision.Context, Context: []string{msg}}, nil
}

// loadHandler names resources the session should pull in at start time.
// Resolution of the names happens at the output boundary; the handler
// only records what was requested.
type loadHandler struct{}

func (loadHandler) Execute(_ context.Context, spec rule.ActionSpec, _ match.Outcome, _ *event.Event) (*decision.Decision, error) {
	if len(spec.Loaders) == 0 {
		return nil, fmt.Errorf("load action has no loaders")
	}
	d := &decision.Decision{Out: decision.Load, Loaders: spec.Loaders}
	if msg := strings.TrimSpace(spec.Message); msg != "" {
		d.Context = []string{msg}
	}
	return d, nil
}

// memoryHandler searches the knowledge store for notes relevant to the
// submitted prompt and surfaces them as context.
type memoryHandler struct {
	store *knowledge.Store
}

func (h *memoryHandler) Execute(_ context.Context, spec rule.ActionSpec, _ match.Outcome, ev *event.Event) (*decision.Decision, error) {
	if h.store == nil {
		logger.Debug("memory action skipped: no knowledge store configured")
		return nil, nil
	}
	words := knowledge.Keywords(ev.MatchText())
	if len(words) == 0 {
		return nil, nil
	}
	limit := spec.Limit
	if limit <= 0 {
		limit = 5
	}
	notes, err := h.store.Search(words, limit)
	if err != nil {
		return nil, fmt.Errorf("searching knowledge store: %w", err)
	}
	if len(notes) == 0 {
		return nil, nil
	}
	lines := make([]string, 0, len(notes)+1)
	lines = append(lines, "Relevant notes from earlier sessions:")
	for _, n := range notes {
		lines = append(lines, "- "+n.Title+": "+n.Content)
	}
	return &decision.Decision{
		Out:     decision.Memory,
		Context: []string{strings.Join(lines, "\n")},
	}, nil
}

// streamHandler writes the rule's message straight to stdout or stderr.
// Compaction events have no JSON control surface, so plain text is the
// only channel back to the user.
type streamHandler struct {
	w io.Writer
}

func newStreamHandler(stderr bool) *streamHandler {
	if stderr {
		return &streamHandler{w: os.Stderr}
	}
	return &streamHandler{w: os.Stdout}
}

func (h *streamHandler) Execute(_ context.Context, spec rule.ActionSpec, _ match.Outcome, _ *event.Event) (*decision.Decision, error) {
	msg := strings.TrimSpace(spec.Message)
	if msg == "" {
		return nil, nil
	}
	if _, err := fmt.Fprintln(h.w, msg); err != nil {
		return nil, fmt.Errorf("writing message: %w", err)
	}
	return nil, nil
}
