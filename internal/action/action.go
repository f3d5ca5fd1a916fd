// Package action defines the handler capability interface and the
// registry that resolves a rule's action kind to a concrete handler.
package action

import (
	"context"
	"fmt"

	"github.com/hookline/hookline/internal/decision"
	"github.com/hookline/hookline/internal/event"
	"github.com/hookline/hookline/internal/knowledge"
	"github.com/hookline/hookline/internal/match"
	"github.com/hookline/hookline/internal/rule"
)

// Handler executes one rule's action against the event. Handlers must be
// safe to call concurrently with other handlers and must not mutate the
// event; each owns only its action-specific state. A nil decision with a
// nil error means the handler chose not to decide.
type Handler interface {
	Execute(ctx context.Context, spec rule.ActionSpec, out match.Outcome, ev *event.Event) (*decision.Decision, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, spec rule.ActionSpec, out match.Outcome, ev *event.Event) (*decision.Decision, error)

// Execute implements Handler.
func (f HandlerFunc) Execute(ctx context.Context, spec rule.ActionSpec, out match.Outcome, ev *event.Event) (*decision.Decision, error) {
	return f(ctx, spec, out, ev)
}

// Registry resolves action kinds to handlers.
type Registry struct {
	handlers map[rule.ActionKind]Handler
}

// NewRegistry builds a registry with every built-in handler installed.
// store may be nil, in which case memory actions decline to decide.
func NewRegistry(store *knowledge.Store) *Registry {
	r := &Registry{handlers: make(map[rule.ActionKind]Handler)}

	perm := &permissionHandler{}
	r.Register(rule.ActionAllow, perm)
	r.Register(rule.ActionDeny, perm)
	r.Register(rule.ActionAsk, perm)
	r.Register(rule.ActionTransform, &transformHandler{})
	r.Register(rule.ActionBlock, &blockHandler{})
	r.Register(rule.ActionContext, &contextHandler{})
	r.Register(rule.ActionLoad, &loadHandler{})
	r.Register(rule.ActionMemory, &memoryHandler{store: store})
	r.Register(rule.ActionStdout, newStreamHandler(false))
	r.Register(rule.ActionStderr, newStreamHandler(true))
	r.Register(rule.ActionNone, HandlerFunc(noopHandler))

	return r
}

// Register installs (or replaces) the handler for an action kind.
func (r *Registry) Register(kind rule.ActionKind, h Handler) {
	r.handlers[kind] = h
}

// Lookup returns the handler for an action kind.
func (r *Registry) Lookup(kind rule.ActionKind) (Handler, error) {
	h, ok := r.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("no handler registered for action %q", kind)
	}
	return h, nil
}

func noopHandler(context.Context, rule.ActionSpec, match.Outcome, *event.Event) (*decision.Decision, error) {
	return nil, nil
}
