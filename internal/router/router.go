// Package router matches an event against the loaded rules and runs the
// matched rules' handlers concurrently, preserving priority order in the
// collected results.
package router

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hookline/hookline/internal/action"
	"github.com/hookline/hookline/internal/decision"
	"github.com/hookline/hookline/internal/event"
	"github.com/hookline/hookline/internal/logger"
	"github.com/hookline/hookline/internal/match"
	"github.com/hookline/hookline/internal/rule"
)

const (
	DefaultMaxConcurrent  = 8
	DefaultHandlerTimeout = 5 * time.Second
)

// Config bounds handler execution.
type Config struct {
	// MaxConcurrent caps how many handlers run at once.
	MaxConcurrent int
	// HandlerTimeout bounds each handler's execution.
	HandlerTimeout time.Duration
	// Now overrides the cooldown clock, for tests.
	Now func() time.Time
}

// Report records what happened to one rule during routing. Every rule
// considered gets a report, whether it matched or not.
type Report struct {
	Rule    string
	Matched bool
	// Skipped names why a rule was not dispatched ("cooldown") or why a
	// dispatched rule produced nothing ("timeout", "error").
	Skipped  string
	Decision *decision.Decision
	Err      error
	Elapsed  time.Duration
}

// Router dispatches matched rules to their action handlers.
type Router struct {
	matcher   *match.Matcher
	registry  *action.Registry
	cfg       Config
	cooldowns *cooldownTracker
}

// New builds a router. Zero config fields take defaults.
func New(matcher *match.Matcher, registry *action.Registry, cfg Config) *Router {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = DefaultHandlerTimeout
	}
	return &Router{
		matcher:   matcher,
		registry:  registry,
		cfg:       cfg,
		cooldowns: newCooldownTracker(cfg.Now),
	}
}

// Route evaluates rules against ev. Handlers for matched rules run
// concurrently, bounded by MaxConcurrent; a handler that panics, errors
// or exceeds HandlerTimeout contributes no decision and never disturbs
// the others. Returned decisions follow the order of rules, which the
// store already sorted by priority. Reports cover every rule in the
// same order.
func (r *Router) Route(ctx context.Context, ev *event.Event, rules []*rule.Rule) ([]*decision.Decision, []Report) {
	reports := make([]Report, len(rules))

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.cfg.MaxConcurrent)

	for i, rl := range rules {
		reports[i].Rule = rl.Name

		out := r.matcher.Match(ev, rl)
		if !out.Matched {
			continue
		}
		reports[i].Matched = true

		if !r.cooldowns.allow(rl.Name, rl.Cooldown) {
			reports[i].Skipped = "cooldown"
			logger.Debug("rule in cooldown", "rule", rl.Name, "window", rl.Cooldown)
			continue
		}

		h, err := r.registry.Lookup(rl.Action.Kind)
		if err != nil {
			reports[i].Skipped = "error"
			reports[i].Err = err
			logger.Warn("skipping rule", "rule", rl.Name, "error", err)
			continue
		}

		wg.Add(1)
		go func(i int, rl *rule.Rule, h action.Handler, out match.Outcome) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			r.dispatch(ctx, &reports[i], rl, h, out, ev)
		}(i, rl, h, out)
	}
	wg.Wait()

	decisions := make([]*decision.Decision, 0, len(rules))
	for i := range reports {
		if d := reports[i].Decision; d != nil && !d.Empty() {
			decisions = append(decisions, d)
		}
	}
	return decisions, reports
}

// dispatch runs one handler with a timeout and panic isolation, writing
// the outcome into rep. Each goroutine owns exactly one report slot, so
// no locking is needed.
func (r *Router) dispatch(ctx context.Context, rep *Report, rl *rule.Rule, h action.Handler, out match.Outcome, ev *event.Event) {
	hctx, cancel := context.WithTimeout(ctx, r.cfg.HandlerTimeout)
	defer cancel()

	start := time.Now()
	d, err := runProtected(hctx, h, rl.Action, out, ev)
	rep.Elapsed = time.Since(start)

	switch {
	case err != nil:
		rep.Err = err
		if hctx.Err() != nil {
			rep.Skipped = "timeout"
		} else {
			rep.Skipped = "error"
		}
		logger.Warn("handler failed", "rule", rl.Name, "action", rl.Action.Kind, "error", err)
	case d != nil:
		d.Kind = ev.Kind
		d.Rule = rl.Name
		rep.Decision = d
		logger.Debug("handler decided", "rule", rl.Name, "outcome", d.Out, "elapsed", rep.Elapsed)
	}
}

// runProtected executes the handler, converting a panic into an error
// and a timeout into ctx.Err. Handlers that ignore their context are
// abandoned at the deadline; their goroutine finishes in the background.
func runProtected(ctx context.Context, h action.Handler, spec rule.ActionSpec, out match.Outcome, ev *event.Event) (*decision.Decision, error) {
	type result struct {
		d   *decision.Decision
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("handler panicked", "action", spec.Kind, "panic", rec, "stack", string(debug.Stack()))
				done <- result{err: fmt.Errorf("handler panicked: %v", rec)}
			}
		}()
		d, err := h.Execute(ctx, spec, out, ev)
		done <- result{d: d, err: err}
	}()

	select {
	case res := <-done:
		return res.d, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
