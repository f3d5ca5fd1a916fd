package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookline/hookline/internal/action"
	"github.com/hookline/hookline/internal/decision"
	"github.com/hookline/hookline/internal/event"
	"github.com/hookline/hookline/internal/match"
	"github.com/hookline/hookline/internal/rule"
)

func promptEvent(prompt string) *event.Event {
	return &event.Event{Kind: event.UserPromptSubmit, SessionID: "s1", Prompt: prompt}
}

func contextRule(name, msg string) *rule.Rule {
	return &rule.Rule{
		Name:      name,
		EventKind: event.UserPromptSubmit,
		Enabled:   true,
		Match:     rule.MatchSpec{Kind: rule.MatchAlways},
		Action:    rule.ActionSpec{Kind: rule.ActionContext, Message: msg},
	}
}

func newRouter(cfg Config) *Router {
	return New(&match.Matcher{}, action.NewRegistry(nil), cfg)
}

func TestRouteDecisionsFollowRuleOrder(t *testing.T) {
	r := newRouter(Config{})
	rules := []*rule.Rule{
		contextRule("first", "a"),
		contextRule("second", "b"),
		contextRule("third", "c"),
	}

	decisions, reports := r.Route(context.Background(), promptEvent("hi"), rules)

	require.Len(t, decisions, 3)
	for i, want := range []string{"first", "second", "third"} {
		assert.Equal(t, want, decisions[i].Rule)
		assert.Equal(t, event.UserPromptSubmit, decisions[i].Kind)
	}
	require.Len(t, reports, 3)
	for _, rep := range reports {
		assert.True(t, rep.Matched)
		assert.Empty(t, rep.Skipped)
	}
}

func TestRouteSkipsNonMatching(t *testing.T) {
	r := newRouter(Config{})
	miss := contextRule("miss", "x")
	miss.Match = rule.MatchSpec{Kind: rule.MatchKeywords, Keywords: []string{"kubernetes"}}
	rules := []*rule.Rule{miss, contextRule("hit", "y")}

	decisions, reports := r.Route(context.Background(), promptEvent("hello"), rules)

	require.Len(t, decisions, 1)
	assert.Equal(t, "hit", decisions[0].Rule)
	assert.False(t, reports[0].Matched)
	assert.True(t, reports[1].Matched)
}

func TestRoutePanicIsolation(t *testing.T) {
	reg := action.NewRegistry(nil)
	reg.Register("boom", action.HandlerFunc(func(context.Context, rule.ActionSpec, match.Outcome, *event.Event) (*decision.Decision, error) {
		panic("kaboom")
	}))
	r := New(&match.Matcher{}, reg, Config{})

	bad := contextRule("bad", "")
	bad.Action = rule.ActionSpec{Kind: "boom"}
	rules := []*rule.Rule{bad, contextRule("good", "still here")}

	decisions, reports := r.Route(context.Background(), promptEvent("hi"), rules)

	require.Len(t, decisions, 1)
	assert.Equal(t, "good", decisions[0].Rule)
	assert.Equal(t, "error", reports[0].Skipped)
	assert.ErrorContains(t, reports[0].Err, "kaboom")
}

func TestRouteHandlerErrorIsolated(t *testing.T) {
	reg := action.NewRegistry(nil)
	reg.Register("fail", action.HandlerFunc(func(context.Context, rule.ActionSpec, match.Outcome, *event.Event) (*decision.Decision, error) {
		return nil, errors.New("backend unavailable")
	}))
	r := New(&match.Matcher{}, reg, Config{})

	bad := contextRule("bad", "")
	bad.Action = rule.ActionSpec{Kind: "fail"}
	rules := []*rule.Rule{bad, contextRule("good", "fine")}

	decisions, reports := r.Route(context.Background(), promptEvent("hi"), rules)

	require.Len(t, decisions, 1)
	assert.Equal(t, "good", decisions[0].Rule)
	assert.ErrorContains(t, reports[0].Err, "backend unavailable")
}

func TestRouteHandlerTimeout(t *testing.T) {
	reg := action.NewRegistry(nil)
	reg.Register("slow", action.HandlerFunc(func(ctx context.Context, _ rule.ActionSpec, _ match.Outcome, _ *event.Event) (*decision.Decision, error) {
		select {
		case <-time.After(500 * time.Millisecond):
			return &decision.Decision{Out: decision.Context, Context: []string{"late"}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}))
	r := New(&match.Matcher{}, reg, Config{HandlerTimeout: 20 * time.Millisecond})

	slow := contextRule("slow", "")
	slow.Action = rule.ActionSpec{Kind: "slow"}
	rules := []*rule.Rule{slow, contextRule("fast", "on time")}

	decisions, reports := r.Route(context.Background(), promptEvent("hi"), rules)

	require.Len(t, decisions, 1)
	assert.Equal(t, "fast", decisions[0].Rule)
	assert.Equal(t, "timeout", reports[0].Skipped)
	assert.ErrorIs(t, reports[0].Err, context.DeadlineExceeded)
}

func TestRouteCooldown(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	r := newRouter(Config{Now: clock})

	rl := contextRule("throttled", "ping")
	rl.Cooldown = time.Minute
	ev := promptEvent("hi")

	decisions, _ := r.Route(context.Background(), ev, []*rule.Rule{rl})
	require.Len(t, decisions, 1)

	// Second firing inside the window is suppressed.
	decisions, reports := r.Route(context.Background(), ev, []*rule.Rule{rl})
	assert.Empty(t, decisions)
	assert.True(t, reports[0].Matched)
	assert.Equal(t, "cooldown", reports[0].Skipped)

	// Past the window it fires again.
	now = now.Add(2 * time.Minute)
	decisions, _ = r.Route(context.Background(), ev, []*rule.Rule{rl})
	require.Len(t, decisions, 1)
}

func TestRouteBoundedConcurrencyStillRunsAll(t *testing.T) {
	r := newRouter(Config{MaxConcurrent: 1})
	rules := make([]*rule.Rule, 0, 5)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		rules = append(rules, contextRule(name, "msg "+name))
	}

	decisions, _ := r.Route(context.Background(), promptEvent("hi"), rules)

	require.Len(t, decisions, 5)
	for i, name := range []string{"a", "b", "c", "d", "e"} {
		assert.Equal(t, name, decisions[i].Rule)
	}
}

func TestRouteNilDecisionProducesNothing(t *testing.T) {
	reg := action.NewRegistry(nil)
	reg.Register("quiet", action.HandlerFunc(func(context.Context, rule.ActionSpec, match.Outcome, *event.Event) (*decision.Decision, error) {
		return nil, nil
	}))
	r := New(&match.Matcher{}, reg, Config{})

	rl := contextRule("quiet", "")
	rl.Action = rule.ActionSpec{Kind: "quiet"}

	decisions, reports := r.Route(context.Background(), promptEvent("hi"), []*rule.Rule{rl})

	assert.Empty(t, decisions)
	assert.True(t, reports[0].Matched)
	assert.NoError(t, reports[0].Err)
}

func TestRouteUnknownActionSkipped(t *testing.T) {
	r := newRouter(Config{})
	rl := contextRule("odd", "")
	rl.Action = rule.ActionSpec{Kind: "no-such-action"}

	decisions, reports := r.Route(context.Background(), promptEvent("hi"), []*rule.Rule{rl})

	assert.Empty(t, decisions)
	assert.Equal(t, "error", reports[0].Skipped)
	assert.Error(t, reports[0].Err)
}
