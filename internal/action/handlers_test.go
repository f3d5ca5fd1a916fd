package action

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookline/hookline/internal/decision"
	"github.com/hookline/hookline/internal/event"
	"github.com/hookline/hookline/internal/knowledge"
	"github.com/hookline/hookline/internal/match"
	"github.com/hookline/hookline/internal/rule"
)

func bashEvent(command string) *event.Event {
	return &event.Event{
		Kind:      event.PreToolUse,
		SessionID: "s1",
		ToolName:  event.ToolBash,
		ToolInput: event.ToolInput{"command": command},
	}
}

func TestRegistryCoversEveryAllowedAction(t *testing.T) {
	r := NewRegistry(nil)
	for _, kind := range event.Kinds {
		for _, act := range rule.AllowedActions(kind) {
			if _, err := r.Lookup(act); err != nil {
				t.Errorf("no handler for %s action %q: %v", kind, act, err)
			}
		}
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Lookup("explode")
	assert.Error(t, err)
}

func TestPermissionHandler(t *testing.T) {
	tests := []struct {
		kind rule.ActionKind
		want decision.Outcome
	}{
		{rule.ActionAllow, decision.Allow},
		{rule.ActionDeny, decision.Deny},
		{rule.ActionAsk, decision.Ask},
	}
	h := &permissionHandler{}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			spec := rule.ActionSpec{Kind: tt.kind, Reason: "because"}
			d, err := h.Execute(context.Background(), spec, match.Outcome{Matched: true}, bashEvent("ls"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Out)
			assert.Equal(t, "because", d.Reason)
		})
	}
}

func TestPermissionHandlerCarriesSuppress(t *testing.T) {
	h := &permissionHandler{}
	spec := rule.ActionSpec{Kind: rule.ActionAllow, Suppress: true}
	d, err := h.Execute(context.Background(), spec, match.Outcome{Matched: true}, bashEvent("ls"))
	require.NoError(t, err)
	assert.True(t, d.Suppress)
}

func TestTransformExpandsCaptures(t *testing.T) {
	h := &transformHandler{}
	spec := rule.ActionSpec{
		Kind: rule.ActionTransform,
		UpdatedInput: map[string]any{
			"command": "git push --force-with-lease $1",
			"nested":  map[string]any{"note": "was: $0"},
			"args":    []any{"$1", 7},
		},
	}
	out := match.Outcome{
		Matched:  true,
		Captures: []string{"git push --force origin", "origin"},
	}
	d, err := h.Execute(context.Background(), spec, out, bashEvent("git push --force origin"))
	require.NoError(t, err)
	assert.Equal(t, decision.Transform, d.Out)
	assert.Equal(t, "git push --force-with-lease origin", d.UpdatedInput["command"])
	assert.Equal(t, map[string]any{"note": "was: git push --force origin"}, d.UpdatedInput["nested"])
	assert.Equal(t, []any{"origin", 7}, d.UpdatedInput["args"])
}

func TestTransformOutOfRangeCaptureIsEmpty(t *testing.T) {
	h := &transformHandler{}
	spec := rule.ActionSpec{
		Kind:         rule.ActionTransform,
		UpdatedInput: map[string]any{"command": "echo [$3]"},
	}
	d, err := h.Execute(context.Background(), spec, match.Outcome{Matched: true, Captures: []string{"x"}}, bashEvent("x"))
	require.NoError(t, err)
	assert.Equal(t, "echo []", d.UpdatedInput["command"])
}

func TestTransformWithoutInputErrors(t *testing.T) {
	h := &transformHandler{}
	_, err := h.Execute(context.Background(), rule.ActionSpec{Kind: rule.ActionTransform}, match.Outcome{Matched: true}, bashEvent("x"))
	assert.Error(t, err)
}

func TestBlockHandler(t *testing.T) {
	h := &blockHandler{}
	spec := rule.ActionSpec{Kind: rule.ActionBlock, Reason: "tests failed", Interrupt: true}
	d, err := h.Execute(context.Background(), spec, match.Outcome{Matched: true}, &event.Event{Kind: event.Stop})
	require.NoError(t, err)
	assert.Equal(t, decision.Block, d.Out)
	assert.Equal(t, "tests failed", d.Reason)
	assert.True(t, d.Interrupt)
}

func TestContextHandler(t *testing.T) {
	h := &contextHandler{}
	spec := rule.ActionSpec{Kind: rule.ActionContext, Message: "use uv, not pip\n"}
	d, err := h.Execute(context.Background(), spec, match.Outcome{Matched: true}, bashEvent("pip install x"))
	require.NoError(t, err)
	assert.Equal(t, decision.Context, d.Out)
	assert.Equal(t, []string{"use uv, not pip"}, d.Context)

	_, err = h.Execute(context.Background(), rule.ActionSpec{Kind: rule.ActionContext}, match.Outcome{Matched: true}, bashEvent("x"))
	assert.Error(t, err, "context action without a message")
}

func TestLoadHandler(t *testing.T) {
	h := &loadHandler{}
	spec := rule.ActionSpec{Kind: rule.ActionLoad, Loaders: []string{"conventions", "deploy-runbook"}, Message: "loaded runbooks"}
	d, err := h.Execute(context.Background(), spec, match.Outcome{Matched: true}, &event.Event{Kind: event.SessionStart, Source: "startup"})
	require.NoError(t, err)
	assert.Equal(t, decision.Load, d.Out)
	assert.Equal(t, []string{"conventions", "deploy-runbook"}, d.Loaders)
	assert.Equal(t, []string{"loaded runbooks"}, d.Context)

	_, err = h.Execute(context.Background(), rule.ActionSpec{Kind: rule.ActionLoad}, match.Outcome{Matched: true}, &event.Event{Kind: event.SessionStart})
	assert.Error(t, err, "load action without loaders")
}

func TestMemoryHandlerSurfacesNotes(t *testing.T) {
	store, err := knowledge.Open(filepath.Join(t.TempDir(), "knowledge.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Add("deploys", "deploys happen from the release branch"))
	require.NoError(t, store.Add("git", "never force push to main"))

	h := &memoryHandler{store: store}
	ev := &event.Event{Kind: event.UserPromptSubmit, Prompt: "how do I deploy the release?"}
	d, err := h.Execute(context.Background(), rule.ActionSpec{Kind: rule.ActionMemory}, match.Outcome{Matched: true}, ev)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, decision.Memory, d.Out)
	require.Len(t, d.Context, 1)
	assert.Contains(t, d.Context[0], "release branch")
}

func TestMemoryHandlerNoStoreNoDecision(t *testing.T) {
	h := &memoryHandler{}
	ev := &event.Event{Kind: event.UserPromptSubmit, Prompt: "remember the deploy steps"}
	d, err := h.Execute(context.Background(), rule.ActionSpec{Kind: rule.ActionMemory}, match.Outcome{Matched: true}, ev)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestMemoryHandlerNoMatchesNoDecision(t *testing.T) {
	store, err := knowledge.Open(filepath.Join(t.TempDir(), "knowledge.db"))
	require.NoError(t, err)
	defer store.Close()

	h := &memoryHandler{store: store}
	ev := &event.Event{Kind: event.UserPromptSubmit, Prompt: "anything interesting today"}
	d, err := h.Execute(context.Background(), rule.ActionSpec{Kind: rule.ActionMemory}, match.Outcome{Matched: true}, ev)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestStreamHandlerWritesMessage(t *testing.T) {
	var buf bytes.Buffer
	h := &streamHandler{w: &buf}
	spec := rule.ActionSpec{Kind: rule.ActionStdout, Message: "compaction imminent"}
	d, err := h.Execute(context.Background(), spec, match.Outcome{Matched: true}, &event.Event{Kind: event.PreCompact, Trigger: "auto"})
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.Equal(t, "compaction imminent\n", buf.String())
}
