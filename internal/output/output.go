// Package output renders the merged decision into the response JSON the
// agent expects for each event kind, and emits it on stdout.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hookline/hookline/internal/decision"
	"github.com/hookline/hookline/internal/event"
	"github.com/hookline/hookline/internal/logger"
)

// permissionVerdict is the nested decision object used by
// PermissionRequest responses.
type permissionVerdict struct {
	Behavior     string         `json:"behavior"`
	Message      string         `json:"message,omitempty"`
	UpdatedInput map[string]any `json:"updatedInput,omitempty"`
	Interrupt    bool           `json:"interrupt,omitempty"`
}

type hookSpecific struct {
	HookEventName            string             `json:"hookEventName"`
	PermissionDecision       string             `json:"permissionDecision,omitempty"`
	PermissionDecisionReason string             `json:"permissionDecisionReason,omitempty"`
	UpdatedInput             map[string]any     `json:"updatedInput,omitempty"`
	Decision                 *permissionVerdict `json:"decision,omitempty"`
	AdditionalContext        string             `json:"additionalContext,omitempty"`
}

// Response is the wire response. An all-zero Response marshals to "{}",
// which tells the agent to proceed with defaults.
type Response struct {
	Continue       *bool         `json:"continue,omitempty"`
	StopReason     string        `json:"stopReason,omitempty"`
	SuppressOutput bool          `json:"suppressOutput,omitempty"`
	SystemMessage  string        `json:"systemMessage,omitempty"`
	Decision       string        `json:"decision,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	HookSpecific   *hookSpecific `json:"hookSpecificOutput,omitempty"`
}

// Build maps the merged decision onto the response schema for kind.
// Context accumulated alongside a terminal outcome rides along as
// additionalContext where the schema has a slot for it.
func Build(d *decision.Decision, kind event.Kind) *Response {
	resp := &Response{}
	if d == nil || (d.Out == decision.None && len(d.Context) == 0) {
		return resp
	}

	resp.SuppressOutput = d.Suppress
	resp.SystemMessage = d.SystemMessage

	hs := &hookSpecific{HookEventName: string(kind)}
	used := false

	switch d.Out {
	case decision.Allow, decision.Deny, decision.Ask, decision.Transform:
		behavior := string(d.Out)
		var updated map[string]any
		if d.Out == decision.Transform {
			behavior = "allow"
			updated = d.UpdatedInput
		}
		if kind == event.PermissionRequest {
			hs.Decision = &permissionVerdict{
				Behavior:     behavior,
				Message:      d.Reason,
				UpdatedInput: updated,
				Interrupt:    d.Interrupt,
			}
		} else {
			hs.PermissionDecision = behavior
			hs.PermissionDecisionReason = d.Reason
			hs.UpdatedInput = updated
		}
		used = true

	case decision.Block:
		resp.Decision = "block"
		resp.Reason = d.Reason
	}

	if ctx := strings.Join(d.Context, "\n\n"); ctx != "" {
		hs.AdditionalContext = ctx
		used = true
	}

	if used {
		resp.HookSpecific = hs
	}
	return resp
}

// Encode marshals the response. HTML escaping is disabled so shell text
// in reasons survives round trips readably.
func Encode(resp *Response) ([]byte, error) {
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	out := buf.String()
	return []byte(strings.TrimSuffix(out, "\n")), nil
}

// Emit writes the response JSON plus a trailing newline to w. The
// response shape is self-checked first; a shape complaint is logged but
// never blocks emission.
func Emit(w io.Writer, resp *Response, kind event.Kind) error {
	if err := checkShape(resp, kind); err != nil {
		logger.Warn("response shape check failed", "event", kind, "error", err)
	}
	data, err := Encode(resp)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// DryRun prints a human-readable rendition of the decision instead of
// the wire JSON.
func DryRun(w io.Writer, d *decision.Decision, kind event.Kind) {
	if d == nil || d.Empty() {
		fmt.Fprintf(w, "dry-run: %s -> no decision\n", kind)
		return
	}
	fmt.Fprintf(w, "dry-run: %s -> %s (rule %q)\n", kind, d.Out, d.Rule)
	if d.Reason != "" {
		fmt.Fprintf(w, "  reason: %s\n", d.Reason)
	}
	if len(d.UpdatedInput) != 0 {
		fmt.Fprintf(w, "  updated input: %v\n", d.UpdatedInput)
	}
	for _, c := range d.Context {
		fmt.Fprintf(w, "  context: %s\n", firstLine(c))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

// checkShape verifies the response only uses fields the event kind's
// schema has. Violations indicate a routing bug, not a user error.
func checkShape(resp *Response, kind event.Kind) error {
	if resp.Decision != "" {
		switch kind {
		case event.PostToolUse, event.UserPromptSubmit, event.Stop, event.SubagentStop:
		default:
			return fmt.Errorf("top-level decision %q not valid for %s", resp.Decision, kind)
		}
	}
	if hs := resp.HookSpecific; hs != nil {
		if hs.PermissionDecision != "" && kind != event.PreToolUse {
			return fmt.Errorf("permissionDecision not valid for %s", kind)
		}
		if hs.Decision != nil && kind != event.PermissionRequest {
			return fmt.Errorf("nested decision not valid for %s", kind)
		}
		if hs.AdditionalContext != "" {
			switch kind {
			case event.PreToolUse, event.PostToolUse, event.UserPromptSubmit,
				event.SessionStart, event.SubagentStart, event.PermissionRequest:
			default:
				return fmt.Errorf("additionalContext not valid for %s", kind)
			}
		}
	}
	return nil
}
