// Package event defines the typed representation of an incoming hook event.
//
// An Event is parsed once from the raw JSON payload on stdin, validated for
// its declared kind, and treated as read-only for the rest of the
// invocation. Every other component consults the parsed Event directly;
// nothing re-validates it downstream.
package event

import (
	"encoding/json"
	"fmt"
)

// Kind identifies a hook event kind. The wire value is the
// hook_event_name field of the payload.
type Kind string

// Recognized event kinds.
const (
	PreToolUse         Kind = "PreToolUse"
	PostToolUse        Kind = "PostToolUse"
	PostToolUseFailure Kind = "PostToolUseFailure"
	Notification       Kind = "Notification"
	UserPromptSubmit   Kind = "UserPromptSubmit"
	SessionStart       Kind = "SessionStart"
	SessionEnd         Kind = "SessionEnd"
	Stop               Kind = "Stop"
	SubagentStart      Kind = "SubagentStart"
	SubagentStop       Kind = "SubagentStop"
	PreCompact         Kind = "PreCompact"
	PermissionRequest  Kind = "PermissionRequest"
)

// Kinds lists every recognized event kind in a fixed order.
var Kinds = []Kind{
	PreToolUse, PostToolUse, PostToolUseFailure, Notification,
	UserPromptSubmit, SessionStart, SessionEnd, Stop,
	SubagentStart, SubagentStop, PreCompact, PermissionRequest,
}

// Known reports whether k is a recognized event kind.
func (k Kind) Known() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Tool names with dedicated matching support.
const ToolBash = "Bash"

// ToolInput is the opaque structured payload of a tool invocation.
// For Bash-like tools it carries the raw command line under "command".
type ToolInput map[string]any

// Command returns the command line, or "" when the input has none.
func (ti ToolInput) Command() string {
	s, _ := ti["command"].(string)
	return s
}

// Event is one typed snapshot of an external occurrence submitted to the
// engine for a decision. Fields beyond the common envelope are populated
// only for the kinds that define them.
type Event struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	Cwd            string `json:"cwd,omitempty"`
	PermissionMode string `json:"permission_mode,omitempty"`
	Kind           Kind   `json:"hook_event_name"`

	// Tool events (PreToolUse, PostToolUse, PostToolUseFailure,
	// PermissionRequest)
	ToolName     string         `json:"tool_name,omitempty"`
	ToolInput    ToolInput      `json:"tool_input,omitempty"`
	ToolUseID    string         `json:"tool_use_id,omitempty"`
	ToolResponse map[string]any `json:"tool_response,omitempty"`
	ToolError    string         `json:"error,omitempty"`

	// UserPromptSubmit
	Prompt string `json:"prompt,omitempty"`

	// Notification
	Message          string `json:"message,omitempty"`
	NotificationType string `json:"notification_type,omitempty"`

	// SessionStart / SessionEnd / SubagentStart / SubagentStop
	Source    string `json:"source,omitempty"`
	Reason    string `json:"reason,omitempty"`
	AgentType string `json:"agent_type,omitempty"`

	// Stop / SubagentStop
	StopHookActive bool `json:"stop_hook_active,omitempty"`

	// PreCompact
	Trigger            string `json:"trigger,omitempty"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

// ValidationError describes a payload that cannot become a valid Event.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: field %q: %s", e.Field, e.Reason)
}

// requiredFields lists the kind-specific fields that must be present,
// keyed by event kind. The common envelope requirement (session_id,
// hook_event_name) is checked separately.
var requiredFields = map[Kind][]string{
	PreToolUse:         {"tool_name", "tool_input"},
	PostToolUse:        {"tool_name", "tool_input"},
	PostToolUseFailure: {"tool_name", "tool_input"},
	PermissionRequest:  {"tool_name", "tool_input"},
	UserPromptSubmit:   {"prompt"},
	Notification:       {"message"},
	SessionStart:       {"source"},
	PreCompact:         {"trigger"},
}

// Parse decodes a raw JSON payload into an Event and validates the fields
// required for its declared kind. The returned Event is immutable by
// convention: no component mutates it after Parse returns.
func Parse(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, &ValidationError{Field: "$", Reason: err.Error()}
	}

	if ev.Kind == "" {
		return nil, &ValidationError{Field: "hook_event_name", Reason: "missing"}
	}
	if !ev.Kind.Known() {
		return nil, &ValidationError{
			Field:  "hook_event_name",
			Reason: fmt.Sprintf("unrecognized event kind %q", ev.Kind),
		}
	}
	if ev.SessionID == "" {
		return nil, &ValidationError{Field: "session_id", Reason: "missing"}
	}

	for _, field := range requiredFields[ev.Kind] {
		if !ev.hasField(field) {
			return nil, &ValidationError{
				Field:  field,
				Reason: fmt.Sprintf("required for %s events", ev.Kind),
			}
		}
	}

	return &ev, nil
}

func (ev *Event) hasField(field string) bool {
	switch field {
	case "tool_name":
		return ev.ToolName != ""
	case "tool_input":
		return ev.ToolInput != nil
	case "prompt":
		return ev.Prompt != ""
	case "message":
		return ev.Message != ""
	case "source":
		return ev.Source != ""
	case "trigger":
		return ev.Trigger != ""
	}
	return false
}

// CommandLine returns the Bash command line carried by the event, or ""
// when the event is not a Bash tool invocation.
func (ev *Event) CommandLine() string {
	if ev.ToolName != ToolBash {
		return ""
	}
	return ev.ToolInput.Command()
}

// MatchText returns the designated string projection of the event used by
// text-based match specs: the command line for tool events, the prompt for
// prompt events, the message for notifications. Empty when the event has
// no text projection.
func (ev *Event) MatchText() string {
	switch ev.Kind {
	case PreToolUse, PostToolUse, PostToolUseFailure, PermissionRequest:
		return ev.CommandLine()
	case UserPromptSubmit:
		return ev.Prompt
	case Notification:
		return ev.Message
	}
	return ""
}
