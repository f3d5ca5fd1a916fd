package rule

import (
	"fmt"
	"regexp"
	"time"

	"github.com/hookline/hookline/internal/event"
)

// Document is one already-parsed rule document: the front-matter fields as
// a key/value map plus the body text that followed them. The concrete
// front-matter syntax is the loader's concern, not the validator's.
type Document struct {
	Fields map[string]any
	Body   string
	Path   string
}

// Rejected describes a rule document that failed validation. The rule is
// not added to the store; the reasons are returned for logging.
type Rejected struct {
	Name    string
	Path    string
	Reasons []string
}

// requiredFields must be present and non-empty in every rule document.
var requiredFields = []string{"name", "description", "event", "enabled"}

// knownFields is the accepted field vocabulary. Anything else produces a
// non-fatal warning.
var knownFields = map[string]bool{
	"name": true, "description": true, "event": true, "enabled": true,
	"priority": true, "action": true, "tool": true, "match": true,
	"reason": true, "message": true, "updated_input": true,
	"updatedInput": true, "loaders": true, "limit": true,
	"suppress": true, "interrupt": true, "cooldown": true,
	"cmd": true, "args_pattern": true, "args_match": true,
	"flags": true, "any_of_cmds": true, "any_cmd": true,
	"has_substitution": true, "forbid_substitution": true,
}

// bashOnlyFields may only appear on rules constrained to the Bash tool.
var bashOnlyFields = []string{"cmd", "args_pattern", "args_match", "flags", "any_of_cmds", "any_cmd", "has_substitution", "forbid_substitution"}

// compile validates a document and builds the immutable Rule. All
// applicable error reasons are accumulated, not just the first; the rule
// is returned only when no error was found. Warnings never reject.
func compile(doc Document, order int) (r *Rule, warnings, errors []string) {
	f := doc.Fields

	// 1. Required fields.
	for _, field := range requiredFields {
		v, ok := f[field]
		if !ok {
			errors = append(errors, fmt.Sprintf("missing required field: %s", field))
		} else if v == nil || v == "" {
			errors = append(errors, fmt.Sprintf("required field is empty: %s", field))
		}
	}

	name, _ := f["name"].(string)
	kind := event.Kind(asString(f["event"]))
	action := ActionKind(asString(f["action"]))
	tool := asString(f["tool"])

	// 2. Recognized event kind.
	if kind != "" && !kind.Known() {
		errors = append(errors, fmt.Sprintf("unrecognized event kind: %s", kind))
		return nil, warnings, errors
	}

	// 3. Event/action compatibility.
	if kind != "" && !ActionAllowed(kind, action) {
		allowed := AllowedActions(kind)
		if len(allowed) == 0 {
			errors = append(errors, fmt.Sprintf("event %s has no output control, action %q is invalid", kind, action))
		} else {
			errors = append(errors, fmt.Sprintf("action %q is invalid for event %s (allowed: %v)", action, kind, allowed))
		}
	}

	// 4. Tool-specific fields require a Bash tool constraint.
	for _, field := range bashOnlyFields {
		if _, ok := f[field]; ok && tool != event.ToolBash {
			errors = append(errors, fmt.Sprintf("field %s requires tool: Bash", field))
		}
	}

	// 5. Action-dependent fields.
	switch action {
	case ActionTransform:
		if asMap(f["updated_input"]) == nil && asMap(f["updatedInput"]) == nil {
			errors = append(errors, "action transform requires updated_input")
		}
	case ActionLoad:
		if _, ok := f["loaders"]; !ok {
			errors = append(errors, "action load requires loaders")
		}
	}

	// 6. Field types.
	enabled := true
	if v, ok := f["enabled"]; ok {
		b, isBool := v.(bool)
		if !isBool {
			errors = append(errors, "enabled must be a boolean")
		} else {
			enabled = b
		}
	}
	if v, ok := f["flags"]; ok && asStringSlice(v) == nil {
		errors = append(errors, "flags must be a list of strings")
	}
	if v, ok := f["loaders"]; ok && asStringSlice(v) == nil {
		errors = append(errors, "loaders must be a list of strings")
	}

	// 8. Priority clamped into range, defaulted when absent or mistyped.
	priority := PriorityDefault
	if v, ok := f["priority"]; ok {
		n, isNum := asInt(v)
		if !isNum {
			warnings = append(warnings, "priority is not a number, using default")
		} else if n < PriorityMin {
			warnings = append(warnings, fmt.Sprintf("priority %d below minimum, clamped to %d", n, PriorityMin))
			priority = PriorityMin
		} else if n > PriorityMax {
			warnings = append(warnings, fmt.Sprintf("priority %d above maximum, clamped to %d", n, PriorityMax))
			priority = PriorityMax
		} else {
			priority = n
		}
	}

	var cooldown time.Duration
	if v, ok := f["cooldown"]; ok {
		d, err := asDuration(v)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid cooldown: %v", err))
		} else {
			cooldown = d
		}
	}

	// 7. Unknown fields warn, never reject.
	for field := range f {
		if !knownFields[field] {
			warnings = append(warnings, fmt.Sprintf("unknown field: %s", field))
		}
	}

	match, matchErrs := compileMatch(f, tool)
	errors = append(errors, matchErrs...)

	if len(errors) > 0 {
		return nil, warnings, errors
	}

	message := asString(f["message"])
	if message == "" {
		message = doc.Body
	}
	updated := asMap(f["updated_input"])
	if updated == nil {
		updated = asMap(f["updatedInput"])
	}
	limit, _ := asInt(f["limit"])

	return &Rule{
		Name:        name,
		Description: asString(f["description"]),
		EventKind:   kind,
		Tool:        tool,
		Match:       match,
		Action: ActionSpec{
			Kind:         action,
			Reason:       asString(f["reason"]),
			Message:      message,
			UpdatedInput: updated,
			Loaders:      asStringSlice(f["loaders"]),
			Limit:        limit,
			Suppress:     asBool(f["suppress"]),
			Interrupt:    asBool(f["interrupt"]),
		},
		Priority: priority,
		Enabled:  enabled,
		Cooldown: cooldown,
		Source:   doc.Path,
		order:    order,
	}, warnings, errors
}

// compileMatch builds the tagged match spec from the match field plus any
// top-level Bash shorthand fields. Regexes are compiled here so a bad
// pattern rejects the rule instead of surfacing mid-invocation.
func compileMatch(f map[string]any, tool string) (MatchSpec, []string) {
	var errors []string

	raw, hasMatch := f["match"]

	// Top-level Bash shorthand merges into a structured match.
	structured := map[string]any{}
	for _, field := range bashOnlyFields {
		if v, ok := f[field]; ok {
			structured[field] = v
		}
	}

	switch m := raw.(type) {
	case nil:
		if !hasMatch && len(structured) == 0 {
			return MatchSpec{Kind: MatchAlways}, nil
		}
	case string:
		re, err := regexp.Compile(m)
		if err != nil {
			return MatchSpec{}, []string{fmt.Sprintf("invalid match regex: %v", err)}
		}
		return MatchSpec{Kind: MatchRegex, Pattern: re}, nil
	case map[string]any:
		if kws := asStringSlice(m["keywords"]); kws != nil {
			return MatchSpec{Kind: MatchKeywords, Keywords: kws}, nil
		}
		if expr := asString(m["expr"]); expr != "" {
			return MatchSpec{Kind: MatchExpr, Expr: expr}, nil
		}
		for k, v := range m {
			structured[k] = v
		}
	default:
		return MatchSpec{}, []string{"match must be a string or a mapping"}
	}

	if len(structured) == 0 {
		return MatchSpec{Kind: MatchAlways}, nil
	}

	spec := MatchSpec{
		Kind:            MatchCommand,
		Cmd:             asString(structured["cmd"]),
		Flags:           asStringSlice(structured["flags"]),
		HasSubstitution: asBool(structured["has_substitution"]) || asBool(structured["forbid_substitution"]),
	}
	if v := asStringSlice(structured["any_of_cmds"]); v != nil {
		spec.AnyOfCmds = v
	} else if v := asStringSlice(structured["any_cmd"]); v != nil {
		spec.AnyOfCmds = v
	}
	argsRaw := asString(structured["args_pattern"])
	if argsRaw == "" {
		argsRaw = asString(structured["args_match"])
	}
	if argsRaw != "" {
		re, err := regexp.Compile(argsRaw)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid args_pattern regex: %v", err))
		} else {
			spec.ArgsPattern = re
		}
	}
	if tool != event.ToolBash {
		// Reported by the bash-only field check when shorthand was used;
		// a structured match mapping on a non-Bash rule is its own error.
		if _, ok := f["match"]; ok {
			errors = append(errors, "structured command match requires tool: Bash")
		}
	}
	return spec, errors
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func asDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case string:
		return time.ParseDuration(d)
	case int:
		return time.Duration(d) * time.Second, nil
	case float64:
		return time.Duration(d * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("must be a duration string or seconds")
}

func asStringSlice(v any) []string {
	if v == nil {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return nil
	}
	result := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil
		}
		result = append(result, s)
	}
	return result
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
