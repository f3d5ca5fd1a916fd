package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/hookline/hookline/internal/event"
	"github.com/hookline/hookline/internal/logger"
	"github.com/hookline/hookline/internal/rule"
)

// exprEnv builds the whitelisted evaluation environment for a boolean
// expression: named event fields plus a small helper set. Compilation is
// checked against exactly this environment, so unknown identifiers or
// calls outside the whitelist fail at compile time.
func exprEnv(ev *event.Event) map[string]any {
	return map[string]any{
		"event_kind":      string(ev.Kind),
		"tool_name":       ev.ToolName,
		"tool_input":      map[string]any(ev.ToolInput),
		"command":         ev.CommandLine(),
		"prompt":          ev.Prompt,
		"message":         ev.Message,
		"source":          ev.Source,
		"trigger":         ev.Trigger,
		"agent_type":      ev.AgentType,
		"cwd":             ev.Cwd,
		"permission_mode": ev.PermissionMode,

		"contains":       exprContains,
		"matchesPattern": exprMatchesPattern,
		"anyMatches":     exprAnyMatches,
	}
}

func exprContains(s, substr string) bool {
	return strings.Contains(caseFolder.String(s), caseFolder.String(substr))
}

func exprMatchesPattern(s, pattern string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func exprAnyMatches(items []any, pattern string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	for _, item := range items {
		if re.MatchString(fmt.Sprint(item)) {
			return true
		}
	}
	return false
}

// matchExpr compiles and evaluates a rule's boolean expression against
// the event. Compile and run errors fail closed: the rule simply does not
// match, with a warning logged. Compilation happens here rather than at
// load time so a bad expression degrades one rule instead of rejecting
// it silently at startup.
func matchExpr(ev *event.Event, r *rule.Rule) Outcome {
	env := exprEnv(ev)

	program, err := expr.Compile(r.Match.Expr, expr.Env(env), expr.AsBool())
	if err != nil {
		logger.Warn("expression failed to compile, treating as non-match", "rule", r.Name, "error", err)
		return Outcome{}
	}

	out, err := expr.Run(program, env)
	if err != nil {
		logger.Warn("expression failed to evaluate, treating as non-match", "rule", r.Name, "error", err)
		return Outcome{}
	}

	matched, ok := out.(bool)
	if !ok {
		logger.Warn("expression did not produce a boolean, treating as non-match", "rule", r.Name)
		return Outcome{}
	}
	return Outcome{Matched: matched}
}
