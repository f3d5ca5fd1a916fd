// hookline - rule-driven hook engine for Claude Code events
//
// One invocation reads one hook event JSON on stdin, evaluates it
// against the user's rule set, and emits one merged decision JSON on
// stdout. Rules are Markdown files with YAML front-matter under
// ~/.config/hookline/rules/.
//
// Usage in ~/.claude/settings.json:
//
//	"hooks": {
//	  "PreToolUse": [{
//	    "hooks": [{"type": "command", "command": "hookline"}]
//	  }],
//	  "UserPromptSubmit": [{
//	    "hooks": [{"type": "command", "command": "hookline"}]
//	  }]
//	}
//
// Test:
//
//	echo '{"session_id": "s1", "hook_event_name": "PreToolUse", "tool_name": "Bash", "tool_input": {"command": "rm -rf /tmp/x"}}' | hookline
package main

import (
	"os"

	"github.com/hookline/hookline/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
