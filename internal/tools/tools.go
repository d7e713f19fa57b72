package tools

import (
	"strings"
)

// ScriptToolName is the single tool declared to the model.
const ScriptToolName = "run_script"

// ToolSpec represents the static specification of a tool (name, description, parameters).
// This is used for LLM schema generation and does not require any runtime dependencies.
type ToolSpec interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
}

// ScriptToolSpec declares the script tool. The description depends on
// whether writes are currently enabled so the model does not plan edits it
// cannot make.
type ScriptToolSpec struct {
	WritesEnabled bool
}

func (s *ScriptToolSpec) Name() string {
	return ScriptToolName
}

func (s *ScriptToolSpec) Description() string {
	var sb strings.Builder
	sb.WriteString("Execute Go code inside the user's workspace. The interpreter is persistent: ")
	sb.WriteString("variables and functions defined in one call remain available in later calls. ")
	sb.WriteString("Use the `host` package (host.ReadFile, host.ListDir, host.Search, host.GitStatus, ")
	sb.WriteString("host.HTTPRequest, host.Log, ...) to inspect files and gather context. ")
	sb.WriteString("The value of the last expression is returned; fmt.Println output is captured. ")
	sb.WriteString("Always explain in `reason` why you need the script.")
	if s.WritesEnabled {
		sb.WriteString(" host.WriteFile and host.PatchFile are available; each call is queued for user approval.")
	} else {
		sb.WriteString(" File writes are disabled; limit scripts to read-only inspection.")
	}
	return sb.String()
}

func (s *ScriptToolSpec) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"source": map[string]interface{}{
				"type":        "string",
				"description": "Go statements to evaluate. Do not declare a package; imports are optional.",
			},
			"reason": map[string]interface{}{
				"type":        "string",
				"description": "One sentence describing why the script is needed.",
			},
		},
		"required":             []string{"source"},
		"additionalProperties": false,
	}
}
