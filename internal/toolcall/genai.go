package toolcall

import (
	"encoding/json"

	genai "google.golang.org/genai"
)

// FromGenAIContent extracts assistant text and complete function calls
// from one Gemini response chunk. Gemini never fragments call arguments.
// position offsets synthetic ids for calls without one.
func FromGenAIContent(content *genai.Content, position int) (string, []*Call) {
	if content == nil {
		return "", nil
	}

	var text string
	var calls []*Call
	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" && !part.Thought {
			text += part.Text
		}
		if part.FunctionCall == nil {
			continue
		}
		args, err := json.Marshal(part.FunctionCall.Args)
		if err != nil || part.FunctionCall.Args == nil {
			args = []byte("{}")
		}
		calls = append(calls, NewCall(part.FunctionCall.ID, part.FunctionCall.Name, string(args), position+len(calls)))
	}
	return text, calls
}
