package toolcall

import (
	"github.com/openai/openai-go"
)

// Delta is the provider-neutral content of one streamed chunk.
type Delta struct {
	Text      string
	Fragments []Fragment
	// Done is set when the provider signalled the end of the message.
	Done bool
}

// FromOpenAIChunk splits a streamed chat completion chunk into assistant
// text and tool call fragments. Only the first choice is considered.
func FromOpenAIChunk(chunk openai.ChatCompletionChunk) Delta {
	var d Delta
	if len(chunk.Choices) == 0 {
		return d
	}
	choice := chunk.Choices[0]
	d.Text = choice.Delta.Content
	for _, call := range choice.Delta.ToolCalls {
		d.Fragments = append(d.Fragments, Fragment{
			Index:     int(call.Index),
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	d.Done = choice.FinishReason != ""
	return d
}
