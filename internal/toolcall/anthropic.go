package toolcall

import (
	"sync"

	anthropic "github.com/anthropics/anthropic-sdk-go"
)

// AnthropicStream tracks tool_use content blocks across message stream
// events. Anthropic addresses deltas by block index, so the stream remembers
// which indexes belong to tool calls.
type AnthropicStream struct {
	asm *Assembler

	mu        sync.Mutex
	toolIndex map[int]bool
}

// NewAnthropicStream feeds fragments into asm.
func NewAnthropicStream(asm *Assembler) *AnthropicStream {
	return &AnthropicStream{asm: asm, toolIndex: make(map[int]bool)}
}

// Handle consumes one event. It returns assistant text, and a call when a
// tool_use block has finished streaming.
func (s *AnthropicStream) Handle(event anthropic.MessageStreamEventUnion) (string, *Call, error) {
	switch ev := event.AsAny().(type) {
	case anthropic.ContentBlockStartEvent:
		if ev.ContentBlock.Type != "tool_use" {
			return "", nil, nil
		}
		index := int(ev.Index)
		s.mu.Lock()
		s.toolIndex[index] = true
		s.mu.Unlock()
		s.asm.Add(Fragment{Index: index, ID: ev.ContentBlock.ID, Name: ev.ContentBlock.Name})

	case anthropic.ContentBlockDeltaEvent:
		switch delta := ev.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			return delta.Text, nil, nil
		case anthropic.InputJSONDelta:
			s.asm.Add(Fragment{Index: int(ev.Index), Arguments: delta.PartialJSON})
		}

	case anthropic.ContentBlockStopEvent:
		index := int(ev.Index)
		s.mu.Lock()
		isTool := s.toolIndex[index]
		delete(s.toolIndex, index)
		s.mu.Unlock()
		if !isTool {
			return "", nil, nil
		}
		call, err := s.asm.CompleteIndex(index)
		return "", call, err
	}
	return "", nil, nil
}
