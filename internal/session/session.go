// Package session holds the conversation of one agent session and records
// it, together with every tool invocation, under the log directory.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codefionn/selenai/internal/toolcall"
)

// Message represents a message in the conversation
type Message struct {
	Role       string           `json:"role"` // user, assistant, tool
	Content    string           `json:"content"`
	ToolCalls  []*toolcall.Call `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	ToolName   string           `json:"tool_name,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// Session is the ordered conversation history.
type Session struct {
	ID         string
	WorkingDir string
	CreatedAt  time.Time

	mu       sync.RWMutex
	messages []*Message
}

// NewSession creates a new session
func NewSession(id, workingDir string) *Session {
	if id == "" {
		id = GenerateID()
	}
	return &Session{
		ID:         id,
		WorkingDir: workingDir,
		CreatedAt:  time.Now(),
	}
}

// GenerateID returns a fresh session id.
func GenerateID() string {
	return uuid.NewString()
}

// AddMessage adds a message to the session
func (s *Session) AddMessage(msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.messages = append(s.messages, msg)
}

// GetMessages returns a copy of the message list.
func (s *Session) GetMessages() []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Message(nil), s.messages...)
}

// UserMessageCount returns how many user turns the session has.
func (s *Session) UserMessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, msg := range s.messages {
		if msg.Role == "user" {
			count++
		}
	}
	return count
}

// Clear drops the conversation history.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}
