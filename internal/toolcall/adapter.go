// Package toolcall reassembles model tool calls, complete or streamed in
// fragments, into script invocations.
package toolcall

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/codefionn/selenai/internal/tools"
)

// Args are the structured parameters of the script tool.
type Args struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// ParseArgs decodes the accumulated argument text of a script tool call.
// Malformed, truncated or empty payloads fail with ErrArgumentParse.
func ParseArgs(raw string) (Args, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Args{}, tools.Errorf(tools.KindArgumentParse, tools.ScriptToolName, "empty arguments")
	}

	var args Args
	dec := json.NewDecoder(strings.NewReader(trimmed))
	if err := dec.Decode(&args); err != nil {
		return Args{}, tools.NewError(tools.KindArgumentParse, tools.ScriptToolName, "", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Args{}, tools.Errorf(tools.KindArgumentParse, tools.ScriptToolName, "unexpected data after arguments object")
	}
	if strings.TrimSpace(args.Source) == "" {
		return Args{}, tools.Errorf(tools.KindArgumentParse, tools.ScriptToolName, "missing required field \"source\"")
	}
	args.Reason = strings.TrimSpace(args.Reason)
	return args, nil
}

// Call is a fully assembled tool call.
type Call struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// NewCall builds a call from a complete payload. An empty id is replaced
// with a stable synthetic one derived from position.
func NewCall(id, name, arguments string, position int) *Call {
	return &Call{ID: normalizeID(id, name, position), Name: strings.TrimSpace(name), Arguments: arguments}
}

// Invocation turns the call into a model issued invocation. The upstream
// id is carried as the origin call id.
func (c *Call) Invocation() (*tools.Invocation, error) {
	if c.Name != tools.ScriptToolName {
		return nil, tools.Errorf(tools.KindCapabilityDenied, c.Name, "unknown tool %q", c.Name)
	}
	args, err := ParseArgs(c.Arguments)
	if err != nil {
		return nil, err
	}
	return tools.NewInvocation(args.Source, args.Reason, tools.ModelIssued(c.ID)), nil
}

// Fragment is one streamed piece of a tool call. Providers identify calls
// either by ID (first fragment only, for some) or by stream Index.
type Fragment struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

type accumulator struct {
	id    string
	name  string
	index int
	args  bytes.Buffer
}

// Assembler keeps one argument buffer per upstream call id. Entries are
// removed once the call completes.
type Assembler struct {
	mu      sync.Mutex
	calls   map[string]*accumulator
	byIndex map[int]string
	order   []string
}

// NewAssembler returns an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		calls:   make(map[string]*accumulator),
		byIndex: make(map[int]string),
	}
}

// Add appends a fragment to its call's buffer and returns the call id it
// was attributed to.
func (a *Assembler) Add(f Fragment) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := strings.TrimSpace(f.ID)
	if id == "" {
		id = a.byIndex[f.Index]
	}
	if id == "" {
		id = normalizeID("", f.Name, f.Index)
	}

	acc, ok := a.calls[id]
	if !ok {
		acc = &accumulator{id: id, index: f.Index}
		a.calls[id] = acc
		a.order = append(a.order, id)
	}
	a.byIndex[f.Index] = id
	if name := strings.TrimSpace(f.Name); name != "" && acc.name == "" {
		acc.name = name
	}
	acc.args.WriteString(f.Arguments)
	return id
}

// Complete finishes the call with the given id and removes its buffer.
func (a *Assembler) Complete(id string) (*Call, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.completeLocked(id)
}

// CompleteIndex finishes the call last seen at a stream index.
func (a *Assembler) CompleteIndex(index int) (*Call, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.byIndex[index]
	if !ok {
		return nil, tools.Errorf(tools.KindNotFound, "tool_call", "no tool call at index %d", index)
	}
	return a.completeLocked(id)
}

// Finish completes every outstanding call in arrival order.
func (a *Assembler) Finish() []*Call {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := append([]string(nil), a.order...)
	calls := make([]*Call, 0, len(ids))
	for _, id := range ids {
		if call, err := a.completeLocked(id); err == nil {
			calls = append(calls, call)
		}
	}
	return calls
}

// Pending reports how many calls are still being assembled.
func (a *Assembler) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func (a *Assembler) completeLocked(id string) (*Call, error) {
	acc, ok := a.calls[id]
	if !ok {
		return nil, tools.Errorf(tools.KindNotFound, "tool_call", "no tool call with id %q", id)
	}
	delete(a.calls, id)
	if a.byIndex[acc.index] == id {
		delete(a.byIndex, acc.index)
	}
	for i, existing := range a.order {
		if existing == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return &Call{ID: acc.id, Name: acc.name, Arguments: acc.args.String()}, nil
}

// normalizeID gives id-less calls a stable identifier, call_<name>_<n>.
func normalizeID(id, name string, position int) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	if clean := sanitizeName(name); clean != "" {
		return fmt.Sprintf("call_%s_%d", clean, position+1)
	}
	return fmt.Sprintf("call_%d", position+1)
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
