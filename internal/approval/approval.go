// Package approval implements the write gate and the FIFO queue of model
// issued invocations waiting for a user decision.
package approval

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/codefionn/selenai/internal/tools"
)

// State is where an invocation is in the approval lifecycle.
type State string

const (
	StatePending   State = "pending"
	StateApproved  State = "approved"
	StateSkipped   State = "skipped"
	StateExecuted  State = "executed"
	StateErrored   State = "errored"
	StateDiscarded State = "discarded"
)

// Route is the gate's decision for a new invocation.
type Route int

const (
	// RouteExecute runs the invocation immediately.
	RouteExecute Route = iota
	// RouteQueue holds the invocation until it is approved or skipped.
	RouteQueue
)

func (r Route) String() string {
	if r == RouteQueue {
		return "queue"
	}
	return "execute"
}

// Decide applies the write gate. With writes disabled everything runs
// read-only; with writes enabled only model issued invocations wait.
func Decide(inv *tools.Invocation, writesEnabled bool) Route {
	if writesEnabled && inv.Origin.IsModelIssued() {
		return RouteQueue
	}
	return RouteExecute
}

// Entry is one pending invocation. Seq is a short handle for commands.
type Entry struct {
	Seq        int
	Invocation *tools.Invocation
	Preview    string
	QueuedAt   time.Time
}

// Handle is the user facing reference, "#3".
func (e *Entry) Handle() string {
	return "#" + strconv.Itoa(e.Seq)
}

// Queue holds pending entries in arrival order.
type Queue struct {
	mu      sync.Mutex
	entries []*Entry
	nextSeq int
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{nextSeq: 1}
}

// Push appends inv and returns its entry.
func (q *Queue) Push(inv *tools.Invocation, preview string) *Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := &Entry{Seq: q.nextSeq, Invocation: inv, Preview: preview, QueuedAt: time.Now()}
	q.nextSeq++
	q.entries = append(q.entries, e)
	return e
}

// Take removes and returns the entry named by id, or the oldest entry when
// id is empty. id may be the sequence number ("3" or "#3"), the invocation
// id or the upstream call id.
func (q *Queue) Take(id string) (*Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	id = strings.TrimSpace(id)
	if len(q.entries) == 0 {
		if id == "" {
			return nil, tools.Errorf(tools.KindNotFound, "approval", "no pending tool invocations")
		}
		return nil, tools.Errorf(tools.KindNotFound, "approval", "no pending tool invocation %q", id)
	}
	if id == "" {
		e := q.entries[0]
		q.entries = q.entries[1:]
		return e, nil
	}

	for i, e := range q.entries {
		if e.matches(id) {
			q.entries = append(q.entries[:i:i], q.entries[i+1:]...)
			return e, nil
		}
	}
	return nil, tools.Errorf(tools.KindNotFound, "approval", "no pending tool invocation %q", id)
}

func (e *Entry) matches(id string) bool {
	if seq, err := strconv.Atoi(strings.TrimPrefix(id, "#")); err == nil {
		return seq == e.Seq
	}
	return id == e.Invocation.ID || (e.Invocation.Origin.CallID != "" && id == e.Invocation.Origin.CallID)
}

// List returns the pending entries, oldest first.
func (q *Queue) List() []*Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Entry(nil), q.entries...)
}

// Len returns the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Drain removes and returns every pending entry.
func (q *Queue) Drain() []*Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.entries
	q.entries = nil
	return out
}
