package script

import (
	"strings"
	"sync"

	"github.com/codefionn/selenai/internal/tools"
)

// frame holds the output buffers of exactly one invocation. Once sealed,
// further writes are dropped, so a script that outlives its timeout
// cannot leak output into the next invocation.
type frame struct {
	mu      sync.Mutex
	sealed  bool
	stdout  lineBuffer
	stderr  lineBuffer
	logs    []tools.LogEntry
	preview []string
}

type stream int

const (
	streamStdout stream = iota
	streamStderr
)

func (f *frame) write(s stream, p []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sealed {
		return
	}
	if s == streamStderr {
		f.stderr.write(string(p))
		return
	}
	f.stdout.write(string(p))
}

func (f *frame) log(entry tools.LogEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.sealed {
		f.logs = append(f.logs, entry)
	}
}

func (f *frame) record(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.sealed {
		f.preview = append(f.preview, line)
	}
}

// drained is the content of a sealed frame.
type drained struct {
	stdout  []string
	stderr  []string
	logs    []tools.LogEntry
	preview []string
}

// drain seals the frame and returns its content.
func (f *frame) drain() drained {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sealed = true
	return drained{
		stdout:  f.stdout.lines(),
		stderr:  f.stderr.lines(),
		logs:    append([]tools.LogEntry(nil), f.logs...),
		preview: append([]string(nil), f.preview...),
	}
}

// lineBuffer splits a byte stream into lines. A trailing partial line is
// kept until the buffer is drained.
type lineBuffer struct {
	done    []string
	partial strings.Builder
}

func (b *lineBuffer) write(s string) {
	for {
		idx := strings.IndexByte(s, '\n')
		if idx < 0 {
			b.partial.WriteString(s)
			return
		}
		b.partial.WriteString(s[:idx])
		b.done = append(b.done, strings.TrimSuffix(b.partial.String(), "\r"))
		b.partial.Reset()
		s = s[idx+1:]
	}
}

func (b *lineBuffer) lines() []string {
	out := append([]string(nil), b.done...)
	if b.partial.Len() > 0 {
		out = append(out, b.partial.String())
	}
	return out
}
