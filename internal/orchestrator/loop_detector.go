package orchestrator

import (
	"regexp"
	"strings"
	"sync"

	"github.com/codefionn/selenai/internal/logger"
)

const (
	maxSentences  = 100   // rolling window of sentences
	maxTotalChars = 16384 // rolling window of characters
	loopThreshold = 10    // repetitions that count as a loop
	maxNGramSize  = 10
)

var sentenceRegex = regexp.MustCompile(`[.!?]+(?:\s+|["'\)]*\s+|["'\)]*$)`)

// LoopDetector notices a model that keeps producing the same sentences
// across the rounds of one turn.
type LoopDetector struct {
	mu         sync.Mutex
	sentences  []string
	totalChars int
}

// NewLoopDetector creates an empty detector.
func NewLoopDetector() *LoopDetector {
	return &LoopDetector{sentences: make([]string, 0, maxSentences)}
}

func splitSentences(text string) []string {
	parts := sentenceRegex.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		sentence := strings.Join(strings.Fields(part), " ")
		if sentence != "" {
			out = append(out, sentence)
		}
	}
	return out
}

func (ld *LoopDetector) push(sentence string) {
	ld.sentences = append(ld.sentences, sentence)
	ld.totalChars += len(sentence)
	for len(ld.sentences) > 0 && (len(ld.sentences) > maxSentences || ld.totalChars > maxTotalChars) {
		ld.totalChars -= len(ld.sentences[0])
		ld.sentences = ld.sentences[1:]
	}
}

// check counts every n-gram of the window and reports the first one seen
// more than loopThreshold times.
func (ld *LoopDetector) check() (bool, string) {
	n := len(ld.sentences)
	if n < 2 {
		return false, ""
	}
	limit := min(maxNGramSize, n)
	for size := 1; size <= limit; size++ {
		counts := make(map[string]int)
		for i := 0; i+size <= n; i++ {
			pattern := strings.Join(ld.sentences[i:i+size], " | ")
			counts[pattern]++
			if counts[pattern] > loopThreshold {
				logger.Warn("Loop detected: %d-gram pattern repeated %d times", size, counts[pattern])
				return true, pattern
			}
		}
	}
	return false, ""
}

// AddText feeds assistant text and reports whether it is now repeating.
func (ld *LoopDetector) AddText(text string) (bool, string) {
	ld.mu.Lock()
	defer ld.mu.Unlock()

	added := false
	for _, sentence := range splitSentences(text) {
		ld.push(sentence)
		added = true
	}
	if !added {
		return false, ""
	}
	return ld.check()
}

// Reset clears the window.
func (ld *LoopDetector) Reset() {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	ld.sentences = ld.sentences[:0]
	ld.totalChars = 0
}
