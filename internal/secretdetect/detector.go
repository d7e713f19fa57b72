package secretdetect

import (
	"sort"
	"strings"
)

// Placeholder replaces every detected secret.
const Placeholder = "[REDACTED]"

// Detector scans text with a fixed pattern set and an optional entropy
// heuristic.
type Detector struct {
	patterns  []Pattern
	threshold float64
}

// NewDetector creates a detector with the default patterns and entropy
// check enabled.
func NewDetector() *Detector {
	return &Detector{patterns: DefaultPatterns(), threshold: DefaultEntropyThreshold}
}

// NewPatternDetector uses only the given patterns; entropy is disabled.
func NewPatternDetector(patterns ...Pattern) *Detector {
	return &Detector{patterns: patterns}
}

// Scan returns non-overlapping matches ordered by position.
func (d *Detector) Scan(content string) []Match {
	var matches []Match
	for _, p := range d.patterns {
		for _, loc := range p.Regex.FindAllStringSubmatchIndex(content, -1) {
			start, end := loc[0], loc[1]
			if p.Group > 0 && len(loc) > 2*p.Group+1 && loc[2*p.Group] >= 0 {
				start, end = loc[2*p.Group], loc[2*p.Group+1]
			}
			matches = append(matches, Match{Pattern: p.Name, Start: start, End: end})
		}
	}

	if d.threshold > 0 {
		offset := 0
		for _, line := range strings.SplitAfter(content, "\n") {
			for _, r := range highEntropyTokens(line, d.threshold) {
				m := Match{Pattern: "High Entropy String", Start: offset + r[0], End: offset + r[1]}
				if !overlapsAny(matches, m) {
					matches = append(matches, m)
				}
			}
			offset += len(line)
		}
	}

	return merge(matches)
}

// Redact replaces every detected secret with Placeholder.
func (d *Detector) Redact(content string) string {
	matches := d.Scan(content)
	if len(matches) == 0 {
		return content
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		sb.WriteString(content[last:m.Start])
		sb.WriteString(Placeholder)
		last = m.End
	}
	sb.WriteString(content[last:])
	return sb.String()
}

func overlapsAny(matches []Match, m Match) bool {
	for _, existing := range matches {
		if m.Start < existing.End && existing.Start < m.End {
			return true
		}
	}
	return false
}

// merge sorts matches and folds overlapping ranges so replacement never
// cuts into a previous placeholder.
func merge(matches []Match) []Match {
	if len(matches) < 2 {
		return matches
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End > matches[j].End
	})
	out := matches[:1]
	for _, m := range matches[1:] {
		prev := &out[len(out)-1]
		if m.Start < prev.End {
			if m.End > prev.End {
				prev.End = m.End
			}
			continue
		}
		out = append(out, m)
	}
	return out
}

var defaultDetector = NewDetector()

// Redact scrubs content with the default detector.
func Redact(content string) string {
	return defaultDetector.Redact(content)
}
