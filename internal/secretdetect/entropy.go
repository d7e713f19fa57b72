package secretdetect

import (
	"math"
	"strings"
)

// DefaultEntropyThreshold is a reasonable default for base64-like secrets.
const DefaultEntropyThreshold = 4.5

const minEntropyTokenLen = 20

// Entropy is the Shannon entropy of s in bits per rune.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}

	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}

	var entropy float64
	for _, count := range counts {
		freq := float64(count) / float64(total)
		entropy -= freq * math.Log2(freq)
	}
	return entropy
}

func isDelimiter(c rune) bool {
	return strings.ContainsRune(" \t\"'`=:,;<>()[]{}", c)
}

// highEntropyTokens returns byte ranges of tokens in line whose entropy
// exceeds threshold. Short tokens are ignored.
func highEntropyTokens(line string, threshold float64) [][2]int {
	var out [][2]int
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= minEntropyTokenLen && Entropy(line[start:end]) > threshold {
			out = append(out, [2]int{start, end})
		}
		start = -1
	}
	for i, r := range line {
		if isDelimiter(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(line))
	return out
}
