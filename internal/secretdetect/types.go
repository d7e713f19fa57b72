// Package secretdetect finds credentials in script sources and results so
// they can be elided before anything is written to a transcript.
package secretdetect

import (
	"regexp"
)

// Pattern is one credential shape. When Group is non-zero only that
// capture group is the secret; the rest of the match is context.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
	Group int
}

// Match locates a secret within scanned text by byte offsets.
type Match struct {
	Pattern string
	Start   int
	End     int
}
