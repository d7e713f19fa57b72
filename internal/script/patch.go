package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// applyPatch applies a single-file unified diff to original. Every hunk's
// context and removed lines must match the file; a hunk that moved is
// searched for after the previous one.
func applyPatch(original, diffText string) (string, error) {
	if !strings.HasPrefix(diffText, "---") && !strings.HasPrefix(diffText, "diff ") {
		diffText = "--- a/file\n+++ b/file\n" + diffText
	}
	fileDiff, err := diff.ParseFileDiff([]byte(diffText))
	if err != nil {
		return "", fmt.Errorf("failed to parse unified diff: %w", err)
	}
	if len(fileDiff.Hunks) == 0 {
		return "", errors.New("diff contains no hunks")
	}

	lines := splitLines(original)
	result := make([]string, 0, len(lines))
	pos := 0

	for n, hunk := range fileDiff.Hunks {
		oldLines, newLines, err := hunkLines(hunk.Body)
		if err != nil {
			return "", fmt.Errorf("hunk %d: %w", n+1, err)
		}

		start := int(hunk.OrigStartLine) - 1
		if hunk.OrigLines == 0 {
			// pure insertion after OrigStartLine
			start = int(hunk.OrigStartLine)
		}
		at := locate(lines, oldLines, start, pos)
		if at < 0 {
			return "", fmt.Errorf("hunk %d does not match the file near line %d", n+1, hunk.OrigStartLine)
		}

		result = append(result, lines[pos:at]...)
		result = append(result, newLines...)
		pos = at + len(oldLines)
	}
	result = append(result, lines[pos:]...)

	out := strings.Join(result, "\n")
	if len(result) > 0 && (original == "" || strings.HasSuffix(original, "\n")) {
		out += "\n"
	}
	return out, nil
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func hunkLines(body []byte) (oldLines, newLines []string, err error) {
	for _, line := range splitLines(string(body)) {
		if line == "" {
			// blank context line whose leading space was stripped
			oldLines = append(oldLines, "")
			newLines = append(newLines, "")
			continue
		}
		switch line[0] {
		case ' ':
			oldLines = append(oldLines, line[1:])
			newLines = append(newLines, line[1:])
		case '-':
			oldLines = append(oldLines, line[1:])
		case '+':
			newLines = append(newLines, line[1:])
		case '\\':
			// "\ No newline at end of file"
		default:
			return nil, nil, fmt.Errorf("malformed line %q", line)
		}
	}
	return oldLines, newLines, nil
}

// locate returns where want occurs in lines, preferring start, never
// before floor. -1 means no match.
func locate(lines, want []string, start, floor int) int {
	if start < floor {
		start = floor
	}
	if start > len(lines) {
		start = len(lines)
	}
	if len(want) == 0 {
		return start
	}
	if matchesAt(lines, want, start) {
		return start
	}
	for i := floor; i+len(want) <= len(lines); i++ {
		if matchesAt(lines, want, i) {
			return i
		}
	}
	return -1
}

func matchesAt(lines, want []string, at int) bool {
	if at < 0 || at+len(want) > len(lines) {
		return false
	}
	for i, w := range want {
		if strings.TrimRight(lines[at+i], "\r") != w {
			return false
		}
	}
	return true
}
