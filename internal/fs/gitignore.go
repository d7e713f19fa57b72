package fs

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

// ignoreRules is one parsed .gitignore file. Patterns are evaluated in
// order; the last matching pattern wins so negations can re-include.
type ignoreRules struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	re      *regexp.Regexp
	negated bool
	dirOnly bool
}

// parseIgnoreRules parses .gitignore content. Invalid lines are skipped.
func parseIgnoreRules(data []byte) *ignoreRules {
	rules := &ignoreRules{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var p ignorePattern
		if strings.HasPrefix(line, "!") {
			p.negated = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			p.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if line == "" {
			continue
		}

		re, err := regexp.Compile(globToRegex(line))
		if err != nil {
			continue
		}
		p.re = re
		rules.patterns = append(rules.patterns, p)
	}
	return rules
}

// globToRegex translates a gitignore glob. A leading slash anchors the
// pattern to the directory holding the .gitignore; otherwise it matches at
// any depth.
func globToRegex(glob string) string {
	anchored := strings.HasPrefix(glob, "/") || strings.Contains(strings.TrimSuffix(glob, "/"), "/")
	glob = strings.TrimPrefix(glob, "/")

	expr := regexp.QuoteMeta(glob)
	expr = strings.ReplaceAll(expr, `\*\*/`, "(.*/)?")
	expr = strings.ReplaceAll(expr, `\*\*`, ".*")
	expr = strings.ReplaceAll(expr, `\*`, "[^/]*")
	expr = strings.ReplaceAll(expr, `\?`, "[^/]")

	if anchored {
		return "^" + expr + "($|/)"
	}
	return "(^|/)" + expr + "($|/)"
}

// match reports whether rel (slash separated, relative to the directory of
// the .gitignore) is ignored. The second result tells whether any pattern
// matched at all, so callers can fall through to parent rule sets.
func (r *ignoreRules) match(rel string, isDir bool) (ignored bool, matched bool) {
	if r == nil {
		return false, false
	}
	rel = strings.TrimPrefix(rel, "./")
	for _, p := range r.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		if p.re.MatchString(rel) {
			ignored = !p.negated
			matched = true
		}
	}
	return ignored, matched
}
