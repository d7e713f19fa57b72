package secretdetect

import (
	"regexp"
)

var defaultPatterns = []Pattern{
	{Name: "AWS Access Key ID", Regex: regexp.MustCompile(`(A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA|ASIA)[A-Z0-9]{16}`)},
	{Name: "Anthropic API Key", Regex: regexp.MustCompile(`sk-ant-[a-zA-Z0-9]{2,8}-[a-zA-Z0-9_\-]{20,}`)},
	{Name: "OpenAI Project Key", Regex: regexp.MustCompile(`sk-proj-[a-zA-Z0-9_\-]{32,}`)},
	{Name: "OpenAI API Key", Regex: regexp.MustCompile(`sk-[a-zA-Z0-9\-]{20,}`)},
	{Name: "Google API Key", Regex: regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`)},
	{Name: "GitHub Token", Regex: regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36}`)},
	{Name: "Slack Token", Regex: regexp.MustCompile(`xox[bpas]-[0-9A-Za-z\-]{20,}`)},
	{Name: "Private Key", Regex: regexp.MustCompile(`-----BEGIN (?:RSA |OPENSSH |EC |PGP |DSA )?PRIVATE KEY(?: BLOCK)?-----`)},
	{Name: "Bearer Token", Regex: regexp.MustCompile(`(?i)\bbearer\s+([a-zA-Z0-9_\-.=+/]{16,})`), Group: 1},
	{Name: "Assigned Secret", Regex: regexp.MustCompile(`(?i)\b[a-z0-9_]*(?:api[_-]?key|secret|token|password|passwd)[a-z0-9_]*["']?\s*[:=]\s*["']([^"'\s]{8,})["']?`), Group: 1},
}

// DefaultPatterns returns the built-in credential patterns.
func DefaultPatterns() []Pattern {
	return append([]Pattern(nil), defaultPatterns...)
}
