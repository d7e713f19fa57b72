package htmlconv

import (
	"strings"
	"testing"
)

func TestIsHTML(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		expected    bool
	}{
		{"html content type", "plain", "text/html; charset=utf-8", true},
		{"xhtml content type", "", "application/xhtml+xml", true},
		{"json content type", "<div><p>x</p></div>", "application/json", false},
		{"doctype sniffed", "<!DOCTYPE html><html></html>", "", true},
		{"many tags sniffed", "<span>a</span><b>b</b><i>c</i>", "", true},
		{"two tags with structure", "<div>x</div> and <em>y</em>", "", true},
		{"plain text", "just some text", "", false},
		{"single tag", "a <b>bold</b> word", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHTML(tt.body, tt.contentType); got != tt.expected {
				t.Errorf("IsHTML() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestToMarkdown(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		contentType     string
		expectConverted bool
		contains        []string
		absent          []string
	}{
		{
			name:            "headings and paragraphs",
			body:            "<h1>Title</h1><p>Paragraph text</p>",
			contentType:     "text/html",
			expectConverted: true,
			contains:        []string{"# Title", "Paragraph text"},
		},
		{
			name:            "links",
			body:            "<p>See <a href='https://example.com'>this link</a></p>",
			contentType:     "text/html",
			expectConverted: true,
			contains:        []string{"[this link](https://example.com)"},
		},
		{
			name:            "plain text untouched",
			body:            "This is plain text",
			contentType:     "text/plain",
			expectConverted: false,
			contains:        []string{"This is plain text"},
		},
		{
			name: "navigation and scripts dropped",
			body: `<!DOCTYPE html>
<html>
<head><title>Test</title><script>var x = 1;</script></head>
<body>
<nav><a href="/">Home</a></nav>
<main><h1>Main Title</h1><p>This is a <strong>test</strong> paragraph.</p></main>
<footer>Copyright</footer>
</body>
</html>`,
			expectConverted: true,
			contains:        []string{"# Main Title", "**test**"},
			absent:          []string{"var x", "Copyright", "Home"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, converted := ToMarkdown(tt.body, tt.contentType)
			if converted != tt.expectConverted {
				t.Errorf("converted = %v, want %v", converted, tt.expectConverted)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(out, unwanted) {
					t.Errorf("output unexpectedly contains %q:\n%s", unwanted, out)
				}
			}
		})
	}
}
