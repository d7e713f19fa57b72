// Package htmlconv turns fetched HTML pages into markdown that is cheaper
// for a model to read.
package htmlconv

import (
	"bytes"
	"mime"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/codefionn/selenai/internal/logger"
	"golang.org/x/net/html"
)

var (
	tagPattern       = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9]*)\b[^>]*>`)
	blankRunPattern  = regexp.MustCompile(`\n{3,}`)
	structuralMarker = []string{"<body", "<div", "<table", "<ul>", "<ol>", "<h1", "<h2", "<p>"}
)

// tagThreshold is how many tags make untyped text count as HTML.
const tagThreshold = 3

// dropped elements never carry page content
var dropped = map[string]bool{
	"script": true, "style": true, "noscript": true, "meta": true,
	"link": true, "head": true, "header": true, "footer": true,
	"nav": true, "aside": true, "iframe": true, "svg": true, "form": true,
}

var contentHints = []string{
	"content", "main", "article", "post", "entry", "story",
	"body-content", "page-content", "main-content",
}

// ToMarkdown converts body to markdown when the content type (or, when the
// type is missing, the body itself) says it is HTML. The second result
// reports whether a conversion happened; on failure body is returned as is.
func ToMarkdown(body, contentType string) (string, bool) {
	if !IsHTML(body, contentType) {
		return body, false
	}

	cleaned, err := extractContent(body)
	if err != nil {
		logger.Warn("htmlconv: failed to clean HTML: %v", err)
		cleaned = body
	}

	markdown, err := htmltomarkdown.ConvertString(cleaned)
	if err != nil {
		logger.Warn("htmlconv: conversion failed: %v", err)
		return body, false
	}
	markdown = strings.TrimSpace(blankRunPattern.ReplaceAllString(markdown, "\n\n"))

	logger.Debug("htmlconv: %d bytes of HTML -> %d bytes of markdown", len(body), len(markdown))
	return markdown, true
}

// IsHTML decides from the media type, falling back to sniffing the text.
func IsHTML(body, contentType string) bool {
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			return mediaType == "text/html" || mediaType == "application/xhtml+xml"
		}
	}
	return looksLikeHTML(body)
}

func looksLikeHTML(input string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		return true
	}

	tags := len(tagPattern.FindAllStringIndex(input, tagThreshold))
	if tags >= tagThreshold {
		return true
	}
	if tags < 2 {
		return false
	}
	for _, marker := range structuralMarker {
		if strings.Contains(trimmed, marker) {
			return true
		}
	}
	return false
}

// extractContent parses the page, picks the main content element and
// strips navigation and non-content nodes from it.
func extractContent(input string) (string, error) {
	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return input, err
	}

	content := mainContent(doc)
	prune(content)

	var buf bytes.Buffer
	if err := html.Render(&buf, content); err != nil {
		return input, err
	}
	return buf.String(), nil
}

// mainContent prefers <main>, then <article>, then an element whose id or
// class hints at content, then <body>.
func mainContent(doc *html.Node) *html.Node {
	var mainEl, article, hinted, body *html.Node

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "main":
				if mainEl == nil {
					mainEl = n
				}
			case "article":
				if article == nil {
					article = n
				}
			case "body":
				if body == nil {
					body = n
				}
			default:
				if hinted == nil && hasContentHint(n) {
					hinted = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, n := range []*html.Node{mainEl, article, hinted, body} {
		if n != nil {
			return n
		}
	}
	return doc
}

func hasContentHint(n *html.Node) bool {
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if key != "id" && key != "class" {
			continue
		}
		for _, word := range strings.Fields(strings.ToLower(attr.Val)) {
			for _, hint := range contentHints {
				if strings.Contains(word, hint) {
					return true
				}
			}
		}
	}
	return false
}

func prune(n *html.Node) {
	child := n.FirstChild
	for child != nil {
		next := child.NextSibling
		if child.Type == html.ElementNode && dropped[strings.ToLower(child.Data)] {
			n.RemoveChild(child)
		} else {
			prune(child)
		}
		child = next
	}
}
