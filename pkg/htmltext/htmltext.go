// Package htmltext converts rich-text job descriptions and resumes into plain text.
//
// Block elements become line breaks, list items are prefixed with "- ", and
// scripts and styles are dropped. Input without markup is only whitespace-normalized.
package htmltext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// lineBreak marks block boundaries while whitespace is collapsed. It is a
// private-use rune, so it never appears in real input.
const lineBreak = "\uE000"

const blockSelector = "p, div, section, article, header, footer, li, ul, ol, table, tr, h1, h2, h3, h4, h5, h6, pre, blockquote"

// ToText returns the readable text of an HTML fragment or document
func ToText(s string) (string, error) {
	if !strings.ContainsAny(s, "<&") {
		return normalize(s), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, template").Remove()
	doc.Find("br").ReplaceWithHtml(lineBreak)
	doc.Find("li").PrependHtml("- ")
	doc.Find(blockSelector).Each(func(_ int, sel *goquery.Selection) {
		sel.PrependHtml(lineBreak)
		sel.AppendHtml(lineBreak)
	})

	return normalize(doc.Text()), nil
}

// MustText is ToText for callers that prefer the raw input over an error
func MustText(s string) string {
	text, err := ToText(s)
	if err != nil {
		return normalize(s)
	}
	return text
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if !strings.Contains(s, lineBreak) {
		s = strings.ReplaceAll(s, "\n", lineBreak)
	}
	s = strings.Join(strings.Fields(s), " ")

	var lines []string
	for _, line := range strings.Split(s, lineBreak) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
