package render

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
	"golang.org/x/net/html"
)

// DefaultPreviewWidth matches the preview length used by the email list
const DefaultPreviewWidth = 100

var (
	htmlTagHint = regexp.MustCompile(`(?i)<(html|body|div|p|br|span|table|a)\b`)
	spaceRun    = regexp.MustCompile(`[ \t\f\v]+`)
	blankRun    = regexp.MustCompile(`\n{3,}`)
)

// LooksLikeHTML reports whether body should be rendered as HTML
func LooksLikeHTML(body string) bool {
	return htmlTagHint.MatchString(body)
}

// PlainText converts an HTML body to readable text. Non-HTML input is only
// normalized.
func PlainText(body string) string {
	if !LooksLikeHTML(body) {
		return normalize(body)
	}
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return normalize(body)
	}
	var b strings.Builder
	collectText(&b, doc)
	return normalize(b.String())
}

func collectText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
	case html.ElementNode:
		switch strings.ToLower(n.Data) {
		case "head", "style", "script", "title", "meta", "link":
			return
		case "br":
			b.WriteByte('\n')
		case "li":
			b.WriteString("- ")
		case "p", "div", "section", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				collectText(b, c)
			}
			b.WriteString("\n\n")
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, "li") {
		b.WriteByte('\n')
	}
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRightFunc(spaceRun.ReplaceAllString(ln, " "), unicode.IsSpace)
	}
	s = strings.Join(lines, "\n")
	s = blankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Preview flattens body to a single line and truncates it to width display
// columns
func Preview(body string, width int) string {
	if width <= 0 {
		return ""
	}
	flat := strings.Join(strings.Fields(PlainText(body)), " ")
	return runewidth.Truncate(flat, width, "...")
}

// FitWidth truncates and pads s on the right to exactly width columns
func FitWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = runewidth.Truncate(s, width, "...")
	if pad := width - runewidth.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}
