package jobapi

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxSummary = 120

// summarize returns a one-line hint for a body that is not JSON. Gateways
// and load balancers answer with HTML error pages, so the page title is
// usually the most useful part.
func summarize(contentType string, body []byte) string {
	if looksLikeHTML(contentType, body) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err == nil {
			for _, sel := range []string{"title", "h1"} {
				if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
					return clip(strings.Join(strings.Fields(text), " "))
				}
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	return clip(text)
}

func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(string(body[:min(len(body), 64)])))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxSummary {
		return s
	}
	return string(r[:maxSummary]) + "..."
}
