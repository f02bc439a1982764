package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"sjsage522/jobworker/helpers"
)

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2,3}(?:\s+[A-Z]{2,3})*$`)

// looksLikeCountryCode matches bare codes such as "UK", "HK" or "GB UK"
func looksLikeCountryCode(s string) bool {
	return countryCodePattern.MatchString(strings.TrimSpace(s))
}

// skippedTextParents never contribute visible text
var skippedTextParents = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// textPieces returns every non-empty, trimmed text node under n in document order
func textPieces(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedTextParents[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				out = append(out, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// textLines splits the text under n into trimmed, non-empty lines
func textLines(n *html.Node) []string {
	var out []string
	for _, piece := range textPieces(n) {
		for _, ln := range strings.Split(piece, "\n") {
			if ln = strings.TrimSpace(ln); ln != "" {
				out = append(out, ln)
			}
		}
	}
	return out
}

// joinedText joins the text pieces of every node in the selection with sep
func joinedText(sel *goquery.Selection, sep string) string {
	var pieces []string
	for _, n := range sel.Nodes {
		pieces = append(pieces, textPieces(n)...)
	}
	return strings.Join(pieces, sep)
}

// elementText is the whitespace-normalized text of a single element
func elementText(sel *goquery.Selection) string {
	return helpers.CollapseSpace(joinedText(sel, " "))
}

// firstText returns the text of the first element matched by each selector in
// turn, stopping at the first non-empty one
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if t := elementText(doc.Find(sel).First()); t != "" {
			return t
		}
	}
	return ""
}

// stripHTML reduces an HTML fragment to its space-joined text
func stripHTML(fragment string) string {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.Join(textPieces(root), " ")
}
