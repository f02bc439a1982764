package crawler

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var uiClassPattern = regexp.MustCompile(`(?i)\b(btn|button|menu|alert|apply)\b`)

// UI phrases that the chip selectors also pick up
var badTagPhrases = map[string]bool{
	"open menu":           true,
	"copy link":           true,
	"get started":         true,
	"get free job alerts": true,
	"apply":               true,
	"apply for this job":  true,
	"view post":           true,
	"menu":                true,
	"share":               true,
}

// Tags collects taxonomy links and chip-like labels, in selector order,
// deduplicated and capped at MaxTags.
func (s DetailSelectors) Tags(doc *goquery.Document) []string {
	var tags []string
	for _, sel := range s.TagLinks {
		doc.Find(sel).Each(func(_ int, el *goquery.Selection) {
			if insideLocation(el) {
				return
			}
			if class, _ := el.Attr("class"); uiClassPattern.MatchString(class) {
				return
			}
			t := joinedText(el, " ")
			if t == "" || utf8.RuneCountInString(t) > MaxTagLength {
				return
			}
			if badTagPhrases[strings.ToLower(t)] || looksLikeCountryCode(t) {
				return
			}
			tags = append(tags, t)
		})
	}

	tags = uniqueStrings(tags)
	if len(tags) > MaxTags {
		tags = tags[:MaxTags]
	}
	return tags
}

// ExtractTags runs tag extraction with the default selectors
func ExtractTags(doc *goquery.Document) []string {
	return DefaultDetailSelectors.Tags(doc)
}

func insideLocation(el *goquery.Selection) bool {
	found := false
	el.Parents().EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if class, ok := p.Attr("class"); ok && strings.Contains(strings.ToLower(class), "location") {
			found = true
			return false
		}
		return true
	})
	return found
}
