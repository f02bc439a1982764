package crawler

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/jobworker/helpers"
)

const minDescriptionBlock = 60

// Description prefers the JobPosting description from structured data and
// falls back to the first selector that yields content blocks.
func (s DetailSelectors) Description(doc *goquery.Document) (string, bool) {
	for _, obj := range jsonLDObjects(doc) {
		_, hasDesc := obj["description"]
		if obj["@type"] != "JobPosting" && !hasDesc {
			continue
		}
		if desc, ok := stringField(obj, "description"); ok {
			if text := stripHTML(desc); text != "" {
				return helpers.Truncate(text, MaxDescriptionLength), true
			}
		}
	}

	var chunks []string
	for _, sel := range s.DescriptionBlocks {
		doc.Find(sel).Each(func(_ int, el *goquery.Selection) {
			text := joinedText(el, " ")
			if utf8.RuneCountInString(text) > minDescriptionBlock {
				chunks = append(chunks, text)
			}
		})
		if len(chunks) > 0 {
			break
		}
	}
	if len(chunks) == 0 {
		return "", false
	}
	return helpers.Truncate(strings.Join(chunks, " "), MaxDescriptionLength), true
}

// ExtractDescription runs the description cascade with the default selectors
func ExtractDescription(doc *goquery.Document) (string, bool) {
	return DefaultDetailSelectors.Description(doc)
}
