package crawler

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/jobworker/logger"
)

// jsonLDObjects decodes every application/ld+json block in the document.
// Blocks that fail to parse are skipped; a top-level array contributes each of
// its object members.
func jsonLDObjects(doc *goquery.Document) []map[string]interface{} {
	var objects []map[string]interface{}
	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		var data interface{}
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			logger.ForScraper("jsonld").Debug().Err(err).Int("block", i).Msg("Skipping malformed structured data")
			return
		}
		switch v := data.(type) {
		case map[string]interface{}:
			objects = append(objects, v)
		case []interface{}:
			for _, item := range v {
				if obj, ok := item.(map[string]interface{}); ok {
					objects = append(objects, obj)
				}
			}
		}
	})
	return objects
}

// asObjects normalizes a value that may be a single object or a list of them
func asObjects(v interface{}) []map[string]interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return []map[string]interface{}{t}
	case []interface{}:
		var out []map[string]interface{}
		for _, item := range t {
			if obj, ok := item.(map[string]interface{}); ok {
				out = append(out, obj)
			}
		}
		return out
	}
	return nil
}

func stringField(obj map[string]interface{}, key string) (string, bool) {
	s, ok := obj[key].(string)
	return s, ok && s != ""
}
