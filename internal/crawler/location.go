package crawler

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/jobworker/helpers"
)

const labelScanLines = 160

// candidateSource yields zero or more candidate values for one field
type candidateSource func(*goquery.Document) []string

// Location resolves the posting location, trying structured data, taxonomy
// anchors and "City:"-style labels in that order. The word "remote" anywhere
// in the page is the last resort.
func (s DetailSelectors) Location(doc *goquery.Document) (string, bool) {
	sources := []candidateSource{
		locationFromJSONLD,
		s.locationFromLinks,
		locationFromLabels,
	}
	for _, source := range sources {
		var vals []string
		for _, v := range source(doc) {
			if v != "" && !looksLikeCountryCode(v) {
				vals = append(vals, v)
			}
		}
		if len(vals) > 0 {
			return helpers.Truncate(strings.Join(vals, ", "), MaxLocationLength), true
		}
	}

	if strings.Contains(strings.ToLower(joinedText(doc.Selection, " ")), "remote") {
		return "Remote", true
	}
	return "", false
}

// ExtractLocation runs the location cascade with the default selectors
func ExtractLocation(doc *goquery.Document) (string, bool) {
	return DefaultDetailSelectors.Location(doc)
}

func locationFromJSONLD(doc *goquery.Document) []string {
	var out []string
	for _, obj := range jsonLDObjects(doc) {
		jl, ok := obj["jobLocation"]
		if !ok || jl == nil {
			continue
		}
		for _, place := range asObjects(jl) {
			addr, ok := place["address"].(map[string]interface{})
			if !ok {
				continue
			}
			var pieces []string
			for _, key := range []string{"addressLocality", "addressRegion", "addressCountry"} {
				if v, ok := stringField(addr, key); ok {
					pieces = append(pieces, strings.TrimSpace(v))
				}
			}
			if len(pieces) > 0 {
				out = append(out, strings.Join(pieces, ", "))
			}
		}
	}
	return uniqueStrings(out)
}

func (s DetailSelectors) locationFromLinks(doc *goquery.Document) []string {
	var vals []string
	for _, sel := range s.LocationLinks {
		doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
			t := elementText(a)
			if t == "" || looksLikeCountryCode(t) || utf8.RuneCountInString(t) > 50 {
				return
			}
			vals = append(vals, t)
		})
	}
	return uniqueStrings(vals)
}

func locationFromLabels(doc *goquery.Document) []string {
	lines := textLines(doc.Selection.Nodes[0])
	if len(lines) > labelScanLines {
		lines = lines[:labelScanLines]
	}

	var city, country, region string
	for _, ln := range lines {
		low := strings.ToLower(ln)
		switch {
		case strings.HasPrefix(low, "city:"):
			city = labelValue(ln)
		case strings.HasPrefix(low, "country:"):
			country = labelValue(ln)
		case strings.HasPrefix(low, "region:"):
			region = labelValue(ln)
		case strings.Contains(low, "remote") && city == "" && country == "" && region == "":
			country = "Remote"
		}
	}

	switch {
	case city != "" && country != "":
		return []string{city + ", " + country}
	case city != "" && region != "":
		return []string{city + ", " + region}
	case country != "":
		return []string{country}
	case city != "":
		return []string{city}
	case region != "":
		return []string{region}
	}
	return nil
}

func labelValue(line string) string {
	_, value, _ := strings.Cut(line, ":")
	return strings.TrimSpace(value)
}

// uniqueStrings drops empty values and repeats, keeping first occurrences
func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
