package crawler

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	relativeUnits = strings.NewReplacer(
		"hours", "h", "hour", "h", "hrs", "h",
		"days", "d", "day", "d",
		"weeks", "w", "week", "w",
		"months", "mo", "month", "mo",
		"years", "y", "year", "y", "yrs", "y", "yr", "y",
		"ago", "",
	)
	relativePattern = regexp.MustCompile(`^\s*(\d+)\s*(h|d|w|mo|y)\s*$`)

	timeNow = time.Now
)

// ParseRelativeTime converts text such as "3 days ago" into a calendar date
// relative to the current UTC day. Months are 30 days and years 365.
func ParseRelativeTime(text string) (time.Time, bool) {
	return ParseRelativeTimeAt(text, timeNow())
}

// ParseRelativeTimeAt is ParseRelativeTime with an explicit reference instant
func ParseRelativeTimeAt(text string, now time.Time) (time.Time, bool) {
	if text == "" {
		return time.Time{}, false
	}
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	s := strings.TrimSpace(relativeUnits.Replace(strings.ToLower(strings.TrimSpace(text))))
	match := relativePattern.FindStringSubmatch(s)
	if match == nil {
		if strings.Contains(s, "just") || s == "" {
			return today, true
		}
		return time.Time{}, false
	}

	qty, err := strconv.Atoi(match[1])
	if err != nil {
		return time.Time{}, false
	}

	var days int
	switch match[2] {
	case "h":
		days = 0
	case "d":
		days = qty
	case "w":
		days = qty * 7
	case "mo":
		days = qty * 30
	case "y":
		days = qty * 365
	}
	return today.AddDate(0, 0, -days), true
}
