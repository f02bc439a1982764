package helpers

import (
	mathrand "math/rand"
	"strings"
	"time"
	"unicode/utf8"
)

// Truncate cuts s to at most n characters (runes, not bytes)
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// CollapseSpace trims s and folds every whitespace run into a single space
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Jitter returns base plus a random extra duration in [min, max)
func Jitter(base, min, max time.Duration) time.Duration {
	if max <= min {
		return base + min
	}
	return base + min + time.Duration(mathrand.Int63n(int64(max-min)))
}
