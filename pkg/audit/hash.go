package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"
)

// HashString returns the hex-encoded SHA-256 of s, or "" for an empty
// string.
func HashString(s string) string {
	if s == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Excerpt truncates s to at most max runes. A non-positive max returns "".
func Excerpt(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
