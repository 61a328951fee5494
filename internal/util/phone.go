package util

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D+`)

const (
	minPhoneDigits = 8
	maxPhoneDigits = 15
)

// NormalizePhone strips everything but digits and bounds the length.
// Returns "" when the input does not look like a usable phone number,
// in which case dedup by phone is skipped.
func NormalizePhone(raw string) string {
	s := nonDigits.ReplaceAllString(strings.TrimSpace(raw), "")
	if len(s) < minPhoneDigits || len(s) > maxPhoneDigits {
		return ""
	}
	return s
}
