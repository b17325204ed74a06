package service

import (
	"regexp"
	"strings"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	nonISBNRegex    = regexp.MustCompile(`[^0-9X]+`)
)

// normalizeEmail lowercases and trims the provided email.
func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// normalizeISBN keeps digits and the ISBN-10 check character only.
func normalizeISBN(isbn string) string {
	return nonISBNRegex.ReplaceAllString(strings.ToUpper(isbn), "")
}

func normalizeGenre(genre string) string {
	return strings.ToLower(sanitizeString(genre))
}

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}
