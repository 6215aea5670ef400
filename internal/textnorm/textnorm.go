// Package textnorm normalizes strings scraped from rendered pages.
package textnorm

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize composes s to NFC, collapses every run of Unicode whitespace
// (spaces, tabs, newlines, NBSP) into a single space and trims both ends.
// It never fails and Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// Key returns the dedup key for a post body.
func Key(s string) string {
	return Normalize(s)
}
