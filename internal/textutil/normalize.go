// Package textutil holds text normalization helpers shared by the
// extraction heuristics and the pattern registry.
package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe    = regexp.MustCompile(`\s+`)
	selectionMarkRe = regexp.MustCompile(`:(?:un)?selected:`)

	foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Fold lowercases s and strips diacritical marks, so "QUESTÃO" and
// "questao" compare equal. Used for keyword and title matching, never for
// position-sensitive work.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(folded)
}

// CollapseWhitespace squeezes runs of whitespace into single spaces and
// trims the ends.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// StripSelectionMarks removes the selection-mark artifacts layout providers
// leave in extracted text (":selected:", ":unselected:").
func StripSelectionMarks(s string) string {
	return selectionMarkRe.ReplaceAllString(s, "")
}

// IsPunctuationOnly reports whether s contains no letters or digits.
func IsPunctuationOnly(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// IsDigitsOnly reports whether s consists solely of digits (ignoring
// surrounding whitespace).
func IsDigitsOnly(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// WordCount counts whitespace-separated tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
