// Package textnorm canonicalizes drill sentences for comparison.
package textnorm

import (
	"regexp"
	"strings"
)

var stripPunct = strings.NewReplacer(
	".", "",
	",", "",
	"!", "",
	"?", "",
	";", "",
	":", "",
)

// Normalize lowercases s, drops the punctuation set . , ! ? ; : and collapses
// whitespace. Two sentences are identical when their normalized forms are equal.
func Normalize(s string) string {
	s = stripPunct.Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

var (
	digitRun    = regexp.MustCompile(`[0-9]+`)
	prepPhrase  = regexp.MustCompile(`(^|\s)(?:am|um|bis|für|mit|von|zu|in|an|auf)\s+\S+`)
	weekdayName = regexp.MustCompile(`\b(?:montag|dienstag|mittwoch|donnerstag|freitag|samstag|sonntag|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
)

// Skeleton collapses numbers, preposition phrases and weekdays of an already
// normalized sentence into placeholders. Digits go first so "um 10" still
// reads as a preposition phrase.
func Skeleton(normalized string) string {
	s := digitRun.ReplaceAllString(normalized, "N")
	s = prepPhrase.ReplaceAllString(s, "${1}PREP")
	return weekdayName.ReplaceAllString(s, "DAY")
}
