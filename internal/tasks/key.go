package tasks

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const keySeparator = "|"

// Key returns the dedup key for a track: case-folded name and artist joined by "|".
//
// Whitespace and punctuation are kept as-is, so "Song (feat. X)" and "Song" are different keys.
func Key(name, artist string) string {
	// A Caser holds state and must not be shared across goroutines.
	lower := cases.Lower(language.Und)
	return lower.String(name) + keySeparator + lower.String(artist)
}
