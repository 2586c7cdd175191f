// Package team provides team-name normalization so index keys stay stable
// across provider spelling variance. The pipeline accepts any normalizer
// function; Normalize is the default.
package team

import "strings"

// Normalize canonicalizes a provider-reported team name: trims and collapses
// whitespace and strips characters that are unsafe in storage keys. It does
// NOT replace spaces — key generation does that, so display names survive.
func Normalize(name string) string {
	name = strings.TrimSpace(name)

	var b strings.Builder
	b.Grow(len(name))
	lastSpace := false
	for _, r := range name {
		switch {
		case r == ' ' || r == '\t' || r == '\n':
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
			}
			lastSpace = true
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			// drop characters that break object keys
			lastSpace = false
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimRight(b.String(), " ")
}
