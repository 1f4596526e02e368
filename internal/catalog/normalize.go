package catalog

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	nonWordRegex        = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	genreSeparatorRegex = regexp.MustCompile(`[|,]`)
)

// Normalize lowercases text, strips everything that is not a word character
// or whitespace and collapses whitespace runs. Index build and query time must
// both go through it so tokens line up.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFC.String(text)
	text = strings.ToLower(text)
	text = nonWordRegex.ReplaceAllString(text, "")

	return strings.Join(strings.Fields(text), " ")
}

// NormalizeGenre normalizes a pipe or comma separated genre list into space
// separated terms.
func NormalizeGenre(genre string) string {
	return Normalize(genreSeparatorRegex.ReplaceAllString(genre, " "))
}

// SplitGenres splits a multi-genre field on commas and pipes.
func SplitGenres(genre string) []string {
	var genres []string
	for _, part := range genreSeparatorRegex.Split(genre, -1) {
		part = strings.TrimSpace(part)
		if part != "" {
			genres = append(genres, part)
		}
	}
	return genres
}
