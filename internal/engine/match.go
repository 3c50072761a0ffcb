package engine

import (
	"unicode"

	"github.com/linguaflow/qa-pipeline/internal/textseg"
)

// findTerm returns the rune offsets at which term occurs in text as a whole
// word. Text is normalized first so markup never participates in a match,
// and offsets stay valid against the original string. No-space locales use
// tokenizer boundaries; space-delimited locales use a letter/digit boundary
// test on the adjacent runes.
func findTerm(text, term, locale string, caseSensitive bool, cache *textseg.SegmenterCache) []int {
	if term == "" || text == "" {
		return nil
	}

	norm := textseg.Normalize(text)
	hay := []rune(norm)
	needle := []rune(term)
	if !caseSensitive {
		hay = lowerRunes(hay)
		needle = lowerRunes(needle)
	}

	raw := indexAll(hay, needle)
	if len(raw) == 0 {
		return nil
	}

	var hits []int
	if textseg.IsNoSpaceLanguage(locale) {
		bounds := cache.Get(locale).Boundaries(norm)
		for _, start := range raw {
			if bounds[start] && bounds[start+len(needle)] {
				hits = append(hits, start)
			}
		}
		return hits
	}

	for _, start := range raw {
		end := start + len(needle)
		startOK := start == 0 || !wordRune(hay[start-1])
		endOK := end == len(hay) || !wordRune(hay[end])
		if startOK && endOK {
			hits = append(hits, start)
		}
	}
	return hits
}

// containsTerm reports whether term occurs in text as a whole word.
func containsTerm(text, term, locale string, caseSensitive bool, cache *textseg.SegmenterCache) bool {
	return len(findTerm(text, term, locale, caseSensitive, cache)) > 0
}

// indexAll returns every start offset of needle in hay, including
// overlapping occurrences.
func indexAll(hay, needle []rune) []int {
	if len(needle) == 0 || len(needle) > len(hay) {
		return nil
	}
	var offsets []int
	for i := 0; i+len(needle) <= len(hay); i++ {
		match := true
		for j := range needle {
			if hay[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			offsets = append(offsets, i)
		}
	}
	return offsets
}

// lowerRunes lowercases rune by rune, preserving rune count.
func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func wordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

const excerptRadius = 30

// excerpt returns a window of text around the rune span [start, start+length).
func excerpt(text string, start, length int) string {
	runes := []rune(text)
	lo := start - excerptRadius
	if lo < 0 {
		lo = 0
	}
	hi := start + length + excerptRadius
	if hi > len(runes) {
		hi = len(runes)
	}
	if lo >= hi {
		return ""
	}
	return string(runes[lo:hi])
}
