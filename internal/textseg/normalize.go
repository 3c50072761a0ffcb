// Package textseg provides the text primitives the rule matching engine
// depends on: markup-preserving normalization, input chunking, and
// script-aware word segmentation for languages without inter-word spaces.
package textseg

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// Inline tag spans: <b>, </seg>, <ph id="1"/>.
	tagPattern = regexp.MustCompile(`<[^<>]*>`)
	// Curly-brace placeholders up to 50 chars inside the braces: {0}, {name}.
	placeholderPattern = regexp.MustCompile(`\{[^{}]{0,50}\}`)
	// printf-style format specifiers: %s, %d, %1$s, %.2f, %%.
	printfPattern = regexp.MustCompile(`%(?:\d+\$)?[-+0#]*\d*(?:\.\d+)?[sdiufFgGeExXoc%]`)
)

// Normalize replaces every recognized markup construct in text with an
// equal-length run of spaces, leaving all other characters untouched. Rune
// positions in the result line up exactly with the input, so a match offset
// in the normalized text maps straight back to the original string.
func Normalize(text string) string {
	if text == "" {
		return text
	}
	out := text
	for _, p := range []*regexp.Regexp{tagPattern, placeholderPattern, printfPattern} {
		out = p.ReplaceAllStringFunc(out, blank)
	}
	return out
}

func blank(match string) string {
	return strings.Repeat(" ", utf8.RuneCountInString(match))
}
