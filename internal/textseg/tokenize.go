package textseg

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/words"
	"golang.org/x/text/language"
)

// noSpaceLanguages are the primary BCP-47 subtags of scripts that do not
// delimit words with spaces and need algorithmic segmentation.
var noSpaceLanguages = map[string]bool{
	"th": true, // Thai
	"ja": true, // Japanese
	"zh": true, // Chinese
	"ko": true, // Korean
	"my": true, // Burmese
	"km": true, // Khmer
	"lo": true, // Lao
}

// PrimarySubtag extracts the canonical primary language subtag from a
// BCP-47 locale, falling back to a manual split when the tag does not parse.
func PrimarySubtag(locale string) string {
	if tag, err := language.Parse(locale); err == nil {
		base, _ := tag.Base()
		return base.String()
	}
	primary, _, _ := strings.Cut(locale, "-")
	return strings.ToLower(primary)
}

// IsNoSpaceLanguage reports whether the locale's primary subtag names a
// script without inter-word spacing. zh-Hans and zh-TW both match zh.
func IsNoSpaceLanguage(locale string) bool {
	return noSpaceLanguages[PrimarySubtag(locale)]
}

// Token is one word-like segment of a text, with its rune offset in the
// original string.
type Token struct {
	Text  string
	Start int
}

// Segmenter produces word-boundary segmentation for one locale. Inputs over
// the chunk ceiling are split first; token offsets always refer to the full
// original text.
type Segmenter struct {
	locale string
}

// Words returns the word-like tokens of text (segments containing at least
// one letter or digit), in order.
func (s *Segmenter) Words(text string) []Token {
	var tokens []Token
	for _, ch := range ChunkText(text) {
		offset := ch.Offset
		seg := words.NewSegmenter([]byte(ch.Text))
		for seg.Next() {
			b := seg.Bytes()
			if wordLike(b) {
				tokens = append(tokens, Token{Text: string(b), Start: offset})
			}
			offset += utf8.RuneCount(b)
		}
	}
	return tokens
}

// Boundaries returns the set of rune offsets at which a segment boundary
// occurs in text, including the start and end of every segment. A substring
// match whose ends both land on boundaries is a whole-word match.
func (s *Segmenter) Boundaries(text string) map[int]bool {
	bounds := map[int]bool{0: true}
	for _, ch := range ChunkText(text) {
		offset := ch.Offset
		seg := words.NewSegmenter([]byte(ch.Text))
		for seg.Next() {
			offset += utf8.RuneCount(seg.Bytes())
			bounds[offset] = true
		}
	}
	return bounds
}

func wordLike(b []byte) bool {
	for _, r := range string(b) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// SegmenterCache hands out one Segmenter per locale, amortizing
// construction across the process lifetime. The cache is owned by whoever
// constructs it; Clear exists for test isolation.
type SegmenterCache struct {
	mu       sync.Mutex
	byLocale map[string]*Segmenter
}

// NewSegmenterCache returns an empty cache.
func NewSegmenterCache() *SegmenterCache {
	return &SegmenterCache{byLocale: make(map[string]*Segmenter)}
}

// Get returns the cached Segmenter for the locale's primary subtag,
// constructing it on first use.
func (c *SegmenterCache) Get(locale string) *Segmenter {
	key := PrimarySubtag(locale)

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.byLocale[key]; ok {
		return s
	}
	s := &Segmenter{locale: key}
	c.byLocale[key] = s
	return s
}

// Clear drops all cached segmenters.
func (c *SegmenterCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byLocale = make(map[string]*Segmenter)
}

// Len reports how many segmenters are cached.
func (c *SegmenterCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byLocale)
}
