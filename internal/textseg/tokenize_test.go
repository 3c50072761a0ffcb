package textseg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNoSpaceLanguage(t *testing.T) {
	tests := []struct {
		locale string
		want   bool
	}{
		{"th", true},
		{"th-TH", true},
		{"ja", true},
		{"ja-JP", true},
		{"zh", true},
		{"zh-Hans", true},
		{"zh-TW", true},
		{"ZH-HANS", true},
		{"ko-KR", true},
		{"my", true},
		{"km-KH", true},
		{"lo", true},
		{"en", false},
		{"en-US", false},
		{"de-DE", false},
		{"fr", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsNoSpaceLanguage(tt.locale), "locale %q", tt.locale)
	}
}

func TestPrimarySubtag(t *testing.T) {
	assert.Equal(t, "zh", PrimarySubtag("zh-Hans"))
	assert.Equal(t, "zh", PrimarySubtag("ZH-TW"))
	assert.Equal(t, "en", PrimarySubtag("en"))
	// Unparseable tags fall back to a manual split.
	assert.Equal(t, "x!", PrimarySubtag("X!-weird"))
}

func TestChunkTextSingleChunk(t *testing.T) {
	chunks := ChunkText("short text")
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Offset)
}

func TestChunkTextAtLimit(t *testing.T) {
	s := strings.Repeat("a", ChunkLimit)
	chunks := ChunkText(s)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Offset)
}

func TestChunkTextReconstruction(t *testing.T) {
	s := strings.Repeat("あいうえお", 13000) // 65,000 runes
	chunks := ChunkText(s)
	require.Len(t, chunks, 3)

	var sb strings.Builder
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), ChunkLimit)
		sb.WriteString(c.Text)
	}
	assert.Equal(t, s, sb.String())

	assert.Equal(t, 0, chunks[0].Offset)
	assert.Equal(t, ChunkLimit, chunks[1].Offset)
	assert.Equal(t, 2*ChunkLimit, chunks[2].Offset)
}

func TestSegmenterWordsSpaceDelimited(t *testing.T) {
	cache := NewSegmenterCache()
	seg := cache.Get("en-US")

	tokens := seg.Words("the quick brown fox")
	texts := make([]string, len(tokens))
	for i, tok := range tokens {
		texts[i] = tok.Text
	}
	assert.Equal(t, []string{"the", "quick", "brown", "fox"}, texts)
	assert.Equal(t, 0, tokens[0].Start)
	assert.Equal(t, 4, tokens[1].Start)
}

func TestSegmenterWordsNoSpaceScript(t *testing.T) {
	cache := NewSegmenterCache()
	seg := cache.Get("ja")

	tokens := seg.Words("ウェブサイトにアクセス")
	require.NotEmpty(t, tokens)

	// Offsets are rune positions and tokens tile the word-like content.
	for _, tok := range tokens {
		assert.LessOrEqual(t, tok.Start+len([]rune(tok.Text)), len([]rune("ウェブサイトにアクセス")))
	}
}

func TestSegmenterBoundaries(t *testing.T) {
	cache := NewSegmenterCache()
	seg := cache.Get("en")

	bounds := seg.Boundaries("cat sat")
	assert.True(t, bounds[0])
	assert.True(t, bounds[3]) // end of "cat"
	assert.True(t, bounds[4]) // start of "sat"
	assert.True(t, bounds[7]) // end of input
	assert.False(t, bounds[1])
	assert.False(t, bounds[2])
}

func TestSegmenterCacheReuseAndClear(t *testing.T) {
	cache := NewSegmenterCache()

	a := cache.Get("zh-Hans")
	b := cache.Get("zh-TW")
	assert.Same(t, a, b, "variants of one primary subtag share a segmenter")
	assert.Equal(t, 1, cache.Len())

	cache.Get("th")
	assert.Equal(t, 2, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())

	c := cache.Get("zh")
	assert.NotSame(t, a, c)
}
