package textseg

// ChunkLimit is the maximum chunk size in runes handed to the segmentation
// primitive in one call. Pathologically long segments are split at this
// ceiling rather than risking a runaway allocation in the segmenter.
const ChunkLimit = 30000

// Chunk is one piece of a split input together with the rune offset at
// which it begins in the original text.
type Chunk struct {
	Text   string
	Offset int
}

// ChunkText splits text into ChunkLimit-sized pieces. Text at or under the
// limit comes back as a single chunk at offset 0. Concatenating the chunks
// in order reproduces the input exactly.
func ChunkText(text string) []Chunk {
	runes := []rune(text)
	if len(runes) <= ChunkLimit {
		return []Chunk{{Text: text, Offset: 0}}
	}

	chunks := make([]Chunk, 0, (len(runes)+ChunkLimit-1)/ChunkLimit)
	for start := 0; start < len(runes); start += ChunkLimit {
		end := start + ChunkLimit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{Text: string(runes[start:end]), Offset: start})
	}
	return chunks
}
