package rag

import "strings"

// Default chunking parameters, in words
const (
	DefaultChunkSize    = 200
	DefaultChunkOverlap = 40
)

// Chunk splits text into windows of size words, each sharing overlap words
// with the previous one. Whitespace is collapsed to single spaces.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
