package service

import "strings"

// DefaultChunkSize is the number of words per chunk.
const DefaultChunkSize = 50

// ChunkText splits text on whitespace runs into chunks of at most size words,
// joined by single spaces. Empty and all-whitespace input yields no chunks.
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	words := strings.Fields(text)
	chunks := make([]string, 0, (len(words)+size-1)/size)
	for start := 0; start < len(words); start += size {
		end := min(start+size, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
