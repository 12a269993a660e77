package utils

import "unicode"

// SplitText splits a long string into chunks of approximately 'chunkSize'
// characters with an 'overlap' preserving context at boundaries. When a chunk
// would cut a word in half, the boundary backs up to the nearest whitespace
// within the last tenth of the chunk.
func SplitText(text string, chunkSize int, overlap int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	totalLen := len(runes)

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // fallback if overlap >= chunkSize
	}

	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		} else {
			end = backUpToBoundary(runes, i, end, overlap)
		}

		chunks = append(chunks, string(runes[i:end]))

		if end == totalLen {
			break
		}
	}

	return chunks
}

// backUpToBoundary moves end left to the nearest whitespace. The search is
// capped by both a tenth of the chunk and the overlap, so no text can fall
// into the gap between consecutive chunks and unbroken text still splits.
func backUpToBoundary(runes []rune, start, end, overlap int) int {
	if end >= len(runes) || unicode.IsSpace(runes[end]) || unicode.IsSpace(runes[end-1]) {
		return end
	}
	maxBack := (end - start) / 10
	if overlap < maxBack {
		maxBack = overlap
	}
	for j := end - 1; j > end-1-maxBack; j-- {
		if unicode.IsSpace(runes[j]) {
			return j + 1
		}
	}
	return end
}
