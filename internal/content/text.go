package content

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/radio-t/doc-podcast/podcast"
)

// TextProcessor handles text-related operations: normalization, sentence
// segmentation into byte-bounded chunks, and the narration duration estimate.
type TextProcessor struct{}

// NewTextProcessor creates a new text processor
func NewTextProcessor() *TextProcessor {
	return &TextProcessor{}
}

// Normalize collapses all whitespace runs into single spaces, drops
// non-printable runes and trims the result.
func (tp *TextProcessor) Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsPrint(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SplitChunks segments normalized text into ordered chunks whose byte length
// never exceeds maxBytes. Sentences are kept whole where possible: the text
// is split on sentence terminators and sentences accumulate greedily into the
// current chunk until the next one would overflow. A single sentence longer
// than maxBytes is hard-split at the byte bound so the size guarantee holds
// for every chunk. The function is pure: the same text always yields the
// same chunk sequence.
func (tp *TextProcessor) SplitChunks(text string, maxBytes int) []podcast.Chunk {
	// a bound smaller than the widest rune could leave the hard-split loop
	// unable to make progress on multibyte text
	if maxBytes < utf8.UTFMax {
		maxBytes = MaxChunkBytes
	}

	var chunks []podcast.Chunk
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, podcast.Chunk{Index: len(chunks), Text: current.String()})
		current.Reset()
	}

	for _, sentence := range tp.splitSentences(text) {
		// oversized sentence: close the current chunk and emit the
		// sentence in maxBytes-sized pieces
		if len(sentence) > maxBytes {
			flush()
			for len(sentence) > maxBytes {
				piece := truncateToRuneBoundary(sentence, maxBytes)
				chunks = append(chunks, podcast.Chunk{Index: len(chunks), Text: piece})
				sentence = sentence[len(piece):]
			}
			if sentence != "" {
				current.WriteString(sentence)
			}
			continue
		}

		need := len(sentence)
		if current.Len() > 0 {
			need++ // joining space
		}
		if current.Len()+need > maxBytes {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	flush()

	return chunks
}

// splitSentences breaks text on sentence terminators, re-appending the
// terminator to each sentence. Trailing text without a terminator is kept
// as the final sentence.
func (tp *TextProcessor) splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			s := strings.TrimSpace(text[start : i+1])
			if s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// WordCount counts whitespace-separated words.
func (tp *TextProcessor) WordCount(text string) int {
	return len(strings.Fields(text))
}

// EstimateDuration estimates the narration length of text in whole seconds,
// assuming WordsPerSecond pace and rounding up.
func (tp *TextProcessor) EstimateDuration(text string) int {
	words := tp.WordCount(text)
	if words == 0 {
		return 0
	}
	return (words + WordsPerSecond - 1) / WordsPerSecond
}

// TruncateString truncates a string to the specified rune length and adds
// "..." if truncated. UTF-8 characters are never broken.
func (tp *TextProcessor) TruncateString(s string, maxLength int) string {
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLength]) + "..."
}

// TruncateBytes cuts s to at most maxBytes bytes without breaking a rune.
func TruncateBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return truncateToRuneBoundary(s, maxBytes)
}

func truncateToRuneBoundary(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
