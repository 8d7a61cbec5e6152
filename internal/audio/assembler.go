package audio

import (
	"github.com/radio-t/doc-podcast/internal/content"
	"github.com/radio-t/doc-podcast/podcast"
)

// Assembler joins per-turn audio segments into one artifact. MP3 frames
// produced independently concatenate into a valid stream, so assembly is a
// straight byte concatenation with no re-encoding.
type Assembler struct {
	tp *content.TextProcessor
}

// NewAssembler creates a new audio assembler
func NewAssembler() *Assembler {
	return &Assembler{tp: content.NewTextProcessor()}
}

// Assemble concatenates the ordered per-turn audio buffers into one
// contiguous buffer.
func (a *Assembler) Assemble(turns []podcast.Turn) []byte {
	total := 0
	for _, t := range turns {
		total += len(t.Audio)
	}
	out := make([]byte, 0, total)
	for _, t := range turns {
		out = append(out, t.Audio...)
	}
	return out
}

// EstimateDuration estimates the artifact length in seconds from the source
// text word count. This is a pacing heuristic, not a decode of the audio.
func (a *Assembler) EstimateDuration(sourceText string) int {
	return a.tp.EstimateDuration(sourceText)
}
