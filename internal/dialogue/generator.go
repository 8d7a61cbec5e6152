package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/radio-t/doc-podcast/internal/content"
	"github.com/radio-t/doc-podcast/podcast"
)

//go:generate moq -out mocks/turn_model.go -pkg mocks -skip-ensure -fmt goimports . TurnModel

// TurnModel generates one freeform dialogue turn from a prompt and reports
// the token usage of the call.
type TurnModel interface {
	GenerateTurn(ctx context.Context, prompt string) (string, podcast.Usage, error)
}

// FallbackUtterance is spoken in place of a turn whose generation failed.
const FallbackUtterance = "I apologize, but I need to pass the conversation back"

// maxContextCarry bounds the accepted text carried into the next prompt
const maxContextCarry = 300

// RunState is the mutable per-invocation dialogue state threaded through the
// chunk loop: who speaks next and what was last said. One instance per run;
// concurrent runs must never share it.
type RunState struct {
	NextSpeaker  podcast.Speaker
	LastAccepted string
}

// NewRunState returns the state every run starts from: SpeakerA opens.
func NewRunState() *RunState {
	return &RunState{NextSpeaker: podcast.SpeakerA}
}

// Generator drives chunk-by-chunk dialogue generation, maintaining speaker
// alternation and conversational continuity across the loop.
type Generator struct {
	model     TurnModel
	sanitizer *Sanitizer
	tp        *content.TextProcessor
	log       zerolog.Logger
}

// NewGenerator creates a new dialogue generator
func NewGenerator(model TurnModel, log zerolog.Logger) *Generator {
	return &Generator{
		model:     model,
		sanitizer: NewSanitizer(),
		tp:        content.NewTextProcessor(),
		log:       log,
	}
}

// NextTurn produces the turn for one chunk. The sanitizer's detected speaker,
// not the expected one, decides who spoke and therefore who speaks next.
// A failed or empty model response is replaced by a fixed fallback utterance
// spoken by the expected speaker; the run always moves forward.
func (g *Generator) NextTurn(ctx context.Context, state *RunState, chunk podcast.Chunk, totalChunks int) (podcast.Turn, podcast.Usage) {
	expected := state.NextSpeaker
	prompt := g.buildPrompt(state, chunk, totalChunks)

	raw, usage, err := g.model.GenerateTurn(ctx, prompt)
	if err != nil || strings.TrimSpace(raw) == "" {
		if err == nil {
			err = fmt.Errorf("empty model response")
		}
		g.log.Warn().Err(err).Int("chunk", chunk.Index).
			Str("speaker", expected.Name()).Msg("generation failed, using fallback turn")

		turn := podcast.Turn{
			ChunkIndex:      chunk.Index,
			ExpectedSpeaker: expected,
			DetectedSpeaker: expected,
			CleanedText:     FallbackUtterance,
			Fallback:        true,
		}
		g.advance(state, expected, FallbackUtterance)
		return turn, usage
	}

	detected, cleaned := g.sanitizer.Sanitize(raw, expected)
	turn := podcast.Turn{
		ChunkIndex:      chunk.Index,
		ExpectedSpeaker: expected,
		DetectedSpeaker: detected,
		RawText:         raw,
		CleanedText:     cleaned,
	}
	g.advance(state, detected, cleaned)
	return turn, usage
}

// advance updates the run state after an accepted turn.
func (g *Generator) advance(state *RunState, spoke podcast.Speaker, accepted string) {
	state.NextSpeaker = spoke.Other()
	state.LastAccepted = g.tp.TruncateString(accepted, maxContextCarry)
}

// buildPrompt assembles the per-chunk prompt: fixed instructions, position
// framing, continuity context, source material and the speaker cue.
func (g *Generator) buildPrompt(state *RunState, chunk podcast.Chunk, totalChunks int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("You are writing one turn of a podcast conversation between two hosts, %s and %s. ",
		podcast.SpeakerA.Name(), podcast.SpeakerB.Name()))
	b.WriteString("They discuss a document in a natural, engaging way, reacting to each other like real people.\n\n")

	switch {
	case chunk.Index == 0:
		b.WriteString("This is the opening of the show: welcome the listeners and introduce the topic before getting into the material.\n")
	case chunk.Index == totalChunks-1:
		b.WriteString("This is the final part of the material: bring the conversation to a natural wrap-up and sign off.\n")
	default:
		b.WriteString("Continue the conversation naturally from where it left off.\n")
	}

	if state.LastAccepted != "" {
		b.WriteString(fmt.Sprintf("\nThe previous host just said: %q\n", state.LastAccepted))
	}

	b.WriteString("\nSource material for this part:\n")
	b.WriteString(chunk.Text)
	b.WriteString(fmt.Sprintf("\n\nRespond with a single turn spoken by %s.", state.NextSpeaker.Name()))

	return b.String()
}
