package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/radio-t/doc-podcast/internal/audio"
	"github.com/radio-t/doc-podcast/internal/billing"
	"github.com/radio-t/doc-podcast/internal/content"
	"github.com/radio-t/doc-podcast/internal/dialogue"
	"github.com/radio-t/doc-podcast/internal/progress"
	"github.com/radio-t/doc-podcast/podcast"
)

//go:generate moq -out mocks/speech_synthesizer.go -pkg mocks -skip-ensure -fmt goimports . SpeechSynthesizer
//go:generate moq -out mocks/usage_store.go -pkg mocks -skip-ensure -fmt goimports . UsageStore

// SpeechSynthesizer converts one cleaned turn into audio bytes.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, speaker podcast.Speaker) ([]byte, error)
}

// UsageStore reads period usage and atomically commits a finished run.
type UsageStore interface {
	PeriodUsage(ctx context.Context, userID, period string) (billing.PeriodUsage, error)
	CommitRun(ctx context.Context, rec billing.ArtifactRecord) error
}

// Request is one pipeline invocation: a user, their normalized document text
// and an optional per-run progress broadcaster.
type Request struct {
	UserID   string
	Text     string
	Progress *progress.Broadcaster
}

// Result is what a successful run produces.
type Result struct {
	RunID    string
	Artifact podcast.Artifact
	Turns    []podcast.Turn
	Units    int
}

// Pipeline converts a document into a finished podcast artifact. The
// pipeline itself is stateless and safe for concurrent runs: all mutable
// per-run state (speaker alternation, continuity context, progress) lives in
// values created inside Run.
type Pipeline struct {
	generator     *dialogue.Generator
	synth         SpeechSynthesizer
	accountant    *billing.Accountant
	store         UsageStore
	assembler     *audio.Assembler
	tp            *content.TextProcessor
	limits        billing.Limits
	maxChunkBytes int
	log           zerolog.Logger
	clock         func() time.Time
}

// Params collects the pipeline's collaborators.
type Params struct {
	Model         dialogue.TurnModel
	Synthesizer   SpeechSynthesizer
	Accountant    *billing.Accountant
	Store         UsageStore
	Limits        billing.Limits
	MaxChunkBytes int
	Logger        zerolog.Logger
}

// New creates a new pipeline
func New(params Params) *Pipeline {
	if params.MaxChunkBytes <= 0 {
		params.MaxChunkBytes = content.MaxChunkBytes
	}
	return &Pipeline{
		generator:     dialogue.NewGenerator(params.Model, params.Logger),
		synth:         params.Synthesizer,
		accountant:    params.Accountant,
		store:         params.Store,
		assembler:     audio.NewAssembler(),
		tp:            content.NewTextProcessor(),
		limits:        params.Limits,
		maxChunkBytes: params.MaxChunkBytes,
		log:           params.Logger,
		clock:         time.Now,
	}
}

// Run executes one full pipeline invocation: validate, pre-flight quota
// check, segment, generate and synthesize turn by turn, assemble, commit.
// A quota violation terminates before any external call. A generation
// failure degrades a single turn; a synthesis failure aborts the run.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, content.ErrEmptyDocument
	}

	runID := uuid.NewString()
	log := p.log.With().Str("run_id", runID).Str("user_id", req.UserID).Logger()

	prog := req.Progress
	if prog == nil {
		prog = progress.NewBroadcaster()
	}

	// pre-flight: estimate from input size alone, reject before any
	// external call if either allowance would be exceeded
	period := billing.CurrentPeriod(p.clock())
	current, err := p.store.PeriodUsage(ctx, req.UserID, period)
	if err != nil {
		return nil, fmt.Errorf("read period usage: %w", err)
	}
	estimate := p.accountant.Estimate(len(text))
	if err := p.accountant.CheckQuota(current, estimate, p.limits); err != nil {
		log.Info().Err(err).Msg("run rejected by quota check")
		return nil, err
	}

	chunks := p.tp.SplitChunks(text, p.maxChunkBytes)
	if len(chunks) == 0 {
		return nil, content.ErrEmptyDocument
	}
	log.Info().Int("chunks", len(chunks)).Msg("starting generation")

	// chunk processing is strictly sequential: each prompt depends on the
	// previous accepted turn
	state := dialogue.NewRunState()
	turns := make([]podcast.Turn, 0, len(chunks))
	var usage podcast.Usage

	for i, chunk := range chunks {
		turn, turnUsage := p.generator.NextTurn(ctx, state, chunk, len(chunks))
		usage.Add(turnUsage)

		audioBytes, err := p.synth.Synthesize(ctx, turn.CleanedText, turn.DetectedSpeaker)
		if err != nil {
			return nil, fmt.Errorf("synthesize turn %d: %w", chunk.Index, err)
		}
		turn.Audio = audioBytes
		turns = append(turns, turn)

		prog.ChunkDone(i, len(chunks))
	}

	actual := p.accountant.Actual(usage)
	artifact := podcast.Artifact{
		Audio:           p.assembler.Assemble(turns),
		DurationSeconds: p.assembler.EstimateDuration(text),
		Usage:           actual,
	}

	units := p.accountant.Units(actual.TotalCost)
	rec := billing.ArtifactRecord{
		ID:              runID,
		UserID:          req.UserID,
		Period:          period,
		DurationSeconds: artifact.DurationSeconds,
		AudioBytes:      len(artifact.Audio),
		Usage:           actual,
		Units:           units,
	}
	if err := p.store.CommitRun(ctx, rec); err != nil {
		return nil, fmt.Errorf("commit run: %w", err)
	}

	prog.Finish()
	log.Info().Int("turns", len(turns)).Int("units", units).
		Int("duration_seconds", artifact.DurationSeconds).Msg("run completed")

	return &Result{RunID: runID, Artifact: artifact, Turns: turns, Units: units}, nil
}
