package podcast

import "fmt"

// Speaker identifies one of the two fixed podcast hosts. The pair is fixed
// for the lifetime of a run; every turn is attributed to exactly one of them.
type Speaker int

const (
	// SpeakerA is the host who opens every episode.
	SpeakerA Speaker = iota
	// SpeakerB is the second host.
	SpeakerB
)

// Name returns the on-air name of the speaker, the same name the dialogue
// model is asked to use for labels.
func (s Speaker) Name() string {
	if s == SpeakerA {
		return "Alex"
	}
	return "Sam"
}

// Other returns the opposite speaker.
func (s Speaker) Other() Speaker {
	if s == SpeakerA {
		return SpeakerB
	}
	return SpeakerA
}

func (s Speaker) String() string { return s.Name() }

// Speakers lists both hosts in on-air order.
func Speakers() []Speaker { return []Speaker{SpeakerA, SpeakerB} }

// Chunk is an ordered, immutable slice of the source document, the unit of
// work for one generation call. Byte length is bounded by the segmenter.
type Chunk struct {
	Index int
	Text  string
}

// Turn is one speaker's attributed segment of the generated dialogue.
// DetectedSpeaker is authoritative for voice selection; ExpectedSpeaker is
// what the prompt asked for. Fallback is set when the turn was substituted
// after a generation failure.
type Turn struct {
	ChunkIndex      int
	ExpectedSpeaker Speaker
	DetectedSpeaker Speaker
	RawText         string
	CleanedText     string
	Audio           []byte
	Fallback        bool
}

// Usage tracks token consumption and the raw external cost of a run. The
// same shape serves both the pre-flight estimate and the post-run actuals.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalCost    float64
}

// Add accumulates another usage record into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalCost += other.TotalCost
}

// Artifact is the final product of a successful run: one contiguous audio
// stream plus its estimated duration and the usage spent producing it.
// It is created exactly once and never mutated afterwards.
type Artifact struct {
	Audio           []byte
	DurationSeconds int
	Usage           Usage
}

// Config represents the application configuration
type Config struct {
	InputFile     string
	OutputFile    string
	UserID        string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	TTSAPIKey     string
	TTSBaseURL    string
	LedgerPath    string
	MaxChunkBytes int
	Play          bool // play the result locally after generation
	ArticleLimit  int
	UnitLimit     int
	Margin        float64
	PerUnitRate   float64
}

// Validate checks the parts of the config the pipeline cannot default.
func (c Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if c.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	return nil
}
