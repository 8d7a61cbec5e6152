package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"github.com/radio-t/doc-podcast/internal/ai"
	"github.com/radio-t/doc-podcast/internal/audio"
	"github.com/radio-t/doc-podcast/internal/billing"
	"github.com/radio-t/doc-podcast/internal/content"
	"github.com/radio-t/doc-podcast/internal/pipeline"
	"github.com/radio-t/doc-podcast/internal/progress"
	"github.com/radio-t/doc-podcast/internal/speech"
	"github.com/radio-t/doc-podcast/podcast"
)

// secrets and endpoint overrides come from the environment, everything else
// from flags
type envConfig struct {
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	TTSAPIKey     string `env:"TTS_API_KEY"`
	TTSBaseURL    string `env:"TTS_BASE_URL"`
}

func main() {
	inputFile := flag.String("file", "", "document to convert (txt or html)")
	outputFile := flag.String("mp3", "episode.mp3", "output MP3 file path")
	userID := flag.String("user", "local", "user id for usage accounting")
	ledgerPath := flag.String("ledger", "doc-podcast.db", "usage ledger database path")
	maxChunk := flag.Int("max-chunk", content.MaxChunkBytes, "maximum chunk size in bytes")
	articleLimit := flag.Int("articles-limit", 100, "articles allowed per billing period")
	unitLimit := flag.Int("units-limit", 10000, "billing units allowed per billing period")
	margin := flag.Float64("margin", billing.DefaultMargin, "margin over raw external cost")
	rate := flag.Float64("rate", billing.DefaultPerUnitRate, "raw cost per billing unit")
	play := flag.Bool("play", false, "play the episode locally after generation")
	dbg := flag.Bool("dbg", false, "debug logging")
	flag.Parse()

	logLevel := zerolog.InfoLevel
	if *dbg {
		logLevel = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(logLevel).With().Timestamp().Logger()

	var envCfg envConfig
	if err := env.Parse(&envCfg); err != nil {
		log.Fatal().Err(err).Msg("failed to parse environment")
	}
	if envCfg.OpenAIAPIKey == "" {
		log.Fatal().Msg("OPENAI_API_KEY is required")
	}
	if envCfg.TTSAPIKey == "" {
		log.Fatal().Msg("TTS_API_KEY is required")
	}

	config := podcast.Config{
		InputFile:     *inputFile,
		OutputFile:    *outputFile,
		UserID:        *userID,
		OpenAIAPIKey:  envCfg.OpenAIAPIKey,
		OpenAIBaseURL: envCfg.OpenAIBaseURL,
		TTSAPIKey:     envCfg.TTSAPIKey,
		TTSBaseURL:    envCfg.TTSBaseURL,
		LedgerPath:    *ledgerPath,
		MaxChunkBytes: *maxChunk,
		Play:          *play,
		ArticleLimit:  *articleLimit,
		UnitLimit:     *unitLimit,
		Margin:        *margin,
		PerUnitRate:   *rate,
	}
	if err := config.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(context.Background(), config, log); err != nil {
		log.Fatal().Err(err).Msg("application error")
	}
}

func run(ctx context.Context, config podcast.Config, log zerolog.Logger) error {
	// 1. read and extract the document
	f, err := os.Open(config.InputFile)
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	isHTML := strings.EqualFold(filepath.Ext(config.InputFile), ".html") ||
		strings.EqualFold(filepath.Ext(config.InputFile), ".htm")
	doc, err := content.NewDocumentExtractor().Extract(f, isHTML)
	if err != nil {
		return fmt.Errorf("failed to extract document: %w", err)
	}
	log.Info().Str("title", doc.Title).Int("bytes", len(doc.Text)).Msg("document extracted")

	// 2. wire the pipeline collaborators
	ledger, err := billing.OpenLedger(ctx, config.LedgerPath)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer ledger.Close()

	p := pipeline.New(pipeline.Params{
		Model:         ai.NewOpenAIService(config.OpenAIAPIKey, config.OpenAIBaseURL, nil, log),
		Synthesizer:   speech.NewSynthesizer(config.TTSAPIKey, config.TTSBaseURL, nil, log),
		Accountant:    billing.NewAccountant(config.Margin, config.PerUnitRate),
		Store:         ledger,
		Limits:        billing.Limits{Articles: config.ArticleLimit, Units: config.UnitLimit},
		MaxChunkBytes: config.MaxChunkBytes,
		Logger:        log,
	})

	// 3. run with progress printed as it happens
	prog := progress.NewBroadcaster()
	prog.Subscribe(func(percent int) {
		log.Info().Int("percent", percent).Msg("progress")
	})

	result, err := p.Run(ctx, pipeline.Request{UserID: config.UserID, Text: doc.Text, Progress: prog})
	if err != nil {
		var quotaErr *billing.QuotaExceededError
		if errors.As(err, &quotaErr) {
			return fmt.Errorf("%s quota reached (%d of %d used), not starting", quotaErr.Kind, quotaErr.Used, quotaErr.Limit)
		}
		return fmt.Errorf("pipeline failed: %w", err)
	}

	// 4. write the artifact
	if err := os.WriteFile(config.OutputFile, result.Artifact.Audio, 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("file", config.OutputFile).
		Int("duration_seconds", result.Artifact.DurationSeconds).
		Int("units", result.Units).Msg("episode saved")

	if config.Play {
		if err := audio.NewPlayer().Play(config.OutputFile); err != nil {
			return fmt.Errorf("failed to play episode: %w", err)
		}
	}
	return nil
}
