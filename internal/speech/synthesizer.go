package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/radio-t/doc-podcast/internal/content"
	"github.com/radio-t/doc-podcast/podcast"
)

//go:generate moq -out mocks/http_client.go -pkg mocks -skip-ensure -fmt goimports . HTTPClient

// HTTPClient defines the interface for HTTP client operations
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// synthesis parameters: one compressed encoding at a fixed rate and neutral
// pitch, identical for every turn
const (
	defaultBaseURL = "https://texttospeech.googleapis.com"
	audioEncoding  = "MP3"
	speakingRate   = 1.0
	pitch          = 0.0
	languageCode   = "en-US"

	httpTimeout       = 30 * time.Second
	defaultMaxRetries = 2
)

// VoiceFor maps a speaker to its fixed synthesis voice. Exactly two voices
// exist and the binding never changes within a run.
func VoiceFor(s podcast.Speaker) string {
	if s == podcast.SpeakerA {
		return "en-US-Neural2-D"
	}
	return "en-US-Neural2-F"
}

// Synthesizer converts one cleaned turn of text into audio bytes via the
// text-to-speech REST API. Transient failures are retried a bounded number
// of times; an exhausted retry is fatal to the run and propagates.
type Synthesizer struct {
	apiKey     string
	baseURL    string
	httpClient HTTPClient
	maxRetries uint64
	log        zerolog.Logger
}

// NewSynthesizer creates a new speech synthesizer
func NewSynthesizer(apiKey, baseURL string, httpClient HTTPClient, log zerolog.Logger) *Synthesizer {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpTimeout}
	}
	return &Synthesizer{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		maxRetries: defaultMaxRetries,
		log:        log,
	}
}

// synthesizeRequest represents a request to the TTS API
type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate"`
		Pitch         float64 `json:"pitch"`
	} `json:"audioConfig"`
}

// Synthesize converts text into audio for the given speaker's voice. Text is
// truncated to the chunk byte maximum as a safety net in case cleaning or
// concatenation grew it past what segmentation guaranteed.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, speaker podcast.Speaker) ([]byte, error) {
	text = content.TruncateBytes(text, content.MaxChunkBytes)

	var request synthesizeRequest
	request.Input.Text = text
	request.Voice.LanguageCode = languageCode
	request.Voice.Name = VoiceFor(speaker)
	request.AudioConfig.AudioEncoding = audioEncoding
	request.AudioConfig.SpeakingRate = speakingRate
	request.AudioConfig.Pitch = pitch

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.maxRetries), ctx)
	audio, err := backoff.RetryWithData(func() ([]byte, error) {
		return s.callSynthesizeAPI(ctx, request)
	}, bo)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech for %s: %w", speaker.Name(), err)
	}
	return audio, nil
}

// callSynthesizeAPI makes a single request to the TTS API
func (s *Synthesizer) callSynthesizeAPI(ctx context.Context, request synthesizeRequest) ([]byte, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	url := s.baseURL + "/v1/text:synthesize?key=" + s.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TTS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		apiErr := fmt.Errorf("TTS request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(apiErr)
		}
		return nil, apiErr
	}

	var result struct {
		AudioContent string `json:"audioContent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode TTS response: %w", err)
	}
	if result.AudioContent == "" {
		return nil, backoff.Permanent(fmt.Errorf("no audio content in TTS response"))
	}

	audio, err := base64.StdEncoding.DecodeString(result.AudioContent)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode audio data: %w", err))
	}
	return audio, nil
}
