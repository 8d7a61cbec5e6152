package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/radio-t/doc-podcast/podcast"
)

//go:generate moq -out mocks/http_client.go -pkg mocks -skip-ensure -fmt goimports . HTTPClient

// HTTPClient defines the interface for HTTP client operations
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// openai api parameters
const (
	defaultBaseURL = "https://api.openai.com"
	chatModel      = "gpt-4o"
	temperature    = 0.7
	maxTurnTokens  = 400

	httpTimeout       = 2 * time.Minute
	defaultMaxRetries = 2
)

// OpenAIService generates dialogue turns via the chat completions API. One
// call produces one freeform turn plus its token usage. Transient failures
// are retried a bounded number of times; the exhausted-retry error surfaces
// to the caller, which decides whether the turn degrades to a fallback.
type OpenAIService struct {
	apiKey     string
	baseURL    string
	httpClient HTTPClient
	maxRetries uint64
	log        zerolog.Logger
}

// NewOpenAIService creates a new OpenAI service
func NewOpenAIService(apiKey, baseURL string, httpClient HTTPClient, log zerolog.Logger) *OpenAIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpTimeout}
	}
	return &OpenAIService{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		maxRetries: defaultMaxRetries,
		log:        log,
	}
}

// openAIMessage represents a message in the OpenAI API format
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIRequest represents a request to the OpenAI API
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type turnResult struct {
	text  string
	usage podcast.Usage
}

// GenerateTurn issues one blocking chat completion for the given prompt and
// returns the raw turn text plus token usage.
func (s *OpenAIService) GenerateTurn(ctx context.Context, prompt string) (string, podcast.Usage, error) {
	request := openAIRequest{
		Model:       chatModel,
		Messages:    []openAIMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTurnTokens,
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.maxRetries), ctx)
	result, err := backoff.RetryWithData(func() (turnResult, error) {
		return s.callChatAPI(ctx, request)
	}, bo)
	if err != nil {
		return "", podcast.Usage{}, fmt.Errorf("failed to generate turn: %w", err)
	}
	return result.text, result.usage, nil
}

// callChatAPI makes a single request to the chat completions API
func (s *OpenAIService) callChatAPI(ctx context.Context, request openAIRequest) (turnResult, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return turnResult{}, backoff.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/chat/completions", bytes.NewBuffer(requestBody))
	if err != nil {
		return turnResult{}, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return turnResult{}, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		apiErr := fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
		// client errors won't heal on retry, server errors and 429 might
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return turnResult{}, backoff.Permanent(apiErr)
		}
		return turnResult{}, apiErr
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return turnResult{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Choices) == 0 {
		return turnResult{}, backoff.Permanent(fmt.Errorf("no response from API"))
	}

	return turnResult{
		text: result.Choices[0].Message.Content,
		usage: podcast.Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
		},
	}, nil
}
