package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radio-t/doc-podcast/internal/content"
	"github.com/radio-t/doc-podcast/podcast"
)

func TestVoiceFor(t *testing.T) {
	// exactly two voices, one per speaker, never the same
	voiceA := VoiceFor(podcast.SpeakerA)
	voiceB := VoiceFor(podcast.SpeakerB)
	assert.NotEmpty(t, voiceA)
	assert.NotEmpty(t, voiceB)
	assert.NotEqual(t, voiceA, voiceB)
}

func TestSynthesizer_Synthesize(t *testing.T) {
	wantAudio := []byte("fake mp3 frames")
	var gotRequest synthesizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.String(), "key=tts-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		resp := map[string]string{"audioContent": base64.StdEncoding.EncodeToString(wantAudio)}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	s := NewSynthesizer("tts-key", srv.URL, nil, zerolog.Nop())
	audio, err := s.Synthesize(context.Background(), "hello podcast listeners", podcast.SpeakerB)

	require.NoError(t, err)
	assert.Equal(t, wantAudio, audio)

	assert.Equal(t, "hello podcast listeners", gotRequest.Input.Text)
	assert.Equal(t, VoiceFor(podcast.SpeakerB), gotRequest.Voice.Name)
	assert.Equal(t, languageCode, gotRequest.Voice.LanguageCode)
	assert.Equal(t, audioEncoding, gotRequest.AudioConfig.AudioEncoding)
	assert.InDelta(t, speakingRate, gotRequest.AudioConfig.SpeakingRate, 0.001)
	assert.InDelta(t, pitch, gotRequest.AudioConfig.Pitch, 0.001)
}

func TestSynthesizer_TruncatesOversizedText(t *testing.T) {
	var gotLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req synthesizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotLen = len(req.Input.Text)
		resp := map[string]string{"audioContent": base64.StdEncoding.EncodeToString([]byte("x"))}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	s := NewSynthesizer("tts-key", srv.URL, nil, zerolog.Nop())
	long := strings.Repeat("a", content.MaxChunkBytes+1000)
	_, err := s.Synthesize(context.Background(), long, podcast.SpeakerA)

	require.NoError(t, err)
	assert.Equal(t, content.MaxChunkBytes, gotLen)
}

func TestSynthesizer_RetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewSynthesizer("tts-key", srv.URL, nil, zerolog.Nop())
	_, err := s.Synthesize(context.Background(), "text", podcast.SpeakerA)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to synthesize speech for Alex")
	assert.Equal(t, int32(defaultMaxRetries+1), calls.Load(), "bounded retries then give up")
}

func TestSynthesizer_EmptyAudioContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]string{}))
	}))
	defer srv.Close()

	s := NewSynthesizer("tts-key", srv.URL, nil, zerolog.Nop())
	_, err := s.Synthesize(context.Background(), "text", podcast.SpeakerA)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no audio content")
}
