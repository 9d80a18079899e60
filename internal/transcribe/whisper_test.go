package transcribe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ymiyake/murmur/internal/record"
)

func testClip() record.Clip {
	return record.Clip{PCM: []byte{1, 0, 2, 0, 3, 0, 4, 0}, SampleRate: 16000}
}

func TestWhisperTranscribe(t *testing.T) {
	var gotAuth, gotModel string
	var gotFile []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFile, err = io.ReadAll(file)
		require.NoError(t, err)

		_ = json.NewEncoder(w).Encode(map[string]string{
			"text":     "hello world",
			"language": "en",
		})
	}))
	defer server.Close()

	client, err := NewWhisper(WhisperConfig{
		Endpoint: server.URL,
		APIKey:   "test-key",
	})
	require.NoError(t, err)

	result, err := client.Transcribe(context.Background(), testClip())
	require.NoError(t, err)
	require.Equal(t, "hello world", result.Text)
	require.Equal(t, "en", result.Language)

	require.Equal(t, "Bearer test-key", gotAuth)
	require.Equal(t, "whisper-1", gotModel)
	// Uploaded as WAV: 44-byte header plus the raw PCM.
	require.Len(t, gotFile, 44+len(testClip().PCM))
	require.Equal(t, "RIFF", string(gotFile[0:4]))
}

func TestWhisperTranscribeLanguageField(t *testing.T) {
	var gotLanguage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotLanguage = r.FormValue("language")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "ok"})
	}))
	defer server.Close()

	client, err := NewWhisper(WhisperConfig{Endpoint: server.URL, APIKey: "k", Language: "ja"})
	require.NoError(t, err)

	_, err = client.Transcribe(context.Background(), testClip())
	require.NoError(t, err)
	require.Equal(t, "ja", gotLanguage)
}

func TestWhisperTranscribeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewWhisper(WhisperConfig{Endpoint: server.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = client.Transcribe(context.Background(), testClip())
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestNewWhisperRequiresAPIKey(t *testing.T) {
	_, err := NewWhisper(WhisperConfig{})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestDisabledTranscriber(t *testing.T) {
	_, err := Disabled{}.Transcribe(context.Background(), testClip())
	require.ErrorIs(t, err, ErrNotConfigured)
}
