package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const whisperSRT = `1
00:00:00,000 --> 00:00:02,500
Hello there.

2
00:00:02,500 --> 00:00:04,000
General Kenobi.
`

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3fake-audio"), 0o644))
	return path
}

func TestWhisperTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			assert.Equal(t, "whisper-1", r.FormValue("model"))
			assert.Equal(t, "srt", r.FormValue("response_format"))
			_, header, err := r.FormFile("file")
			if assert.NoError(t, err) {
				assert.Equal(t, "clip.mp3", header.Filename)
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(whisperSRT))
	}))
	defer server.Close()

	client, err := NewWhisper(Config{APIKey: "test-key", APIURL: server.URL + "/v1/"}, server.Client())
	require.NoError(t, err)

	text, err := client.Transcribe(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, whisperSRT, text)
}

func TestWhisperAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"model overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	client, err := NewWhisper(Config{APIKey: "test-key", APIURL: server.URL + "/v1"}, server.Client())
	require.NoError(t, err)

	_, err = client.Transcribe(context.Background(), writeAudio(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to create whisper transcription")
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestWhisperEmptyTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("\n"))
	}))
	defer server.Close()

	client, err := NewWhisper(Config{APIKey: "test-key", APIURL: server.URL + "/v1"}, server.Client())
	require.NoError(t, err)

	_, err = client.Transcribe(context.Background(), writeAudio(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty transcript")
}

func TestWhisperMissingFile(t *testing.T) {
	client, err := NewWhisper(Config{APIKey: "test-key"}, nil)
	require.NoError(t, err)

	_, err = client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to open audio")
}

func TestNewWhisperRequiresKey(t *testing.T) {
	_, err := NewWhisper(Config{}, nil)
	require.Error(t, err)
}
