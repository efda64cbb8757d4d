package transcription

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-key"

// fakeAssembly mimics the three provider endpoints used by the orchestrator.
type fakeAssembly struct {
	t        *testing.T
	statuses []Job
	polls    atomic.Int32
	uploads  atomic.Int32
	creates  atomic.Int32

	mu      sync.Mutex
	body    []byte
	chunked bool
}

func (f *fakeAssembly) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		f.uploads.Add(1)
		assert.Equal(f.t, http.MethodPost, r.Method)
		assert.Equal(f.t, testKey, r.Header.Get("authorization"))
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.chunked = len(r.TransferEncoding) > 0 && r.TransferEncoding[0] == "chunked"
		f.body = body
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://x/a1"})
	})
	mux.HandleFunc("/transcript", func(w http.ResponseWriter, r *http.Request) {
		f.creates.Add(1)
		assert.Equal(f.t, http.MethodPost, r.Method)
		assert.Equal(f.t, testKey, r.Header.Get("authorization"))
		assert.Equal(f.t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]string
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(f.t, "https://x/a1", req["audio_url"])

		_ = json.NewEncoder(w).Encode(map[string]string{"id": "job123", "status": "queued"})
	})
	mux.HandleFunc("/transcript/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, http.MethodGet, r.Method)
		assert.Equal(f.t, testKey, r.Header.Get("authorization"))
		assert.Equal(f.t, "/transcript/job123", r.URL.Path)

		i := int(f.polls.Add(1)) - 1
		if i >= len(f.statuses) {
			i = len(f.statuses) - 1
		}
		_ = json.NewEncoder(w).Encode(f.statuses[i])
	})
	return mux
}

func newFakeClient(t *testing.T, h http.Handler) *AssemblyAIClient {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewAssemblyAIClient(testKey, srv.URL+"/", 5*time.Second)
	require.NoError(t, err)
	return c
}

func TestAssemblyAI_EndToEnd(t *testing.T) {
	f := &fakeAssembly{t: t, statuses: []Job{
		{ID: "job123", Status: StatusQueued},
		{ID: "job123", Status: StatusCompleted, Text: "hello world"},
	}}
	c := newFakeClient(t, f.handler())

	s := NewService(c, Config{PollInterval: time.Millisecond}, nil, nil)

	text, err := s.Transcribe(context.Background(), strings.NewReader("RIFF-audio-bytes"), "hello.wav")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	f.mu.Lock()
	assert.Equal(t, "RIFF-audio-bytes", string(f.body))
	assert.True(t, f.chunked, "upload should use chunked transfer")
	f.mu.Unlock()
	assert.EqualValues(t, 1, f.uploads.Load())
	assert.EqualValues(t, 1, f.creates.Load())
	assert.EqualValues(t, 2, f.polls.Load())
}

func TestAssemblyAI_FailedStatusCarriesDetail(t *testing.T) {
	f := &fakeAssembly{t: t, statuses: []Job{
		{ID: "job123", Status: StatusFailed, Error: "Transcoding failed"},
	}}
	c := newFakeClient(t, f.handler())

	job, err := c.GetJob(context.Background(), "job123")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, "Transcoding failed", job.Error)
}

func TestAssemblyAI_HTTPErrorUsesProviderMessage(t *testing.T) {
	c := newFakeClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "Authentication error, API token missing/invalid"}`))
	}))

	_, err := c.Upload(context.Background(), strings.NewReader("x"), "a.wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 401")
	assert.Contains(t, err.Error(), "API token missing/invalid")
}

func TestAssemblyAI_MissingFields(t *testing.T) {
	c := newFakeClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))

	_, err := c.Upload(context.Background(), strings.NewReader("x"), "a.wav")
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = c.CreateJob(context.Background(), "https://x/a1")
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = c.GetJob(context.Background(), "job123")
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestAssemblyAI_MalformedJSON(t *testing.T) {
	c := newFakeClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))

	_, err := c.CreateJob(context.Background(), "https://x/a1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestNewAssemblyAIClient_RequiresKey(t *testing.T) {
	_, err := NewAssemblyAIClient("", "", time.Second)
	assert.Error(t, err)

	c, err := NewAssemblyAIClient("k", "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, DefaultAssemblyBaseURL, c.baseURL)
}

// slowReader отдаёт данные кусками с паузой, как медленный клиент.
type slowReader struct {
	chunks int
	size   int
	pause  time.Duration
}

func (s *slowReader) Read(p []byte) (int, error) {
	if s.chunks == 0 {
		return 0, io.EOF
	}
	time.Sleep(s.pause)
	s.chunks--
	n := copy(p, strings.Repeat("a", s.size))
	return n, nil
}

func TestAssemblyAI_SlowUploadOutlivesCallTimeout(t *testing.T) {
	var received atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := io.Copy(io.Discard, r.Body)
		received.Store(n)
		_, _ = w.Write([]byte(`{"upload_url": "https://x/big"}`))
	}))
	defer srv.Close()

	c, err := NewAssemblyAIClient(testKey, srv.URL, 200*time.Millisecond)
	require.NoError(t, err)

	// 10 кусков по 60ms — дольше таймаута на вызов
	url, err := c.Upload(context.Background(), &slowReader{chunks: 10, size: 10, pause: 60 * time.Millisecond}, "big.wav")
	require.NoError(t, err)
	assert.Equal(t, "https://x/big", url)
	assert.EqualValues(t, 100, received.Load())
}

func TestAssemblyAI_UploadHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = w.Write([]byte(`{"upload_url": "https://x/big"}`))
	}))
	defer srv.Close()

	c, err := NewAssemblyAIClient(testKey, srv.URL, time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = c.Upload(ctx, &slowReader{chunks: 20, size: 10, pause: 50 * time.Millisecond}, "big.wav")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAssemblyAI_PollKeepsCallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"id": "job123", "status": "queued"}`))
	}))
	defer srv.Close()

	c, err := NewAssemblyAIClient(testKey, srv.URL, 100*time.Millisecond)
	require.NoError(t, err)

	_, err = c.GetJob(context.Background(), "job123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Client.Timeout")
}
