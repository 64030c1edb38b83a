package ratelimit

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	l := New("openai", 0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for range 100 {
		require.NoError(t, l.Wait(ctx))
	}
	assert.True(t, l.RetryAt().IsZero())
}

func TestLimiter_Check(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		header    string
		wantErr   bool
		wantAfter time.Duration
	}{
		{name: "ok", status: http.StatusOK},
		{name: "server error is not rate limiting", status: http.StatusInternalServerError},
		{name: "429 with seconds", status: http.StatusTooManyRequests, header: "30", wantErr: true, wantAfter: 29 * time.Second},
		{name: "429 without header", status: http.StatusTooManyRequests, wantErr: true, wantAfter: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New("ollama", 10)
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set(HeaderRetryAfter, tt.header)
			}

			err := l.Check(resp)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsRateLimited(err))
			assert.Contains(t, err.Error(), "ollama: rate limit exceeded")
			assert.Greater(t, time.Until(l.RetryAt()), tt.wantAfter)
		})
	}

	assert.NoError(t, New("x", 1).Check(nil))
}

func TestLimiter_WaitHonoursRetryAt(t *testing.T) {
	l := New("openai", 0)
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
	resp.Header.Set(HeaderRetryAfter, "60")
	require.Error(t, l.Check(resp))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}

func TestLimiter_DoRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "payload", string(body))
		if calls.Add(1) == 1 {
			w.Header().Set(HeaderRetryAfter, "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, srv.URL, bytes.NewReader([]byte("payload")))
	require.NoError(t, err)

	resp, err := New("openai", 0).Do(srv.Client(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLimiter_DoGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set(HeaderRetryAfter, "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, http.NoBody)
	require.NoError(t, err)

	_, err = New("openai", 0).Do(srv.Client(), req)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, int32(MaxRetries+1), calls.Load())
}

func TestLimiter_DoStopsOnOneShotBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set(HeaderRetryAfter, "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	// A plain io.Reader gives the request no GetBody.
	body := io.NopCloser(bytes.NewBufferString("payload"))
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, srv.URL, body)
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	_, err = New("openai", 0).Do(srv.Client(), req)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestReplayable(t *testing.T) {
	noBody, err := http.NewRequest(http.MethodGet, "http://example.test", http.NoBody)
	require.NoError(t, err)
	nilBody, err := http.NewRequest(http.MethodGet, "http://example.test", nil)
	require.NoError(t, err)
	buffered, err := http.NewRequest(http.MethodPost, "http://example.test", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	oneShot, err := http.NewRequest(http.MethodPost, "http://example.test", io.NopCloser(bytes.NewBufferString("x")))
	require.NoError(t, err)

	assert.True(t, replayable(noBody))
	assert.True(t, replayable(nilBody))
	assert.True(t, replayable(buffered))
	assert.False(t, replayable(oneShot))
}
