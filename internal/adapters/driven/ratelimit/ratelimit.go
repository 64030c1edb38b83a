// Package ratelimit throttles requests to hosted model APIs.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
	HeaderRetryAfter = "Retry-After"

	// DefaultBackoff is used when a 429 carries no Retry-After.
	DefaultBackoff = 2 * time.Second

	// MaxRetries bounds how often a rate-limited request is resent.
	MaxRetries = 2
)

// Error reports that the provider rejected a request for rate limiting.
type Error struct {
	Provider string
	RetryAt  time.Time
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: rate limit exceeded, retry after %s", e.Provider, e.RetryAt.Format(time.RFC3339))
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rlErr *Error
	return errors.As(err, &rlErr)
}

// Limiter combines a token bucket with the provider's Retry-After hints.
type Limiter struct {
	provider string
	bucket   *rate.Limiter

	mu      sync.Mutex
	retryAt time.Time
}

// New creates a limiter for provider allowing rps requests per second.
// A non-positive rps disables proactive throttling.
func New(provider string, rps float64) *Limiter {
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = max(1, int(rps))
	}
	return &Limiter{
		provider: provider,
		bucket:   rate.NewLimiter(limit, burst),
	}
}

// Wait blocks until it is safe to send the next request.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.bucket.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
	return nil
}

// Check inspects a response and records any backoff the provider asked
// for. It returns an *Error for 429 responses.
func (l *Limiter) Check(resp *http.Response) error {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	retryAt := time.Now().Add(DefaultBackoff)
	if v := resp.Header.Get(HeaderRetryAfter); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			retryAt = time.Now().Add(time.Duration(seconds) * time.Second)
		} else if t, err := http.ParseTime(v); err == nil {
			retryAt = t
		}
	}

	l.mu.Lock()
	if retryAt.After(l.retryAt) {
		l.retryAt = retryAt
	}
	l.mu.Unlock()

	return &Error{Provider: l.provider, RetryAt: retryAt}
}

// RetryAt returns when the provider last asked to be retried.
func (l *Limiter) RetryAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.retryAt
}

// Do sends req through client, waiting for the limiter first. A 429 is
// retried up to MaxRetries times when the request body can be replayed.
// The caller closes the returned body.
func (l *Limiter) Do(client *http.Client, req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	for attempt := 0; ; attempt++ {
		if err := l.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		rlErr := l.Check(resp)
		if rlErr == nil {
			return resp, nil
		}
		resp.Body.Close()

		if attempt >= MaxRetries || !replayable(req) {
			return nil, rlErr
		}
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req = req.Clone(ctx)
			req.Body = body
		}
	}
}

// replayable reports whether req can be sent again after a 429.
func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}
