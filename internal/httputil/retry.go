// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across source adapters.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"
)

// Retryable decides whether a response or transport error warrants another
// attempt. Exactly one of resp and err is non-nil.
type Retryable func(resp *http.Response, err error) bool

// Policy is an explicit retry policy: bounded attempts with exponential
// backoff. The zero value is not usable; construct with DefaultPolicy and
// adjust fields as needed.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay is the first backoff duration; it doubles each attempt.
	// Tests set this to a few milliseconds to avoid real sleeps.
	BaseDelay time.Duration

	// Retryable classifies a result. When nil, RetryStatus is used.
	Retryable Retryable
}

// DefaultPolicy retries up to 4 times total, starting at a 2 s backoff:
// 2 s, 4 s, 8 s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   2 * time.Second,
		Retryable:   RetryStatus,
	}
}

// RetryStatus retries transport errors, HTTP 429, and 5xx responses.
func RetryStatus(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}

// Do executes the request under the policy. Each retry clones the request
// with ctx. On a retryable response the body is drained and closed before
// sleeping. If ctx is cancelled during a backoff wait, ctx.Err() is
// returned. After exhausting attempts the last response (or error) is
// returned so the caller can inspect it.
func (p Policy) Do(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = RetryStatus
	}

	var (
		resp *http.Response
		err  error
	)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err = client.Do(req.Clone(ctx))
		if !retryable(resp, err) {
			return resp, err
		}

		// Last attempt: hand the result back as-is.
		if attempt == maxAttempts-1 {
			return resp, err
		}

		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * p.BaseDelay
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return resp, err
}
