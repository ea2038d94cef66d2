// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources queries the external signal providers and returns
// normalized RawSignals. Each provider implements the Adapter interface;
// FetchAll fans a query out to every configured adapter concurrently and
// tolerates individual failures.
//
// Failure strictness is deliberately uneven across adapters. The grants
// registry swallows everything and reports an empty list; the publication
// index retries transient conditions and raises only on genuine upstream
// rejection; web search raises on missing credentials and non-2xx so the
// orchestrator can tell a misconfigured deployment from a flaky network.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

// ErrMissingCredentials indicates a required provider credential is absent.
// Raised at adapter construction: it means the deployment is misconfigured,
// not that the network is flaky.
var ErrMissingCredentials = errors.New("missing provider credentials")

// ServiceError is a hard per-provider failure (upstream rejection, auth,
// quota). Callers must treat it as "this provider contributed nothing this
// round"; it is never accompanied by partial data.
type ServiceError struct {
	Provider   string
	StatusCode int
	Msg        string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Msg)
}

// Query holds the parameters for one provider fetch.
type Query struct {
	// Topic is the free-text search term.
	Topic string

	// Mission is the caller-supplied topical category, copied onto
	// every normalized signal.
	Mission string

	// From is the earliest acceptable publication/start date.
	From time.Time

	// Freshness lists the web-search window tokens to request
	// (pd/pw/pm/py). Ignored by the other providers.
	Freshness []string

	// FetchedAt is the orchestrator's current fetch time, used to stamp
	// records that carry no date of their own.
	FetchedAt time.Time
}

// Adapter fetches signals from a single external provider.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]types.RawSignal, error)
}

// FetchAll fires all adapters concurrently and joins when every call has
// settled. A failing adapter contributes an empty list plus a warning
// string naming the unavailable provider; one provider's failure never
// aborts the batch. The merged list preserves adapter invocation order,
// then each adapter's internal result order; presentation ordering is a
// later, explicit sort.
func FetchAll(ctx context.Context, adapters []Adapter, q Query, timeout time.Duration, w io.Writer) ([]types.RawSignal, []string) {
	type slot struct {
		signals []types.RawSignal
		err     error
	}

	slots := make([]slot, len(adapters))
	var wg sync.WaitGroup
	for i, a := range adapters {
		wg.Add(1)
		go func(i int, a Adapter) {
			defer wg.Done()
			fetchCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			signals, err := a.Fetch(fetchCtx, q)
			slots[i] = slot{signals: signals, err: err}
		}(i, a)
	}
	wg.Wait()

	var merged []types.RawSignal
	var warnings []string
	for i, s := range slots {
		if s.err != nil {
			msg := fmt.Sprintf("%s unavailable: %v", adapters[i].Name(), s.err)
			warnings = append(warnings, msg)
			fmt.Fprintf(w, "warning: %s\n", msg)
			continue
		}
		merged = append(merged, s.signals...)
	}
	return merged, warnings
}

// newLimiter builds the per-provider rate limiter. Zero or negative QPS
// disables limiting.
func newLimiter(qps float64) *rate.Limiter {
	if qps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(qps), 1)
}
