/*
preview.go - Debounced live preview with a stale-response guard

PURPOSE:
  The builder UI re-runs the pipeline on every configuration change. This
  file models that as a token-guarded, latest-wins request pattern:

  - Every Submit assigns a monotonically increasing request token and
    (re)arms a debounce timer (~500 ms by default).
  - When the timer fires, the full pipeline runs against a capped row
    limit.
  - In-flight fetches are never cancelled. A response arriving for a
    token older than the latest submitted one is silently discarded, so
    the session only ever reflects the most recently requested
    configuration's latest arriving result. No race-induced flicker.

PAGINATION:
  Page() slices the cached rows client-locally; it never refetches.

SEE ALSO:
  - query.go, aggregate.go: The pipeline being re-invoked
*/
package engine

import (
	"context"
	"sync"
	"time"
)

// DefaultPreviewDebounce matches the UI's typing cadence.
const DefaultPreviewDebounce = 500 * time.Millisecond

// DefaultPreviewLimit caps interactive fetches.
const DefaultPreviewLimit = 200

// PreviewResult is delivered to the session's listener after each
// completed (and non-superseded) run.
type PreviewResult struct {
	Token  uint64
	Result *ResultSet
	Err    error
}

// PreviewSession runs the report pipeline behind a debounce and applies
// only the latest-token response.
type PreviewSession struct {
	Executor *Executor
	Shaper   *Shaper

	Debounce time.Duration
	Limit    int

	// OnResult, when set, observes every applied result. Superseded
	// responses are discarded before this fires.
	OnResult func(PreviewResult)

	mu      sync.Mutex
	latest  uint64 // most recently submitted token
	timer   *time.Timer
	pending ReportConfig

	applied uint64 // token of the result currently held
	current *ResultSet
	lastErr error
}

func NewPreviewSession(exec *Executor, shaper *Shaper) *PreviewSession {
	return &PreviewSession{
		Executor: exec,
		Shaper:   shaper,
		Debounce: DefaultPreviewDebounce,
		Limit:    DefaultPreviewLimit,
	}
}

// Submit registers a configuration change and returns its token. The
// fetch fires after the debounce window unless superseded first.
func (s *PreviewSession) Submit(ctx context.Context, cfg ReportConfig) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest++
	token := s.latest
	s.pending = cfg

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.Debounce, func() {
		s.run(ctx, token, cfg)
	})
	return token
}

// run executes the pipeline for one token and applies the result only if
// no newer submission exists. Superseded runs complete and are dropped.
func (s *PreviewSession) run(ctx context.Context, token uint64, cfg ReportConfig) {
	rows, err := s.Executor.Run(ctx, cfg, RunOptions{Limit: s.Limit})

	var rs *ResultSet
	if err == nil {
		rs, err = s.Shaper.Build(cfg.Columns, rows)
	}

	s.mu.Lock()
	if token != s.latest || token <= s.applied {
		s.mu.Unlock()
		return // stale response, discard silently
	}
	s.applied = token
	s.current = rs
	s.lastErr = err
	cb := s.OnResult
	s.mu.Unlock()

	if cb != nil {
		cb(PreviewResult{Token: token, Result: rs, Err: err})
	}
}

// Current returns the latest applied result and its token.
func (s *PreviewSession) Current() (*ResultSet, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.applied, s.lastErr
}

// Page slices the cached rows. Purely client-local: no fetch happens
// here regardless of offset.
func (s *PreviewSession) Page(offset, limit int) []ResultRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || offset < 0 || offset >= len(s.current.Rows) {
		return nil
	}
	rows := s.current.Rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	out := make([]ResultRow, len(rows))
	copy(out, rows)
	return out
}
