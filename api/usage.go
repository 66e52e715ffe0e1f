/*
usage.go - Background template-usage flusher

PURPOSE:
  Collects template use-count increments in memory and flushes them to
  the store on an interval. Running a report must never slow down or
  fail because a popularity counter didn't persist, so handlers only
  touch an in-memory map and the flusher does the writes best-effort.

DESIGN:
  - Runs a background goroutine with configurable flush interval
  - Note() is cheap: bump a counter under a mutex
  - Flush drains the pending map and writes increments one by one;
    a failed write puts the increment back for the next round
  - Stop() drains once more so shutdown doesn't lose counts

CONFIGURATION:
  - FlushInterval: How often to flush (default: 30 seconds)
  - Enabled: Whether flusher is active (default: true)

USAGE:
  flusher := NewUsageFlusher(store, logger)
  flusher.Start()
  // ... later
  flusher.Stop()

SEE ALSO:
  - handlers.go: noteUse
  - engine/template.go: RecordUse contract
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetwash/report-engine/engine"
)

// UsageFlusher batches template use-count increments.
type UsageFlusher struct {
	Store         engine.TemplateStore
	FlushInterval time.Duration
	Enabled       bool

	logger  zerolog.Logger
	ticker  *time.Ticker
	stop    chan bool
	wg      sync.WaitGroup
	mu      sync.Mutex
	pending map[engine.TemplateID]int
}

// NewUsageFlusher creates a new flusher.
func NewUsageFlusher(store engine.TemplateStore, logger zerolog.Logger) *UsageFlusher {
	return &UsageFlusher{
		Store:         store,
		FlushInterval: 30 * time.Second,
		Enabled:       true,
		logger:        logger.With().Str("component", "usage-flusher").Logger(),
		stop:          make(chan bool),
		pending:       make(map[engine.TemplateID]int),
	}
}

// Note records one use of a template. Never blocks on the store.
func (uf *UsageFlusher) Note(id engine.TemplateID) {
	if id == "" {
		return
	}
	uf.mu.Lock()
	uf.pending[id]++
	uf.mu.Unlock()
}

// Start begins the flusher.
func (uf *UsageFlusher) Start() {
	uf.mu.Lock()
	defer uf.mu.Unlock()

	if !uf.Enabled {
		uf.logger.Info().Msg("disabled, not starting")
		return
	}

	uf.ticker = time.NewTicker(uf.FlushInterval)
	uf.wg.Add(1)

	go uf.run()

	uf.logger.Info().Dur("interval", uf.FlushInterval).Msg("started")
}

// Stop stops the flusher and drains remaining counts.
func (uf *UsageFlusher) Stop() {
	uf.mu.Lock()
	ticker := uf.ticker
	uf.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
		close(uf.stop)
		uf.wg.Wait()
	}
	uf.Flush()
}

func (uf *UsageFlusher) run() {
	defer uf.wg.Done()

	for {
		select {
		case <-uf.ticker.C:
			uf.Flush()
		case <-uf.stop:
			return
		}
	}
}

// Flush writes all pending increments. Failed writes are re-queued.
func (uf *UsageFlusher) Flush() {
	uf.mu.Lock()
	batch := uf.pending
	uf.pending = make(map[engine.TemplateID]int)
	uf.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	ctx := context.Background()
	now := time.Now().UTC()
	flushed := 0

	for id, count := range batch {
		failed := 0
		for i := 0; i < count; i++ {
			if err := uf.Store.RecordUse(ctx, id, now); err != nil {
				failed = count - i
				uf.logger.Warn().Err(err).Str("template_id", string(id)).Msg("flush failed, re-queueing")
				break
			}
			flushed++
		}
		if failed > 0 {
			uf.mu.Lock()
			uf.pending[id] += failed
			uf.mu.Unlock()
		}
	}

	if flushed > 0 {
		uf.logger.Info().Int("count", flushed).Msg("flushed usage counts")
	}
}
