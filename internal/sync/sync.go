// Package sync periodically exports the schedule as JSONL to backup
// destinations.
package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/krushilnaik/constructum-mk2/internal/store"
)

// Destination receives complete JSONL exports.
type Destination interface {
	// Name identifies the destination in logs.
	Name() string
	Write(ctx context.Context, data []byte) error
}

// Scheduler exports the store on a fixed interval and whenever Notify is
// called. A destination that already holds an export with the same digest
// is skipped; one whose write failed is retried on the next run.
type Scheduler struct {
	store    store.Store
	dests    []Destination
	interval time.Duration
	logger   *slog.Logger

	// delivered[i] is the digest dests[i] last accepted.
	delivered []string

	wake   chan struct{}
	cancel context.CancelFunc
	done   sync.WaitGroup
}

func NewScheduler(s store.Store, dests []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:     s,
		dests:     dests,
		interval:  interval,
		logger:    logger,
		delivered: make([]string, len(dests)),
		wake:      make(chan struct{}, 1),
	}
}

// Start exports once right away, then keeps exporting in the background
// until Stop.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done.Add(1)
	go func() {
		defer s.done.Done()
		s.loop(ctx)
	}()
}

// Notify requests an export soon. Requests made while one is pending merge
// into it. A nil Scheduler ignores the call.
func (s *Scheduler) Notify() {
	if s == nil {
		return
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stop ends the loop after any export in progress.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.done.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.wake:
			ticker.Reset(s.interval)
		}
		s.runOnce(ctx)
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	e, err := Build(ctx, s.store, time.Now())
	if err != nil {
		s.logger.Error("sync export failed", "err", err)
		return
	}

	var wrote, skipped, failed int
	for i, d := range s.dests {
		if s.delivered[i] == e.Digest {
			skipped++
			continue
		}
		if err := d.Write(ctx, e.Data); err != nil {
			failed++
			s.logger.Error("sync destination write failed", "destination", d.Name(), "err", err)
			continue
		}
		s.delivered[i] = e.Digest
		wrote++
	}
	if wrote+failed > 0 {
		s.logger.Info("sync completed",
			"digest", e.Digest[:12], "bytes", len(e.Data),
			"written", wrote, "skipped", skipped, "failed", failed)
	}
}
