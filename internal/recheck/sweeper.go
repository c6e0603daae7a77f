// Package recheck recomputes persisted verdicts after votes change them:
// on a schedule, and on vote events from other processes.
package recheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/safeprotest/factcheck/internal/events"
	"github.com/safeprotest/factcheck/internal/model"
	"github.com/safeprotest/factcheck/internal/store"
	"github.com/safeprotest/factcheck/internal/worker"
)

// Rechecker is the part of the fact-check service a sweep needs
type Rechecker interface {
	List(ctx context.Context, opts model.ListOptions) ([]model.Record, error)
	Recheck(ctx context.Context, id string) (*model.Record, error)
}

// Stats summarizes one sweep
type Stats struct {
	Checked int
	Changed int
	Failed  int
}

// Sweeper rechecks the newest records periodically
type Sweeper struct {
	svc      Rechecker
	schedule string
	limit    int
	workers  int
	logger   *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewSweeper creates a sweeper from cfg. workers bounds concurrent rechecks.
func NewSweeper(svc Rechecker, cfg model.RecheckConfig, workers int, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sweeper{
		svc:      svc,
		schedule: cfg.Schedule,
		limit:    cfg.Limit,
		workers:  workers,
		logger:   logger,
	}
}

type recheckResult struct {
	id      string
	changed bool
	err     error
}

func (r *recheckResult) GetError() error {
	return r.err
}

// Sweep rechecks up to the configured number of newest records once
func (s *Sweeper) Sweep(ctx context.Context) (Stats, error) {
	records, err := s.svc.List(ctx, model.ListOptions{Limit: s.limit})
	if err != nil {
		return Stats{}, fmt.Errorf("list records: %w", err)
	}

	pool := worker.NewPool[*recheckResult](ctx, s.workers)
	pool.Start()
	for _, rec := range records {
		id, previous := rec.ID, rec.Result.Status
		pool.Submit(worker.JobFunc[*recheckResult](func(ctx context.Context) *recheckResult {
			updated, err := s.svc.Recheck(ctx, id)
			if err != nil {
				return &recheckResult{id: id, err: err}
			}
			return &recheckResult{id: id, changed: updated.Result.Status != previous}
		}))
	}

	var stats Stats
	for _, res := range pool.Wait() {
		stats.Checked++
		if res.err != nil {
			stats.Failed++
			s.logger.Warn("recheck failed", "record_id", res.id, "error", res.err)
			continue
		}
		if res.changed {
			stats.Changed++
		}
	}
	return stats, ctx.Err()
}

// Start schedules sweeps. Overlapping runs are skipped.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("sweeper already started")
	}

	logger := cronLogger{s.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	_, err := c.AddFunc(s.schedule, func() {
		stats, err := s.Sweep(ctx)
		if err != nil {
			s.logger.Warn("recheck sweep", "error", err)
			return
		}
		s.logger.Info("recheck sweep done", "checked", stats.Checked, "changed", stats.Changed, "failed", stats.Failed)
	})
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", s.schedule, err)
	}

	c.Start()
	s.cron = c
	return nil
}

// Stop halts the schedule and waits for a running sweep
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// VoteHandler rechecks the record named by each vote event. Events for
// records this backend does not know are dropped.
func VoteHandler(svc Rechecker, logger *slog.Logger) events.Handler {
	return func(ctx context.Context, ev events.VoteRecorded) error {
		rec, err := svc.Recheck(ctx, ev.RecordID)
		if errors.Is(err, store.ErrNotFound) {
			logger.Debug("vote event for unknown record", "record_id", ev.RecordID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("recheck %s: %w", ev.RecordID, err)
		}
		logger.Debug("rechecked after vote", "record_id", rec.ID, "status", rec.Result.Status)
		return nil
	}
}

// cronLogger routes cron's logging into slog
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
