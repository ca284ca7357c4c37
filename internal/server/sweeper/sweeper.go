// Package sweeper implements the reconciliation job: it removes expired
// content, releases the quota it held, and cleans up payloads that no
// metadata references anymore.
package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/campusshare/campusshare/internal/common"
	"github.com/campusshare/campusshare/internal/dbx"
	"github.com/campusshare/campusshare/internal/logging"
	"github.com/campusshare/campusshare/internal/server/blob"
	"github.com/campusshare/campusshare/internal/server/metrics"
	"github.com/campusshare/campusshare/internal/server/repositories/repomanager"
	"github.com/campusshare/campusshare/internal/server/services"
)

// batchSize bounds one page of the expiry index per iteration.
const batchSize = 500

// EntryError records one non-fatal failure inside a run.
type EntryError struct {
	ContentID string `json:"content_id,omitempty"`
	BlobKey   string `json:"blob_key,omitempty"`
	Err       string `json:"error"`
}

// Summary is the report of one sweeper run, identical for scheduled and
// operator-triggered runs.
type Summary struct {
	EntriesDeleted   int           `json:"entries_deleted"`
	BytesFreed       int64         `json:"bytes_freed"`
	OrphansDeleted   int           `json:"orphans_deleted"`
	OrphanBytesFreed int64         `json:"orphan_bytes_freed"`
	Duration         time.Duration `json:"duration"`
	Errors           []EntryError  `json:"errors,omitempty"`
}

// Sweeper runs the reconciliation batch. It has no state of its own; every
// run is independent, and safety under concurrent user deletes comes from
// existence-checked removal, not locking.
type Sweeper struct {
	db      dbx.DBTX
	repos   repomanager.RepositoryManager
	content *services.ContentService
	blobs   blob.Store
	logger  logging.Logger
	metrics *metrics.SweepMetrics

	interval    time.Duration
	orphanScan  bool
	orphanGrace time.Duration

	// now is a clock seam for tests.
	now func() time.Time
}

// New wires a sweeper. Metrics may be nil (manual runs from cmd/sweep).
func New(db dbx.DBTX, repos repomanager.RepositoryManager, content *services.ContentService, blobs blob.Store,
	logger logging.Logger, m *metrics.SweepMetrics, interval time.Duration, orphanScan bool, orphanGrace time.Duration) *Sweeper {
	return &Sweeper{
		db:          db,
		repos:       repos,
		content:     content,
		blobs:       blobs,
		logger:      logger,
		metrics:     m,
		interval:    interval,
		orphanScan:  orphanScan,
		orphanGrace: orphanGrace,
		now:         time.Now,
	}
}

// Run executes one reconciliation pass and always returns a summary: the
// job is scheduled unattended, so per-entry failures are reported, never
// raised.
func (s *Sweeper) Run(ctx context.Context) *Summary {
	started := s.now()
	summary := &Summary{}

	s.sweepExpired(ctx, started, summary)

	if s.orphanScan {
		s.sweepOrphans(ctx, started, summary)
	}

	summary.Duration = s.now().Sub(started)
	s.report(ctx, summary)
	return summary
}

// sweepExpired pages through the expiry index oldest-first and removes every
// entry due as of the run's start. An entry that vanished between the index
// read and the removal was deleted by a user mid-run; that is a skip, not an
// error.
func (s *Sweeper) sweepExpired(ctx context.Context, asOf time.Time, summary *Summary) {
	contentRepo := s.repos.Contents(s.db)

	for {
		ids, err := contentRepo.SelectDue(ctx, asOf, batchSize)
		if err != nil {
			summary.Errors = append(summary.Errors, EntryError{Err: "select due: " + err.Error()})
			return
		}
		if len(ids) == 0 {
			return
		}

		progressed := false
		for _, id := range ids {
			freed, err := s.content.Remove(ctx, id)
			if err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					progressed = true
					continue
				}
				summary.Errors = append(summary.Errors, EntryError{ContentID: id, Err: err.Error()})
				continue
			}
			progressed = true
			summary.EntriesDeleted++
			summary.BytesFreed += freed
		}

		// Entries that failed stay due; without forward progress the same
		// page would come back forever.
		if !progressed || len(ids) < batchSize {
			return
		}
	}
}

// sweepOrphans removes payloads with no matching metadata. Payloads younger
// than the grace period are left alone: their metadata insert may still be
// in flight.
func (s *Sweeper) sweepOrphans(ctx context.Context, asOf time.Time, summary *Summary) {
	contentRepo := s.repos.Contents(s.db)

	objects, err := s.blobs.List(ctx)
	if err != nil {
		summary.Errors = append(summary.Errors, EntryError{Err: "list payloads: " + err.Error()})
		return
	}

	cutoff := asOf.Add(-s.orphanGrace)
	for _, obj := range objects {
		if obj.ModTime.After(cutoff) {
			continue
		}

		exists, err := contentRepo.ExistsByStorageKey(ctx, obj.Key)
		if err != nil {
			summary.Errors = append(summary.Errors, EntryError{BlobKey: obj.Key, Err: err.Error()})
			continue
		}
		if exists {
			continue
		}

		if err := s.blobs.Delete(ctx, obj.Key); err != nil {
			summary.Errors = append(summary.Errors, EntryError{BlobKey: obj.Key, Err: err.Error()})
			continue
		}
		summary.OrphansDeleted++
		summary.OrphanBytesFreed += obj.Size
	}
}

func (s *Sweeper) report(ctx context.Context, summary *Summary) {
	s.logger.Info(ctx, "sweep finished",
		"entries_deleted", summary.EntriesDeleted,
		"bytes_freed", summary.BytesFreed,
		"orphans_deleted", summary.OrphansDeleted,
		"orphan_bytes_freed", summary.OrphanBytesFreed,
		"errors", len(summary.Errors),
		"duration", summary.Duration.String(),
	)
	for _, e := range summary.Errors {
		s.logger.Warn(ctx, "sweep entry error", "content_id", e.ContentID, "blob_key", e.BlobKey, "error", e.Err)
	}

	if s.metrics == nil {
		return
	}
	s.metrics.RunsTotal.Inc()
	s.metrics.RunDuration.Observe(summary.Duration.Seconds())
	s.metrics.EntriesDeleted.Add(float64(summary.EntriesDeleted))
	s.metrics.BytesFreed.Add(float64(summary.BytesFreed))
	s.metrics.OrphansDeleted.Add(float64(summary.OrphansDeleted))
	s.metrics.OrphanBytesFreed.Add(float64(summary.OrphanBytesFreed))
	s.metrics.EntryErrors.Add(float64(len(summary.Errors)))
}

// Start runs the sweeper on its interval until the context is cancelled.
// It is fully decoupled from request handling; the scheduler goroutine is
// the only caller of Run besides the operator trigger.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "sweeper started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "sweeper stopped")
			return
		case <-ticker.C:
			s.Run(ctx)
		}
	}
}
