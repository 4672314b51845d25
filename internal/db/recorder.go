package db

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/banshee-data/swervedrive/internal/drive"
	"github.com/banshee-data/swervedrive/internal/monitoring"
	"github.com/banshee-data/swervedrive/internal/timeutil"
)

// RecorderConfig contains configuration for a Recorder.
type RecorderConfig struct {
	// RunID groups every recorded cycle.
	RunID string
	// Buffer is how many snapshots may wait for the writer before new ones
	// are dropped.
	Buffer int
	// BatchSize flushes as soon as this many snapshots are pending.
	BatchSize int
	// FlushInterval flushes whatever is pending at least this often.
	FlushInterval time.Duration
	// Clock drives the flush ticker. Nil means the wall clock.
	Clock timeutil.Clock
}

// Recorder writes published drive snapshots to the database off the control
// loop goroutine. ObserveCycle never blocks: when the buffer is full the
// snapshot is dropped and counted.
type Recorder struct {
	db  *DB
	cfg RecorderConfig
	ch  chan drive.Snapshot

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewRecorder creates a Recorder. Zero config values fall back to a buffer of
// 512, batches of 50 and a one second flush interval.
func NewRecorder(db *DB, cfg RecorderConfig) *Recorder {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 512
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Recorder{
		db:  db,
		cfg: cfg,
		ch:  make(chan drive.Snapshot, cfg.Buffer),
	}
}

// ObserveCycle queues snap for writing.
func (r *Recorder) ObserveCycle(snap drive.Snapshot) {
	select {
	case r.ch <- snap:
	default:
		if r.dropped.Add(1) == 1 {
			monitoring.Logf("telemetry buffer full, dropping snapshots")
		}
	}
}

// Written returns how many snapshots reached the database.
func (r *Recorder) Written() uint64 { return r.written.Load() }

// Dropped returns how many snapshots were discarded because the buffer was full.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Failed returns how many snapshots were lost to write errors.
func (r *Recorder) Failed() uint64 { return r.failed.Load() }

// Run writes queued snapshots until ctx is cancelled, then drains and writes
// whatever is still queued. Returns nil on clean shutdown.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := r.cfg.Clock.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]drive.Snapshot, 0, r.cfg.BatchSize)
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case s := <-r.ch:
					batch = append(batch, s)
					if len(batch) >= r.cfg.BatchSize {
						batch = r.flush(batch)
					}
				default:
					r.flush(batch)
					monitoring.Logf("telemetry recorder stopped: written=%d dropped=%d failed=%d",
						r.Written(), r.Dropped(), r.Failed())
					return nil
				}
			}
		case s := <-r.ch:
			batch = append(batch, s)
			if len(batch) >= r.cfg.BatchSize {
				batch = r.flush(batch)
			}
		case <-ticker.C():
			batch = r.flush(batch)
		}
	}
}

func (r *Recorder) flush(batch []drive.Snapshot) []drive.Snapshot {
	if len(batch) == 0 {
		return batch
	}
	if err := r.db.InsertSnapshots(r.cfg.RunID, batch); err != nil {
		r.failed.Add(uint64(len(batch)))
		monitoring.Logf("telemetry flush of %d snapshots failed: %v", len(batch), err)
	} else {
		r.written.Add(uint64(len(batch)))
	}
	return batch[:0]
}
