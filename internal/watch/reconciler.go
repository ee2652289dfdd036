// Package watch owns the authoritative view of the current ingestion job,
// merging updates from the push stream and the poll loop, and drives the
// activation policy for both.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/models"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/stream"
)

// DefaultPollInterval is how often the poll loop refreshes job status
// while the job is live.
const DefaultPollInterval = 2 * time.Second

// Poller is the slice of the poll scheduler the reconciler drives.
type Poller interface {
	Activate(interval time.Duration)
	Deactivate()
	Active() bool
}

// Streams is the slice of the stream adapter the reconciler drives.
type Streams interface {
	Open(ctx context.Context, kind stream.Kind) error
	Close(kind stream.Kind)
	Live(kind stream.Kind) bool
}

// Reconciler merges the two producers into one job status value. Updates
// are applied in arrival order per source; for fields carried by both,
// the most recently arrived non-empty value wins. The stream never carries
// queue totals, so a poll snapshot always refreshes those.
type Reconciler struct {
	poller   Poller
	streams  Streams
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	job      models.JobStatus
	hasJob   bool
	userLogs bool // logs stream opened by explicit user choice
	subs     []func(models.JobStatus)
}

// Config holds reconciler settings.
type Config struct {
	Poller       Poller
	Streams      Streams
	PollInterval time.Duration
	Logger       *slog.Logger
}

// New creates a reconciler.
func New(cfg Config) *Reconciler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		poller:   cfg.Poller,
		streams:  cfg.Streams,
		interval: cfg.PollInterval,
		logger:   logger,
	}
}

// Subscribe registers a callback invoked after every applied update.
func (r *Reconciler) Subscribe(fn func(models.JobStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
}

// Job returns the current authoritative job status. ok is false before the
// first update arrives.
func (r *Reconciler) Job() (models.JobStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job, r.hasJob
}

// MarkUserLogs records that the user opened (or released) the logs stream
// explicitly, so the activation policy neither reopens nor closes it.
func (r *Reconciler) MarkUserLogs(open bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userLogs = open
}

// ApplyPoll applies a full snapshot from the poll path. Snapshots for a
// job already in a terminal state are ignored: terminal status is frozen.
func (r *Reconciler) ApplyPoll(s models.JobStatus) {
	r.mu.Lock()
	if r.frozenLocked(s.ID) {
		r.mu.Unlock()
		return
	}
	wasLive := r.hasJob && r.job.State.Live()
	r.job = s
	r.hasJob = true
	r.mu.Unlock()

	r.afterApply(wasLive)
}

// ApplyEvent applies a partial update from the job-events stream. Fields
// the event does not carry keep their current value.
func (r *Reconciler) ApplyEvent(ev models.JobEvent) {
	r.mu.Lock()
	if r.frozenLocked(ev.JobID) {
		r.mu.Unlock()
		return
	}
	if r.hasJob && ev.JobID != "" && ev.JobID != r.job.ID {
		if !r.job.State.Terminal() {
			// Event for some other job while ours is still live: stale.
			r.mu.Unlock()
			return
		}
		r.job = models.JobStatus{ID: ev.JobID}
	}
	if !r.hasJob {
		r.job = models.JobStatus{ID: ev.JobID}
		r.hasJob = true
	}

	wasLive := r.job.State.Live()
	if ev.State != nil {
		r.job.State = *ev.State
	}
	if ev.Phase != nil {
		r.job.Phase = *ev.Phase
	}
	if ev.ProcessedFiles != nil {
		r.job.ProcessedFiles = *ev.ProcessedFiles
	}
	if ev.FailedFiles != nil {
		r.job.FailedFiles = *ev.FailedFiles
	}
	if ev.ChunksCreated != nil {
		r.job.ChunksCreated = *ev.ChunksCreated
	}
	if ev.ElapsedSeconds != nil {
		r.job.ElapsedSeconds = *ev.ElapsedSeconds
	}
	if ev.EtaSeconds != nil {
		r.job.EtaSeconds = *ev.EtaSeconds
	}
	if ev.FilesPerSecond != nil {
		r.job.FilesPerSecond = *ev.FilesPerSecond
	}
	r.mu.Unlock()

	r.afterApply(wasLive)
}

// frozenLocked reports whether updates for the given job id must be
// dropped because the tracked job is terminal. A different id is a new
// job and never frozen.
func (r *Reconciler) frozenLocked(id string) bool {
	return r.hasJob && r.job.State.Terminal() && (id == "" || id == r.job.ID)
}

// afterApply runs the activation policy and notifies subscribers, outside
// the state lock.
func (r *Reconciler) afterApply(wasLive bool) {
	r.mu.Lock()
	job := r.job
	userLogs := r.userLogs
	subs := make([]func(models.JobStatus), len(r.subs))
	copy(subs, r.subs)
	r.mu.Unlock()

	switch {
	case job.State.Live():
		r.poller.Activate(r.interval)
		if !r.streams.Live(stream.KindJobEvents) {
			if err := r.streams.Open(context.Background(), stream.KindJobEvents); err != nil {
				r.logger.Warn("job-events stream open failed, polling covers status", "error", err)
			}
		}
		// Transitioning into running auto-opens the logs stream unless the
		// user already has it.
		if job.State == models.JobStateRunning && !wasLive && !userLogs && !r.streams.Live(stream.KindLogs) {
			if err := r.streams.Open(context.Background(), stream.KindLogs); err != nil {
				r.logger.Warn("logs stream open failed", "error", err)
			}
		}
	default:
		// Pending and terminal states both stop polling and job events.
		// The logs stream stays as it is: terminal jobs leave it open for
		// inspection until explicitly closed.
		r.poller.Deactivate()
		r.streams.Close(stream.KindJobEvents)
	}

	for _, fn := range subs {
		fn(job)
	}
}

// HandleStreamDown is wired to the adapter's OnDown: losing the job-events
// stream is recoverable because polling still runs while the job is live.
// No reconnect happens here; the next applied update re-evaluates policy.
func (r *Reconciler) HandleStreamDown(kind stream.Kind, err error) {
	r.logger.Warn("stream down, status continues via polling", "kind", kind, "error", err)
}
