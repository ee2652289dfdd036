package console

import (
	"context"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/api"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/models"
)

// Every mutating operation below routes through the Operation Guard and,
// on success, refreshes the affected state. Refresh failures after a
// successful mutation are logged, not surfaced: the mutation happened.

// Enqueue creates a pending queue entry.
func (a *App) Enqueue(ctx context.Context, input api.EnqueueInput) (*models.QueueEntry, error) {
	var entry *models.QueueEntry
	err := a.Guard.Attempt(ctx, "enqueue", func(ctx context.Context) error {
		created, err := a.API.Enqueue(ctx, input)
		if err != nil {
			return err
		}
		entry = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.refreshAfter(ctx, a.RefreshQueue)
	return entry, nil
}

// HasPendingProfile reports whether the profile already has a queue entry,
// for the enqueue confirmation step.
func (a *App) HasPendingProfile(profile string) bool {
	return a.Store.HasPendingProfile(profile)
}

// RemoveFromQueue cancels a pending entry.
func (a *App) RemoveFromQueue(ctx context.Context, id string) error {
	err := a.Guard.Attempt(ctx, "dequeue", func(ctx context.Context) error {
		return a.API.RemoveFromQueue(ctx, id)
	})
	if err != nil {
		return err
	}
	a.refreshAfter(ctx, a.RefreshQueue)
	return nil
}

// Pause pauses the running job.
func (a *App) Pause(ctx context.Context) error {
	return a.jobOp(ctx, "pause", a.API.Pause)
}

// Resume resumes a paused job.
func (a *App) Resume(ctx context.Context) error {
	return a.jobOp(ctx, "resume", a.API.Resume)
}

// Stop stops the running job.
func (a *App) Stop(ctx context.Context) error {
	return a.jobOp(ctx, "stop", a.API.Stop)
}

func (a *App) jobOp(ctx context.Context, op string, fn func(context.Context) error) error {
	err := a.Guard.Attempt(ctx, op, fn)
	if err != nil {
		return err
	}
	a.refreshAfter(ctx, a.RefreshStatus)
	return nil
}

// CreateSchedule creates a recurring schedule.
func (a *App) CreateSchedule(ctx context.Context, input api.ScheduleInput) (*models.Schedule, error) {
	var created *models.Schedule
	err := a.Guard.Attempt(ctx, "schedule-create", func(ctx context.Context) error {
		s, err := a.API.CreateSchedule(ctx, input)
		if err != nil {
			return err
		}
		created = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.refreshAfter(ctx, a.RefreshSchedules)
	return created, nil
}

// ToggleSchedule flips a schedule's enabled flag.
func (a *App) ToggleSchedule(ctx context.Context, id string) error {
	err := a.Guard.Attempt(ctx, "schedule-toggle", func(ctx context.Context) error {
		_, err := a.API.ToggleSchedule(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	a.refreshAfter(ctx, a.RefreshSchedules)
	return nil
}

// DeleteSchedule removes a schedule.
func (a *App) DeleteSchedule(ctx context.Context, id string) error {
	err := a.Guard.Attempt(ctx, "schedule-delete", func(ctx context.Context) error {
		return a.API.DeleteSchedule(ctx, id)
	})
	if err != nil {
		return err
	}
	a.refreshAfter(ctx, a.RefreshSchedules)
	return nil
}

// RunScheduleNow fires a schedule immediately. Duplicate-prone: a cooldown
// follows success.
func (a *App) RunScheduleNow(ctx context.Context, id string) error {
	err := a.Guard.Attempt(ctx, "schedule-run-now", func(ctx context.Context) error {
		return a.API.RunScheduleNow(ctx, id)
	})
	if err != nil {
		return err
	}
	a.refreshAfter(ctx, a.RefreshQueue)
	return nil
}

// OperationPending reports whether a mutating call is in flight.
func (a *App) OperationPending() bool {
	return a.Guard.Pending()
}

// CooldownActive reports whether the post-success cooldown is open.
func (a *App) CooldownActive() bool {
	return a.Guard.CoolingDown()
}

func (a *App) refreshAfter(ctx context.Context, refresh func(context.Context) error) {
	if err := refresh(ctx); err != nil {
		a.Logger.Warn("refresh after mutation failed", "error", err)
	}
}
