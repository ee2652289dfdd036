package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/models"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/stream"
)

type fakePoller struct {
	mu     sync.Mutex
	active bool
}

func (p *fakePoller) Activate(time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = true
}

func (p *fakePoller) Deactivate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
}

func (p *fakePoller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

type fakeStreams struct {
	mu   sync.Mutex
	live map[stream.Kind]bool
}

func newFakeStreams() *fakeStreams {
	return &fakeStreams{live: make(map[stream.Kind]bool)}
}

func (s *fakeStreams) Open(ctx context.Context, kind stream.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[kind] = true
	return nil
}

func (s *fakeStreams) Close(kind stream.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[kind] = false
}

func (s *fakeStreams) Live(kind stream.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[kind]
}

func newTestReconciler(t *testing.T) (*Reconciler, *fakePoller, *fakeStreams) {
	t.Helper()
	poller := &fakePoller{}
	streams := newFakeStreams()
	r := New(Config{Poller: poller, Streams: streams})
	return r, poller, streams
}

func snapshot(state models.JobState, processed int) models.JobStatus {
	return models.JobStatus{
		ID:             "job-1",
		State:          state,
		TotalFiles:     100,
		ProcessedFiles: processed,
	}
}

func intPtr(v int) *int                           { return &v }
func statePtr(s models.JobState) *models.JobState { return &s }
func strPtr(s string) *string                     { return &s }

func TestMerge_MostRecentArrivalWins(t *testing.T) {
	r, _, _ := newTestReconciler(t)

	r.ApplyPoll(snapshot(models.JobStateRunning, 5))
	r.ApplyEvent(models.JobEvent{JobID: "job-1", ProcessedFiles: intPtr(7)})
	r.ApplyPoll(snapshot(models.JobStateRunning, 6))

	job, ok := r.Job()
	if !ok {
		t.Fatal("no job tracked")
	}
	if job.ProcessedFiles != 6 {
		t.Errorf("ProcessedFiles = %d, want 6 (last arrival wins)", job.ProcessedFiles)
	}
}

func TestMerge_EventKeepsFieldsItDoesNotCarry(t *testing.T) {
	r, _, _ := newTestReconciler(t)

	r.ApplyPoll(snapshot(models.JobStateRunning, 10))
	r.ApplyEvent(models.JobEvent{
		JobID:          "job-1",
		Phase:          strPtr("embedding"),
		ProcessedFiles: intPtr(12),
	})

	job, _ := r.Job()
	if job.ProcessedFiles != 12 {
		t.Errorf("ProcessedFiles = %d, want 12", job.ProcessedFiles)
	}
	if job.TotalFiles != 100 {
		t.Errorf("TotalFiles = %d, want 100 (events never carry queue totals)", job.TotalFiles)
	}
	if job.Phase != "embedding" {
		t.Errorf("Phase = %q, want embedding", job.Phase)
	}
	if job.State != models.JobStateRunning {
		t.Errorf("State = %q, want running preserved", job.State)
	}
}

func TestActivation_TerminalDeactivatesPollAndEventsKeepsLogs(t *testing.T) {
	r, poller, streams := newTestReconciler(t)

	r.ApplyPoll(snapshot(models.JobStatePending, 0))
	r.ApplyPoll(snapshot(models.JobStateRunning, 1))

	if !poller.Active() {
		t.Fatal("poll loop inactive while running")
	}
	if !streams.Live(stream.KindJobEvents) {
		t.Fatal("job-events stream not opened while running")
	}
	if !streams.Live(stream.KindLogs) {
		t.Fatal("logs stream not auto-opened on transition into running")
	}

	r.ApplyPoll(snapshot(models.JobStateCompleted, 100))

	if poller.Active() {
		t.Error("poll loop still active after completion")
	}
	if streams.Live(stream.KindJobEvents) {
		t.Error("job-events stream still open after completion")
	}
	if !streams.Live(stream.KindLogs) {
		t.Error("logs stream must stay open for inspection after completion")
	}
}

func TestActivation_LifecycleScenario(t *testing.T) {
	r, poller, _ := newTestReconciler(t)

	steps := []struct {
		state      models.JobState
		wantActive bool
	}{
		{models.JobStatePending, false},
		{models.JobStateRunning, true},
		{models.JobStatePaused, true},
		{models.JobStateRunning, true},
		{models.JobStateCompleted, false},
	}

	for _, step := range steps {
		r.ApplyPoll(snapshot(step.state, 0))
		if got := poller.Active(); got != step.wantActive {
			t.Errorf("state %s: poll active = %v, want %v", step.state, got, step.wantActive)
		}
	}
}

func TestActivation_UserLogsNotAutoOpened(t *testing.T) {
	r, _, streams := newTestReconciler(t)

	// The user opened logs, then closed them before the job started.
	r.MarkUserLogs(true)
	r.MarkUserLogs(true)
	streams.Close(stream.KindLogs)

	r.ApplyPoll(snapshot(models.JobStateRunning, 0))

	if streams.Live(stream.KindLogs) {
		t.Error("activation policy must not override the user's logs choice")
	}
}

func TestTerminalStateIsFrozen(t *testing.T) {
	r, _, _ := newTestReconciler(t)

	r.ApplyPoll(snapshot(models.JobStateRunning, 50))
	r.ApplyPoll(snapshot(models.JobStateCompleted, 100))

	// Late updates from either source must not resurrect the job.
	r.ApplyEvent(models.JobEvent{JobID: "job-1", State: statePtr(models.JobStateRunning), ProcessedFiles: intPtr(999)})
	r.ApplyPoll(snapshot(models.JobStateRunning, 51))

	job, _ := r.Job()
	if job.State != models.JobStateCompleted {
		t.Errorf("State = %q, want completed (terminal is immutable)", job.State)
	}
	if job.ProcessedFiles != 100 {
		t.Errorf("ProcessedFiles = %d, want 100", job.ProcessedFiles)
	}
}

func TestNewJobReplacesTerminalOne(t *testing.T) {
	r, poller, _ := newTestReconciler(t)

	r.ApplyPoll(snapshot(models.JobStateCompleted, 100))

	next := models.JobStatus{ID: "job-2", State: models.JobStateRunning, TotalFiles: 10}
	r.ApplyPoll(next)

	job, _ := r.Job()
	if job.ID != "job-2" || job.State != models.JobStateRunning {
		t.Errorf("job = %+v, want job-2 running", job)
	}
	if !poller.Active() {
		t.Error("poll loop inactive for the new live job")
	}
}

func TestEventForOtherJobWhileLiveIsIgnored(t *testing.T) {
	r, _, _ := newTestReconciler(t)

	r.ApplyPoll(snapshot(models.JobStateRunning, 5))
	r.ApplyEvent(models.JobEvent{JobID: "job-9", ProcessedFiles: intPtr(77)})

	job, _ := r.Job()
	if job.ID != "job-1" || job.ProcessedFiles != 5 {
		t.Errorf("job = %+v, want job-1 untouched", job)
	}
}

func TestSubscribersNotified(t *testing.T) {
	r, _, _ := newTestReconciler(t)

	var mu sync.Mutex
	var got []models.JobState
	r.Subscribe(func(j models.JobStatus) {
		mu.Lock()
		got = append(got, j.State)
		mu.Unlock()
	})

	r.ApplyPoll(snapshot(models.JobStateRunning, 0))
	r.ApplyPoll(snapshot(models.JobStateCompleted, 100))

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != models.JobStateRunning || got[1] != models.JobStateCompleted {
		t.Errorf("notifications = %v, want [running completed]", got)
	}
}
