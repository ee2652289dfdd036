// Package models defines the data shapes exchanged with the ingestion backend.
package models

import "time"

// JobState represents the lifecycle state of an ingestion job.
type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateRunning   JobState = "running"
	JobStatePaused    JobState = "paused"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateStopped   JobState = "stopped"
)

// Live reports whether the backend is still actively working the job.
func (s JobState) Live() bool {
	return s == JobStateRunning || s == JobStatePaused
}

// Terminal reports whether the state is final. A job in a terminal state
// never changes again.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed || s == JobStateStopped
}

// JobStatus is a snapshot of an ingestion job as reported by the backend.
// Phase is only meaningful while the job is running or paused.
type JobStatus struct {
	ID             string     `json:"id"`
	State          JobState   `json:"state"`
	Phase          string     `json:"phase,omitempty"`
	TotalFiles     int        `json:"total_files"`
	ProcessedFiles int        `json:"processed_files"`
	FailedFiles    int        `json:"failed_files"`
	ChunksCreated  int        `json:"chunks_created"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ElapsedSeconds float64    `json:"elapsed_seconds,omitempty"`
	EtaSeconds     float64    `json:"eta_seconds,omitempty"`
	FilesPerSecond float64    `json:"files_per_second,omitempty"`
}

// Elapsed returns the reported elapsed time, or derives it from StartedAt
// when the backend omitted it.
func (j JobStatus) Elapsed(now time.Time) time.Duration {
	if j.ElapsedSeconds > 0 {
		return time.Duration(j.ElapsedSeconds * float64(time.Second))
	}
	if j.StartedAt == nil {
		return 0
	}
	end := now
	if j.CompletedAt != nil {
		end = *j.CompletedAt
	}
	if end.Before(*j.StartedAt) {
		return 0
	}
	return end.Sub(*j.StartedAt)
}

// Rate returns files processed per second, derived when not reported.
func (j JobStatus) Rate(now time.Time) float64 {
	if j.FilesPerSecond > 0 {
		return j.FilesPerSecond
	}
	elapsed := j.Elapsed(now).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(j.ProcessedFiles) / elapsed
}

// Remaining estimates time until completion. Returns 0 when no estimate is
// possible (unknown total or zero rate).
func (j JobStatus) Remaining(now time.Time) time.Duration {
	if j.EtaSeconds > 0 {
		return time.Duration(j.EtaSeconds * float64(time.Second))
	}
	rate := j.Rate(now)
	left := j.TotalFiles - j.ProcessedFiles - j.FailedFiles
	if rate <= 0 || left <= 0 {
		return 0
	}
	return time.Duration(float64(left) / rate * float64(time.Second))
}
