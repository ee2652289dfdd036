package models

import "time"

// LogEntry is a single backend log line delivered over the logs stream.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Logger    string    `json:"logger,omitempty"`
}

// JobEvent is a partial job update pushed over the job-events stream.
// Pointer fields distinguish "not carried by this event" from zero values;
// the stream never carries queue totals, those come from polling only.
type JobEvent struct {
	JobID          string    `json:"job_id"`
	State          *JobState `json:"state,omitempty"`
	Phase          *string   `json:"phase,omitempty"`
	ProcessedFiles *int      `json:"processed_files,omitempty"`
	FailedFiles    *int      `json:"failed_files,omitempty"`
	ChunksCreated  *int      `json:"chunks_created,omitempty"`
	ElapsedSeconds *float64  `json:"elapsed_seconds,omitempty"`
	EtaSeconds     *float64  `json:"eta_seconds,omitempty"`
	FilesPerSecond *float64  `json:"files_per_second,omitempty"`
}
