package models

import "time"

// QueueEntry is a pending ingestion request that has not started yet.
type QueueEntry struct {
	ID          string    `json:"id"`
	Profile     string    `json:"profile"`
	FileTypes   []string  `json:"file_types,omitempty"`
	Incremental bool      `json:"incremental"`
	RetryFailed bool      `json:"retry_failed"`
	SkipErrored bool      `json:"skip_errored"`
	Priority    int       `json:"priority,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// ScheduleFrequency is how often a schedule fires.
type ScheduleFrequency string

const (
	FrequencyHourly  ScheduleFrequency = "hourly"
	FrequencyDaily   ScheduleFrequency = "daily"
	FrequencyWeekly  ScheduleFrequency = "weekly"
	FrequencyMonthly ScheduleFrequency = "monthly"
)

// Schedule is a recurring rule that enqueues ingestion runs. NextRun is
// computed by the backend and treated as read-only here.
type Schedule struct {
	ID        string            `json:"id"`
	Profile   string            `json:"profile"`
	Frequency ScheduleFrequency `json:"frequency"`
	HourOfDay int               `json:"hour_of_day"`
	Enabled   bool              `json:"enabled"`
	NextRun   *time.Time        `json:"next_run,omitempty"`
}
