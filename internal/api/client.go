// Package api provides the typed client for the ingestion backend's
// HTTP endpoints. All calls go through the shared transport, which owns
// retry, timeout, and error classification.
package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/models"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/transport"
)

// Client wraps the transport with one method per backend operation.
type Client struct {
	t *transport.Client
}

// New creates an API client on top of the given transport.
func New(t *transport.Client) *Client {
	return &Client{t: t}
}

// Transport exposes the underlying transport for wiring (credentials,
// unauthorized hook).
func (c *Client) Transport() *transport.Client {
	return c.t
}

// =============================================================================
// JOB OPERATIONS
// =============================================================================

// JobStatus fetches the snapshot of the current ingestion job.
func (c *Client) JobStatus(ctx context.Context) (*models.JobStatus, error) {
	var out models.JobStatus
	if err := c.t.Do(ctx, http.MethodGet, "/api/jobs/current", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetJob fetches a job snapshot by id.
func (c *Client) GetJob(ctx context.Context, id string) (*models.JobStatus, error) {
	var out models.JobStatus
	if err := c.t.Do(ctx, http.MethodGet, "/api/jobs/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pause asks the backend to pause the running job.
func (c *Client) Pause(ctx context.Context) error {
	return c.t.Do(ctx, http.MethodPost, "/api/jobs/current/pause", nil, nil)
}

// Resume resumes a paused job.
func (c *Client) Resume(ctx context.Context) error {
	return c.t.Do(ctx, http.MethodPost, "/api/jobs/current/resume", nil, nil)
}

// Stop stops the running job. Stopped jobs are terminal.
func (c *Client) Stop(ctx context.Context) error {
	return c.t.Do(ctx, http.MethodPost, "/api/jobs/current/stop", nil, nil)
}

// =============================================================================
// QUEUE OPERATIONS
// =============================================================================

// EnqueueInput describes a queue entry to create. ID is generated
// client-side when empty.
type EnqueueInput struct {
	ID          string   `json:"id"`
	Profile     string   `json:"profile"`
	FileTypes   []string `json:"file_types,omitempty"`
	Incremental bool     `json:"incremental"`
	RetryFailed bool     `json:"retry_failed"`
	SkipErrored bool     `json:"skip_errored"`
	Priority    int      `json:"priority,omitempty"`
}

// ListQueue returns pending queue entries in backend order.
func (c *Client) ListQueue(ctx context.Context) ([]models.QueueEntry, error) {
	var out []models.QueueEntry
	if err := c.t.Do(ctx, http.MethodGet, "/api/queue", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Enqueue creates a pending queue entry for the given profile.
func (c *Client) Enqueue(ctx context.Context, input EnqueueInput) (*models.QueueEntry, error) {
	if input.ID == "" {
		input.ID = uuid.New().String()[:8]
	}
	var out models.QueueEntry
	if err := c.t.Do(ctx, http.MethodPost, "/api/queue", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveFromQueue cancels a pending queue entry by id.
func (c *Client) RemoveFromQueue(ctx context.Context, id string) error {
	return c.t.Do(ctx, http.MethodDelete, "/api/queue/"+id, nil, nil)
}

// =============================================================================
// SCHEDULE OPERATIONS
// =============================================================================

// ScheduleInput describes a recurring schedule to create.
type ScheduleInput struct {
	Profile   string                   `json:"profile"`
	Frequency models.ScheduleFrequency `json:"frequency"`
	HourOfDay int                      `json:"hour_of_day"`
	Enabled   bool                     `json:"enabled"`
}

// ListSchedules returns all recurring schedules.
func (c *Client) ListSchedules(ctx context.Context) ([]models.Schedule, error) {
	var out []models.Schedule
	if err := c.t.Do(ctx, http.MethodGet, "/api/schedules", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSchedule creates a new recurring schedule.
func (c *Client) CreateSchedule(ctx context.Context, input ScheduleInput) (*models.Schedule, error) {
	var out models.Schedule
	if err := c.t.Do(ctx, http.MethodPost, "/api/schedules", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleSchedule flips a schedule's enabled flag.
func (c *Client) ToggleSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	var out models.Schedule
	if err := c.t.Do(ctx, http.MethodPost, "/api/schedules/"+id+"/toggle", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSchedule removes a schedule.
func (c *Client) DeleteSchedule(ctx context.Context, id string) error {
	return c.t.Do(ctx, http.MethodDelete, "/api/schedules/"+id, nil, nil)
}

// RunScheduleNow fires a schedule immediately, enqueueing its profile.
func (c *Client) RunScheduleNow(ctx context.Context, id string) error {
	return c.t.Do(ctx, http.MethodPost, "/api/schedules/"+id+"/run", nil, nil)
}

// =============================================================================
// AUTH OPERATIONS
// =============================================================================

// Credentials are login/registration inputs.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResult is the backend's response to login/register.
type AuthResult struct {
	Token     string           `json:"token"`
	Principal models.Principal `json:"principal"`
}

// Login authenticates and returns a fresh token with its principal.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	var out AuthResult
	if err := c.t.Do(ctx, http.MethodPost, "/api/auth/login", creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns a fresh token with its principal.
func (c *Client) Register(ctx context.Context, creds Credentials) (*AuthResult, error) {
	var out AuthResult
	if err := c.t.Do(ctx, http.MethodPost, "/api/auth/register", creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the token server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.t.Do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the principal for the attached token.
func (c *Client) Me(ctx context.Context) (*models.Principal, error) {
	var out models.Principal
	if err := c.t.Do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
