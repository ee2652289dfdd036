package console

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/api"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/config"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/guard"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/models"
)

// fakeBackend is an in-memory stand-in for the ingestion backend's queue
// and auth endpoints.
type fakeBackend struct {
	mu    sync.Mutex
	queue []models.QueueEntry
	srv   *httptest.Server

	failAll bool // respond 401 to everything
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/queue", func(w http.ResponseWriter, r *http.Request) {
		if b.unauthorized(w) {
			return
		}
		var input api.EnqueueInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		entry := models.QueueEntry{
			ID:          input.ID,
			Profile:     input.Profile,
			FileTypes:   input.FileTypes,
			Incremental: input.Incremental,
			RetryFailed: input.RetryFailed,
			SkipErrored: input.SkipErrored,
			Priority:    input.Priority,
			EnqueuedAt:  time.Now(),
		}
		b.mu.Lock()
		b.queue = append(b.queue, entry)
		b.mu.Unlock()
		json.NewEncoder(w).Encode(entry)
	})
	mux.HandleFunc("GET /api/queue", func(w http.ResponseWriter, r *http.Request) {
		if b.unauthorized(w) {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.queue)
	})
	mux.HandleFunc("DELETE /api/queue/{id}", func(w http.ResponseWriter, r *http.Request) {
		if b.unauthorized(w) {
			return
		}
		id := r.PathValue("id")
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.queue {
			if e.ID == id {
				b.queue = append(b.queue[:i], b.queue[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		http.Error(w, `{"code":"not_found","message":"no such entry"}`, http.StatusNotFound)
	})
	mux.HandleFunc("GET /api/jobs/current", func(w http.ResponseWriter, r *http.Request) {
		if b.unauthorized(w) {
			return
		}
		json.NewEncoder(w).Encode(models.JobStatus{ID: "job-1", State: models.JobStatePending})
	})
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.AuthResult{
			Token:     "tok-test",
			Principal: models.Principal{ID: "u1", Username: "admin"},
		})
	})

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) unauthorized(w http.ResponseWriter) bool {
	b.mu.Lock()
	fail := b.failAll
	b.mu.Unlock()
	if fail {
		w.WriteHeader(http.StatusUnauthorized)
	}
	return fail
}

func newTestApp(t *testing.T, backend *fakeBackend) *App {
	t.Helper()
	cfg := config.Defaults()
	cfg.ServerURL = backend.srv.URL
	cfg.TokenFile = "" // keep tests off the real config dir
	cfg.RetryDelay = time.Millisecond

	app := New(cfg, testLogger())
	t.Cleanup(app.Close)
	return app
}

func TestEnqueueScenario(t *testing.T) {
	backend := newFakeBackend(t)
	app := newTestApp(t, backend)
	ctx := context.Background()

	entry, err := app.Enqueue(ctx, api.EnqueueInput{
		Profile:     "alpha",
		FileTypes:   []string{"all"},
		Incremental: true,
	})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if entry.ID == "" {
		t.Error("entry id was not generated")
	}
	if entry.Profile != "alpha" || !entry.Incremental || len(entry.FileTypes) != 1 || entry.FileTypes[0] != "all" {
		t.Errorf("entry = %+v, want the exact requested fields", entry)
	}

	queue := app.Store.Queue()
	if len(queue) != 1 || queue[0].ID != entry.ID {
		t.Fatalf("store queue = %+v, want the new entry after refresh", queue)
	}
	if !app.HasPendingProfile("alpha") {
		t.Error("HasPendingProfile(alpha) = false")
	}

	// Removing by id empties the queue. The cooldown only gates
	// duplicate-prone operations, so dequeue runs immediately.
	if err := app.RemoveFromQueue(ctx, entry.ID); err != nil {
		t.Fatalf("RemoveFromQueue() error = %v", err)
	}
	if got := app.Store.Queue(); len(got) != 0 {
		t.Errorf("store queue = %+v, want empty", got)
	}
}

func TestEnqueueCooldownRejectsRepeat(t *testing.T) {
	backend := newFakeBackend(t)
	app := newTestApp(t, backend)
	ctx := context.Background()

	if _, err := app.Enqueue(ctx, api.EnqueueInput{Profile: "alpha"}); err != nil {
		t.Fatalf("first Enqueue() error = %v", err)
	}
	if !app.CooldownActive() {
		t.Fatal("cooldown not active after successful enqueue")
	}

	_, err := app.Enqueue(ctx, api.EnqueueInput{Profile: "alpha"})
	if err == nil {
		t.Fatal("second Enqueue() succeeded during cooldown")
	}
	if !isRejected(err) {
		t.Errorf("error = %v, want a local guard rejection", err)
	}

	backend.mu.Lock()
	n := len(backend.queue)
	backend.mu.Unlock()
	if n != 1 {
		t.Errorf("backend saw %d enqueues, want 1 (rejection is network-free)", n)
	}
}

func TestUnauthorizedClearsSessionEndToEnd(t *testing.T) {
	backend := newFakeBackend(t)
	app := newTestApp(t, backend)
	ctx := context.Background()

	// Establish a real session, then have the backend stop honoring it.
	if _, err := app.Session.Login(ctx, api.Credentials{Username: "admin", Password: "pw"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	backend.mu.Lock()
	backend.failAll = true
	backend.mu.Unlock()

	err := app.RefreshQueue(ctx)
	if err == nil {
		t.Fatal("RefreshQueue() succeeded against a 401 backend")
	}

	s := app.Session.Snapshot()
	if s.Token != "" || s.Principal != nil {
		t.Errorf("session = %+v, want credentials cleared", s)
	}
	if !s.Expired {
		t.Error("session not marked expired despite a present principal")
	}
}

func isRejected(err error) bool {
	return errors.Is(err, guard.ErrRejected)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
