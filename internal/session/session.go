// Package session manages the client's authentication state: the stored
// token, the validated principal, and the mid-session expiry signal.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/api"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/models"
)

// DefaultValidateTTL bounds how often opportunistic (non-forced)
// validation actually hits the network.
const DefaultValidateTTL = 5 * time.Minute

// Backend is the slice of the API client the guard needs.
type Backend interface {
	Login(ctx context.Context, creds api.Credentials) (*api.AuthResult, error)
	Register(ctx context.Context, creds api.Credentials) (*api.AuthResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.Principal, error)
}

// TokenStore persists the credential token between invocations. All other
// session state is per-process.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Guard owns session state. It implements transport.CredentialSource and
// is the single listener for the transport's unauthorized signal.
type Guard struct {
	backend Backend
	store   TokenStore
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu          sync.Mutex
	token       string
	principal   *models.Principal
	validatedAt time.Time
	expired     bool
}

// Config holds guard settings.
type Config struct {
	Backend     Backend
	Store       TokenStore // optional
	ValidateTTL time.Duration
	Logger      *slog.Logger
}

// New creates a session guard. If a token store is configured, the stored
// token is loaded eagerly; it is unvalidated until the first Validate.
func New(cfg Config) *Guard {
	if cfg.ValidateTTL <= 0 {
		cfg.ValidateTTL = DefaultValidateTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g := &Guard{
		backend: cfg.Backend,
		store:   cfg.Store,
		ttl:     cfg.ValidateTTL,
		now:     time.Now,
		logger:  logger,
	}
	if cfg.Store != nil {
		if token, err := cfg.Store.Load(); err == nil && token != "" {
			g.token = token
		}
	}
	return g
}

// Token returns the stored credential token, empty when anonymous.
func (g *Guard) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

// Snapshot returns the current session state.
func (g *Guard) Snapshot() models.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Guard) snapshotLocked() models.Session {
	return models.Session{
		Token:       g.token,
		Principal:   g.principal,
		ValidatedAt: g.validatedAt,
		Expired:     g.expired,
	}
}

// Validate checks the stored token against the backend. Unless force is
// set, a validation newer than the TTL is answered from cache without a
// network call. On failure the stored credentials are cleared.
func (g *Guard) Validate(ctx context.Context, force bool) (models.Session, error) {
	g.mu.Lock()
	if g.token == "" {
		s := g.snapshotLocked()
		g.mu.Unlock()
		return s, nil
	}
	if !force && !g.validatedAt.IsZero() && g.now().Sub(g.validatedAt) < g.ttl {
		s := g.snapshotLocked()
		g.mu.Unlock()
		return s, nil
	}
	g.mu.Unlock()

	// The call runs unlocked: a 401 re-enters through HandleUnauthorized.
	principal, err := g.backend.Me(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.clearLocked()
		return g.snapshotLocked(), err
	}
	g.principal = principal
	g.validatedAt = g.now()
	return g.snapshotLocked(), nil
}

// Wake is the opportunistic revalidation trigger: any signal that the
// client may have been inactive (command start, UI resume) lands here.
// Failures are logged, not surfaced; the TTL keeps the query rate bounded.
func (g *Guard) Wake(ctx context.Context) {
	if _, err := g.Validate(ctx, false); err != nil {
		g.logger.Debug("opportunistic revalidation failed", "error", err)
	}
}

// Login authenticates and stores the returned token and principal.
func (g *Guard) Login(ctx context.Context, creds api.Credentials) (models.Session, error) {
	res, err := g.backend.Login(ctx, creds)
	if err != nil {
		return g.Snapshot(), err
	}
	return g.adopt(res), nil
}

// Register creates an account and stores the returned token and principal.
func (g *Guard) Register(ctx context.Context, creds api.Credentials) (models.Session, error) {
	res, err := g.backend.Register(ctx, creds)
	if err != nil {
		return g.Snapshot(), err
	}
	return g.adopt(res), nil
}

func (g *Guard) adopt(res *api.AuthResult) models.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = res.Token
	p := res.Principal
	g.principal = &p
	g.validatedAt = g.now()
	g.expired = false
	g.persistLocked(res.Token)
	return g.snapshotLocked()
}

// Logout notifies the backend best-effort and unconditionally clears
// local session state.
func (g *Guard) Logout(ctx context.Context) {
	if err := g.backend.Logout(ctx); err != nil {
		g.logger.Debug("logout notification failed", "error", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clearLocked()
	g.expired = false
}

// HandleUnauthorized reacts to the process-wide unauthorized signal: it
// clears stored credentials and marks the session expired only when a
// principal was present. Anonymous visitors never see an expiry notice.
func (g *Guard) HandleUnauthorized() {
	g.mu.Lock()
	defer g.mu.Unlock()
	hadPrincipal := g.principal != nil
	g.clearLocked()
	if hadPrincipal {
		g.expired = true
		g.logger.Info("session expired mid-use, credentials cleared")
	}
}

func (g *Guard) clearLocked() {
	g.token = ""
	g.principal = nil
	g.validatedAt = time.Time{}
	g.persistLocked("")
}

func (g *Guard) persistLocked(token string) {
	if g.store == nil {
		return
	}
	var err error
	if token == "" {
		err = g.store.Clear()
	} else {
		err = g.store.Save(token)
	}
	if err != nil {
		g.logger.Warn("token store update failed", "error", err)
	}
}
