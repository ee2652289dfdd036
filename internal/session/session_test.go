package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/api"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/models"
)

// fakeBackend scripts auth responses and counts calls.
type fakeBackend struct {
	meCalls     int
	meErr       error
	principal   models.Principal
	logoutCalls int
	logoutErr   error
}

func (f *fakeBackend) Login(ctx context.Context, creds api.Credentials) (*api.AuthResult, error) {
	return &api.AuthResult{Token: "tok-" + creds.Username, Principal: models.Principal{Username: creds.Username}}, nil
}

func (f *fakeBackend) Register(ctx context.Context, creds api.Credentials) (*api.AuthResult, error) {
	return f.Login(ctx, creds)
}

func (f *fakeBackend) Logout(ctx context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeBackend) Me(ctx context.Context) (*models.Principal, error) {
	f.meCalls++
	if f.meErr != nil {
		return nil, f.meErr
	}
	p := f.principal
	return &p, nil
}

func newTestGuard(t *testing.T, backend *fakeBackend) *Guard {
	t.Helper()
	return New(Config{Backend: backend})
}

func TestValidate_ThrottledWithinTTL(t *testing.T) {
	backend := &fakeBackend{principal: models.Principal{Username: "admin"}}
	g := newTestGuard(t, backend)
	g.token = "tok"

	_, err := g.Validate(context.Background(), false)
	require.NoError(t, err)
	_, err = g.Validate(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.meCalls, "second non-forced validate within TTL must not hit the network")
}

func TestValidate_ForceBypassesThrottle(t *testing.T) {
	backend := &fakeBackend{principal: models.Principal{Username: "admin"}}
	g := newTestGuard(t, backend)
	g.token = "tok"

	_, err := g.Validate(context.Background(), false)
	require.NoError(t, err)
	_, err = g.Validate(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, 2, backend.meCalls)
}

func TestValidate_ExpiredTTLRevalidates(t *testing.T) {
	backend := &fakeBackend{principal: models.Principal{Username: "admin"}}
	g := newTestGuard(t, backend)
	g.token = "tok"

	clock := time.Now()
	g.now = func() time.Time { return clock }

	_, err := g.Validate(context.Background(), false)
	require.NoError(t, err)

	clock = clock.Add(DefaultValidateTTL + time.Second)
	_, err = g.Validate(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 2, backend.meCalls)
}

func TestValidate_NoTokenIssuesNoCall(t *testing.T) {
	backend := &fakeBackend{}
	g := newTestGuard(t, backend)

	s, err := g.Validate(context.Background(), true)
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
	assert.Zero(t, backend.meCalls)
}

func TestValidate_FailureClearsCredentials(t *testing.T) {
	backend := &fakeBackend{meErr: errors.New("token rejected")}
	g := newTestGuard(t, backend)
	g.token = "tok"

	s, err := g.Validate(context.Background(), true)
	require.Error(t, err)
	assert.Empty(t, s.Token)
	assert.Nil(t, s.Principal)
	assert.Empty(t, g.Token())
}

func TestHandleUnauthorized_MidSessionExpiry(t *testing.T) {
	g := newTestGuard(t, &fakeBackend{})
	g.token = "tok"
	g.principal = &models.Principal{Username: "admin"}

	g.HandleUnauthorized()

	s := g.Snapshot()
	assert.Empty(t, s.Token)
	assert.Nil(t, s.Principal)
	assert.True(t, s.Expired, "expiry flag must be set when a principal was present")
}

func TestHandleUnauthorized_AnonymousVisitor(t *testing.T) {
	g := newTestGuard(t, &fakeBackend{})
	g.token = "tok" // stale token, never validated

	g.HandleUnauthorized()

	s := g.Snapshot()
	assert.Empty(t, s.Token)
	assert.False(t, s.Expired, "no spurious expiry notice for users who were never logged in")
}

func TestLogin_ClearsExpiredFlag(t *testing.T) {
	g := newTestGuard(t, &fakeBackend{})
	g.expired = true

	s, err := g.Login(context.Background(), api.Credentials{Username: "admin", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok-admin", s.Token)
	require.NotNil(t, s.Principal)
	assert.Equal(t, "admin", s.Principal.Username)
	assert.False(t, s.Expired)
}

func TestLogout_BestEffort(t *testing.T) {
	backend := &fakeBackend{logoutErr: errors.New("backend down")}
	g := newTestGuard(t, backend)
	g.token = "tok"
	g.principal = &models.Principal{Username: "admin"}

	g.Logout(context.Background())

	assert.Equal(t, 1, backend.logoutCalls)
	s := g.Snapshot()
	assert.Empty(t, s.Token, "local state is cleared even when the backend call fails")
	assert.Nil(t, s.Principal)
	assert.False(t, s.Expired)
}

func TestFileStore_RoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "cfg", "token"))

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token, "missing file reads as no token")

	require.NoError(t, store.Save("tok-123"))
	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clear is idempotent")
	token, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}
