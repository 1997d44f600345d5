package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/agri-dashboard/internal/adapter/kvstore"
	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/observability"
)

type detailError struct{ detail string }

func (e *detailError) Error() string { return "backend rejected request: " + e.detail }

func testDetail(err error) (string, bool) {
	var de *detailError
	if errors.As(err, &de) {
		return de.detail, true
	}
	return "", false
}

type fakeAuth struct {
	loginResp domain.AuthResponse
	loginErr  error
	regResp   domain.AuthResponse
	regErr    error
	calls     int
}

func (f *fakeAuth) Login(context.Context, domain.Credentials) (domain.AuthResponse, error) {
	f.calls++
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) Register(context.Context, domain.Registration) (domain.AuthResponse, error) {
	f.calls++
	return f.regResp, f.regErr
}

func newTestStore(auth Authenticator, kv domain.KeyValueStore) (*Store, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return NewStore(auth, kv, testDetail, slog.New(slog.NewTextHandler(io.Discard, nil)), m), m
}

var validCreds = domain.Credentials{Email: "asha@farm.in", Password: "secret1"}

func TestLoading_UntilRehydrate(t *testing.T) {
	s, _ := newTestStore(&fakeAuth{}, kvstore.NewMemory())
	assert.True(t, s.Loading())
	assert.False(t, s.IsAuthenticated())

	s.Rehydrate(context.Background())
	assert.False(t, s.Loading())
	assert.Equal(t, Anonymous, s.State())
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	auth := &fakeAuth{loginResp: domain.AuthResponse{
		Message: "Login successful",
		User:    &domain.User{ID: "u1", Name: "Asha", Email: "asha@farm.in", Role: "farmer"},
	}}
	s, m := newTestStore(auth, kv)
	s.Rehydrate(ctx)

	res := s.Login(ctx, validCreds)
	require.True(t, res.Success)
	assert.Equal(t, Authenticated, s.State())
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionAuthenticated))

	fresh, ok := s.CurrentUser(ctx)
	require.True(t, ok)
	assert.Equal(t, "Asha", fresh.Name)
	assert.Equal(t, "asha@farm.in", fresh.Email)

	// A second store over the same storage finds the session.
	other, _ := newTestStore(&fakeAuth{}, kv)
	other.Rehydrate(ctx)
	assert.True(t, other.IsAuthenticated())
}

func TestLogin_FailureUsesServerDetail(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuth{loginErr: &detailError{detail: "Invalid email or password"}}
	s, _ := newTestStore(auth, kvstore.NewMemory())
	s.Rehydrate(ctx)

	res := s.Login(ctx, validCreds)
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid email or password", res.Message)
	assert.Equal(t, Anonymous, s.State())

	_, ok := s.CurrentUser(ctx)
	assert.False(t, ok)
}

func TestLogin_FailureWithoutDetailUsesDefault(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(&fakeAuth{loginErr: errors.New("boom")}, kvstore.NewMemory())
	s.Rehydrate(ctx)

	res := s.Login(ctx, validCreds)
	assert.False(t, res.Success)
	assert.Equal(t, defaultLoginError, res.Message)
}

func TestLogin_FailureAfterSuccessClearsStoredUser(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	auth := &fakeAuth{loginResp: domain.AuthResponse{
		User: &domain.User{ID: "u1", Name: "Asha", Email: "asha@farm.in"},
	}}
	s, m := newTestStore(auth, kv)
	s.Rehydrate(ctx)
	require.True(t, s.Login(ctx, validCreds).Success)

	auth.loginResp = domain.AuthResponse{}
	auth.loginErr = &detailError{detail: "Invalid email or password"}
	res := s.Login(ctx, validCreds)

	assert.False(t, res.Success)
	assert.Equal(t, Anonymous, s.State())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionAuthenticated))
	_, ok := s.CurrentUser(ctx)
	assert.False(t, ok)

	s.Rehydrate(ctx)
	assert.Equal(t, Anonymous, s.State())
	assert.False(t, s.IsAuthenticated())

	fresh, _ := newTestStore(&fakeAuth{}, kv)
	fresh.Rehydrate(ctx)
	assert.False(t, fresh.IsAuthenticated())
}

func TestLogin_IncompleteUserIsRejected(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuth{loginResp: domain.AuthResponse{User: &domain.User{Email: "asha@farm.in"}}}
	s, _ := newTestStore(auth, kvstore.NewMemory())
	s.Rehydrate(ctx)

	res := s.Login(ctx, validCreds)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
	assert.False(t, s.IsAuthenticated())
}

func TestLogin_InvalidInputSkipsBackend(t *testing.T) {
	auth := &fakeAuth{}
	s, _ := newTestStore(auth, kvstore.NewMemory())

	res := s.Login(context.Background(), domain.Credentials{Email: "not-an-email"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "Email must be a valid email address")
	assert.Contains(t, res.Message, "Password is required")
	assert.Zero(t, auth.calls)
}

func TestRegister_NeverAuthenticates(t *testing.T) {
	ctx := context.Background()
	reg := domain.Registration{Name: "Asha", Email: "asha@farm.in", Password: "secret1"}

	t.Run("server message", func(t *testing.T) {
		s, _ := newTestStore(&fakeAuth{regResp: domain.AuthResponse{Message: "Account created"}}, kvstore.NewMemory())
		s.Rehydrate(ctx)
		res := s.Register(ctx, reg)
		assert.True(t, res.Success)
		assert.Equal(t, "Account created", res.Message)
		assert.Equal(t, Anonymous, s.State())
	})

	t.Run("default message", func(t *testing.T) {
		s, _ := newTestStore(&fakeAuth{}, kvstore.NewMemory())
		res := s.Register(ctx, reg)
		assert.True(t, res.Success)
		assert.Equal(t, defaultRegistered, res.Message)
	})

	t.Run("failure", func(t *testing.T) {
		s, _ := newTestStore(&fakeAuth{regErr: &detailError{detail: "Email already registered"}}, kvstore.NewMemory())
		res := s.Register(ctx, reg)
		assert.False(t, res.Success)
		assert.Equal(t, "Email already registered", res.Message)
	})
}

func TestLogout_ClearsUserAndToken(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	require.NoError(t, kv.Set(ctx, domain.KeyUser, `{"name":"Asha","email":"asha@farm.in"}`))
	require.NoError(t, kv.Set(ctx, domain.KeyToken, "legacy-token"))

	s, m := newTestStore(&fakeAuth{}, kv)
	s.Rehydrate(ctx)
	require.True(t, s.IsAuthenticated())

	require.NoError(t, s.Logout(ctx))
	assert.Equal(t, Anonymous, s.State())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionAuthenticated))

	_, ok, _ := kv.Get(ctx, domain.KeyUser)
	assert.False(t, ok)
	_, ok, _ = kv.Get(ctx, domain.KeyToken)
	assert.False(t, ok)
}

func TestRehydrate_IncompleteOrCorruptUserIsAnonymous(t *testing.T) {
	for name, raw := range map[string]string{
		"missing email": `{"name":"Asha"}`,
		"corrupt":       `{"name":`,
		"wrong type":    `[]`,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			kv := kvstore.NewMemory()
			require.NoError(t, kv.Set(ctx, domain.KeyUser, raw))

			s, _ := newTestStore(&fakeAuth{}, kv)
			s.Rehydrate(ctx)
			assert.False(t, s.IsAuthenticated())
			assert.False(t, s.Loading())
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "anonymous", Anonymous.String())
	assert.Equal(t, "authenticating", Authenticating.String())
	assert.Equal(t, "authenticated", Authenticated.String())
}
