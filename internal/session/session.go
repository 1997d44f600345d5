// Package session tracks the signed-in user. The user record is persisted
// under the "user" key so a restart (or another CLI invocation) finds the same
// session after Rehydrate.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/observability"
	"github.com/couchcryptid/agri-dashboard/internal/validate"
)

// State is the lifecycle position of the session.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

const (
	defaultLoginError    = "Login failed. Please check your credentials."
	defaultRegisterError = "Registration failed. Please try again."
	defaultRegistered    = "Registration successful. Please log in."
)

// Authenticator is the part of the backend facade the session needs.
type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.AuthResponse, error)
	Register(ctx context.Context, reg domain.Registration) (domain.AuthResponse, error)
}

// DetailFunc extracts a user-facing message from a backend error: the
// server's detail, or the transport failure text.
type DetailFunc func(err error) (string, bool)

// Result reports the outcome of a login or registration.
type Result struct {
	Success bool
	Message string
}

// Store owns the session state machine.
type Store struct {
	auth    Authenticator
	kv      domain.KeyValueStore
	detail  DetailFunc
	logger  *slog.Logger
	metrics *observability.Metrics

	mu         sync.RWMutex
	state      State
	user       *domain.User
	rehydrated bool
}

// NewStore creates a store in the loading state. Call Rehydrate before
// consulting IsAuthenticated.
func NewStore(auth Authenticator, kv domain.KeyValueStore, detail DetailFunc, logger *slog.Logger, metrics *observability.Metrics) *Store {
	if detail == nil {
		detail = func(error) (string, bool) { return "", false }
	}
	return &Store{auth: auth, kv: kv, detail: detail, logger: logger, metrics: metrics}
}

// Rehydrate restores the session from storage. An unreadable or incomplete
// stored user leaves the session anonymous.
func (s *Store) Rehydrate(ctx context.Context) {
	user, _ := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rehydrated = true
	if user == nil {
		s.setLocked(Anonymous, nil)
		return
	}
	s.setLocked(Authenticated, user)
	s.logger.Debug("session rehydrated", "email", user.Email)
}

// Loading reports whether rehydration has not completed yet.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.rehydrated
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsAuthenticated reports whether a complete user is signed in.
func (s *Store) IsAuthenticated() bool {
	return s.State() == Authenticated
}

// User returns the in-memory user, if signed in.
func (s *Store) User() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

// CurrentUser reads the persisted user fresh from storage.
func (s *Store) CurrentUser(ctx context.Context) (domain.User, bool) {
	user, err := s.load(ctx)
	if err != nil || user == nil {
		return domain.User{}, false
	}
	return *user, true
}

// Login authenticates against the backend. On success the user is persisted
// and the session becomes authenticated; on failure any earlier session is
// cleared and the store falls back to anonymous with a human-readable message.
func (s *Store) Login(ctx context.Context, creds domain.Credentials) Result {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := validate.New().Struct(creds); err != nil {
		return Result{Message: strings.Join(validate.Messages(err), "; ")}
	}

	s.transition(Authenticating, nil)

	resp, err := s.auth.Login(ctx, creds)
	if err != nil {
		s.drop(ctx)
		msg := s.message(err, defaultLoginError)
		s.logger.Info("login failed", "email", creds.Email, "error", err)
		return Result{Message: msg}
	}
	if resp.User == nil || !resp.User.Complete() {
		s.drop(ctx)
		s.logger.Warn("login response without a complete user", "email", creds.Email)
		return Result{Message: defaultLoginError}
	}

	data, err := json.Marshal(resp.User)
	if err != nil {
		s.drop(ctx)
		return Result{Message: defaultLoginError}
	}
	if err := s.kv.Set(ctx, domain.KeyUser, string(data)); err != nil {
		s.drop(ctx)
		s.logger.Error("persist session user", "error", err)
		return Result{Message: fmt.Sprintf("Could not save session: %v", err)}
	}

	user := *resp.User
	s.transition(Authenticated, &user)
	s.logger.Info("login succeeded", "email", user.Email)
	return Result{Success: true, Message: resp.Message}
}

// Register creates an account. It never signs the user in.
func (s *Store) Register(ctx context.Context, reg domain.Registration) Result {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Name = strings.TrimSpace(reg.Name)
	if err := validate.New().Struct(reg); err != nil {
		return Result{Message: strings.Join(validate.Messages(err), "; ")}
	}

	resp, err := s.auth.Register(ctx, reg)
	if err != nil {
		s.logger.Info("registration failed", "email", reg.Email, "error", err)
		return Result{Message: s.message(err, defaultRegisterError)}
	}
	msg := resp.Message
	if msg == "" {
		msg = defaultRegistered
	}
	return Result{Success: true, Message: msg}
}

// Logout clears the persisted user and token and returns to anonymous.
func (s *Store) Logout(ctx context.Context) error {
	err := s.clear(ctx)
	s.transition(Anonymous, nil)
	s.logger.Info("logged out")
	return err
}

// drop returns to anonymous after a failed login. Storage is cleared too so a
// later Rehydrate or CurrentUser cannot bring back the previous user.
func (s *Store) drop(ctx context.Context) {
	if err := s.clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("failed login left a stored session", "error", err)
	}
	s.transition(Anonymous, nil)
}

func (s *Store) clear(ctx context.Context) error {
	var errs []error
	for _, key := range []string{domain.KeyUser, domain.KeyToken} {
		if err := s.kv.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Store) message(err error, fallback string) string {
	if msg, ok := s.detail(err); ok && msg != "" {
		return msg
	}
	return fallback
}

func (s *Store) load(ctx context.Context) (*domain.User, error) {
	raw, ok, err := s.kv.Get(ctx, domain.KeyUser)
	if err != nil {
		s.logger.Debug("stored user unreadable", "error", err)
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logger.Debug("stored user corrupted", "error", err)
		return nil, err
	}
	if !user.Complete() {
		return nil, nil
	}
	return &user, nil
}

func (s *Store) transition(state State, user *domain.User) {
	s.mu.Lock()
	s.setLocked(state, user)
	s.mu.Unlock()
}

func (s *Store) setLocked(state State, user *domain.User) {
	s.state = state
	s.user = user
	if s.metrics == nil {
		return
	}
	if state == Authenticated {
		s.metrics.SessionAuthenticated.Set(1)
	} else {
		s.metrics.SessionAuthenticated.Set(0)
	}
}
