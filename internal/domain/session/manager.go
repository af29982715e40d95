// Package session owns the authentication lifecycle: who is signed in, the
// bearer token, and how that survives restarts through a kv.Store.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/restoran/internal/kv"
	"github.com/xenking/restoran/internal/notify"
)

// Snapshot is a consistent read of the session state.
type Snapshot struct {
	State      State
	User       *User
	Submitting bool
}

// IsAuthenticated reports whether the snapshot has a signed-in user.
func (s Snapshot) IsAuthenticated() bool {
	return s.State == StateAuthenticated
}

// IsLoading reports whether rehydration or a network operation is in flight.
func (s Snapshot) IsLoading() bool {
	return s.State == StateUninitialized || s.State == StateLoading || s.Submitting
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager holds the session. The token is present iff the state is
// StateAuthenticated.
type Manager struct {
	store    kv.Store
	auth     Authenticator
	notifier notify.Notifier
	lg       *zap.Logger
	validate *validator.Validate
	now      func() time.Time

	mu       sync.Mutex
	state    State
	user     *User
	token    string
	inflight int
}

// NewManager creates a Manager and rehydrates the persisted session. This
// is the only read of the stored record during the manager's lifetime.
func NewManager(ctx context.Context, store kv.Store, auth Authenticator, notifier notify.Notifier, lg *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		auth:     auth,
		notifier: notifier,
		lg:       lg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	m.restore(ctx)
	return m
}

func (m *Manager) restore(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateLoading
	defer func() {
		if m.state == StateLoading {
			m.state = StateAnonymous
		}
	}()

	data, err := m.store.Get(ctx, kv.KeySession)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			m.lg.Warn("Failed to read session", zap.Error(err))
		}
		return
	}

	r, err := decodeRecord(data)
	if err != nil {
		m.lg.Warn("Discarding malformed session record", zap.Error(err))
		m.removeRecord(ctx)
		return
	}
	if tokenExpired(r.Token, m.now()) {
		m.lg.Info("Discarding expired session", zap.String("user_id", r.User.ID))
		m.removeRecord(ctx)
		return
	}

	user := r.User
	m.user = &user
	m.token = r.Token
	m.state = StateAuthenticated
}

func (m *Manager) removeRecord(ctx context.Context) {
	if err := m.store.Remove(ctx, kv.KeySession); err != nil {
		m.lg.Warn("Failed to remove session record", zap.Error(err))
	}
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{State: m.state, Submitting: m.inflight > 0}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	return m.Snapshot().IsAuthenticated()
}

// IsLoading reports whether rehydration or a network operation is in flight.
func (m *Manager) IsLoading() bool {
	return m.Snapshot().IsLoading()
}

// User returns the signed-in user, or nil.
func (m *Manager) User() *User {
	return m.Snapshot().User
}

// Token returns the bearer token, or "" when anonymous.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *Manager) begin() {
	m.mu.Lock()
	m.inflight++
	m.mu.Unlock()
}

func (m *Manager) end() {
	m.mu.Lock()
	m.inflight--
	m.mu.Unlock()
}

// Login authenticates with email and password. On failure the current
// session is left as it was.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.begin()
	defer m.end()

	res, err := m.auth.Login(ctx, Credentials{Email: email, Password: password})
	if err == nil && (res == nil || res.AccessToken == "" || res.User.ID == "") {
		err = ErrInvalidLoginResponse
	}
	if err != nil {
		m.lg.Warn("Login failed", zap.String("email", email), zap.Error(err))
		if errors.Is(err, ErrInvalidCredentials) {
			m.notifier.Notify(notify.Error, "Invalid email or password")
		} else {
			m.notifier.Notify(notify.Error, "Login failed, please try again")
		}
		return errors.Wrap(err, "login")
	}

	user := res.User
	if !user.Role.Valid() {
		user.Role = RoleUser
	}

	m.mu.Lock()
	m.user = &user
	m.token = res.AccessToken
	m.state = StateAuthenticated
	m.persist(ctx)
	m.mu.Unlock()

	m.lg.Info("Logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	m.notifier.Notify(notify.Success, "Login successful")
	return nil
}

// persist writes the current identity. Callers hold m.mu.
func (m *Manager) persist(ctx context.Context) {
	if m.user == nil {
		return
	}
	data := encodeRecord(record{User: *m.user, Token: m.token})
	if err := m.store.Set(ctx, kv.KeySession, data); err != nil {
		m.lg.Error("Failed to persist session", zap.Error(err))
	}
}

// Register creates an account. It does not sign the new user in.
func (m *Manager) Register(ctx context.Context, reg Registration) error {
	if err := m.validate.Struct(reg); err != nil {
		verr := newValidationError(err)
		m.notifier.Notify(notify.Error, verr.Error())
		return verr
	}

	m.begin()
	defer m.end()

	if err := m.auth.Register(ctx, reg); err != nil {
		m.lg.Warn("Registration failed", zap.String("email", reg.Email), zap.Error(err))
		m.notifier.Notify(notify.Error, "Registration failed")
		return errors.Wrap(err, "register")
	}

	m.notifier.Notify(notify.Success, "Registration successful, you can now log in")
	return nil
}

// ResetPassword changes the password of the account identified by
// req.Email. The current session, if any, is not touched.
func (m *Manager) ResetPassword(ctx context.Context, req PasswordReset) error {
	if err := m.validate.Struct(req); err != nil {
		verr := newValidationError(err)
		m.notifier.Notify(notify.Error, verr.Error())
		return verr
	}

	m.begin()
	defer m.end()

	if err := m.auth.ResetPassword(ctx, req); err != nil {
		m.lg.Warn("Password reset failed", zap.String("email", req.Email), zap.Error(err))
		m.notifier.Notify(notify.Error, "Password reset failed, check your details")
		return errors.Wrap(err, "reset password")
	}

	m.notifier.Notify(notify.Success, "Password changed, you can now log in")
	return nil
}

// Logout ends the session. The local identity and the stored record are
// always cleared, even when the logout call to the server fails; that
// error is still returned.
func (m *Manager) Logout(ctx context.Context) error {
	m.begin()
	defer m.end()

	var apiErr error
	if m.IsAuthenticated() {
		apiErr = m.auth.Logout(ctx)
	}

	m.mu.Lock()
	m.user = nil
	m.token = ""
	m.state = StateAnonymous
	m.removeRecord(ctx)
	m.mu.Unlock()

	if apiErr != nil {
		m.lg.Warn("Server logout failed, signed out locally", zap.Error(apiErr))
		m.notifier.Notify(notify.Error, "Logout request failed, signed out on this device")
		return errors.Wrap(apiErr, "logout")
	}
	m.notifier.Notify(notify.Info, "Logged out")
	return nil
}

// Refresh reloads the profile from the server and updates the stored
// identity. The token is kept.
func (m *Manager) Refresh(ctx context.Context) error {
	if !m.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	m.begin()
	defer m.end()

	profile, err := m.auth.Profile(ctx)
	if err != nil {
		m.notifier.Notify(notify.Error, "Could not load profile")
		return errors.Wrap(err, "profile")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Logged out while the request was in flight.
	if m.user == nil {
		return ErrNotAuthenticated
	}
	u := *m.user
	if profile.Name != "" {
		u.Name = profile.Name
	}
	if profile.Email != "" {
		u.Email = profile.Email
	}
	u.Phone = profile.Phone
	if profile.Role.Valid() {
		u.Role = profile.Role
	}
	m.user = &u
	m.persist(ctx)
	return nil
}
