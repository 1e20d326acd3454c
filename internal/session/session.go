package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/estatehq/estatectl/internal/api"
	"github.com/estatehq/estatectl/internal/credentials"
)

// Status is the authentication state of the session.
type Status int

const (
	StatusAnonymous Status = iota
	StatusAuthenticating
	StatusAuthenticated
	StatusExpiring
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusExpiring:
		return "expiring"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Forced-logout redirect targets. The expired variant carries a reason the
// login screen can surface.
const (
	LoginPath        = "/login"
	LoginPathExpired = "/login?reason=expired"
)

// ErrNotAuthenticated is returned by operations that require a live session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Redirector is how forced logouts reach the surrounding application. The
// redirect is skipped when the application already sits on the login screen,
// so repeated rejections cannot loop.
type Redirector interface {
	CurrentPath() string
	Redirect(target string)
}

// Client is the backend surface the session consumes.
type Client interface {
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*api.UserResponse, error)
	UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*api.User, error)
	RemoveAvatar(ctx context.Context) (*api.User, error)
}

// Manager owns the single in-process session: authentication status, current
// user, bearer token and expiry. It is constructed explicitly at startup and
// seeded from the credential store, so a session survives restarts.
//
// The browser original ran on one event loop; here the expiry monitor ticks
// on its own goroutine, so all state lives behind the mutex.
type Manager struct {
	store      *credentials.Store
	client     Client
	origin     *url.URL
	redirector Redirector
	monitor    *Monitor

	mu        sync.Mutex
	status    Status
	user      *api.User
	token     string
	expiresAt time.Time
}

// NewManager creates the session manager and seeds it from the credential
// store: authenticated if a non-expired token and user are found, anonymous
// otherwise. origin is the backend origin used to absolutize avatar URLs.
func NewManager(client Client, store *credentials.Store, origin *url.URL, redirector Redirector) *Manager {
	m := &Manager{
		store:      store,
		client:     client,
		origin:     origin,
		redirector: redirector,
		status:     StatusAnonymous,
	}
	m.monitor = newMonitor(m, monitorInterval)

	st := store.Load()
	if st.Token != "" && st.User != nil {
		m.token = st.Token
		m.user = st.User
		m.expiresAt = st.ExpiresAt
		m.status = StatusAuthenticated
		m.applyUserLocked(st.User)

		log.Debug().Str("email", st.User.Email).Msg("session restored from credential store")

		if !st.ExpiresAt.IsZero() {
			m.monitor.Start()
		}
	}

	return m
}

// Close stops the expiry monitor. The manager itself holds no other
// resources.
func (m *Manager) Close() {
	m.monitor.Stop()
}

// Login drives anonymous -> authenticating -> authenticated|anonymous. On
// success the token, user and expiry are persisted as a group. Navigation is
// the caller's responsibility.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.mu.Lock()
	m.status = StatusAuthenticating
	m.mu.Unlock()

	resp, err := m.client.Login(ctx, email, password)

	m.mu.Lock()
	if m.status != StatusAuthenticating {
		// Logged out while the request was in flight; a stale success must
		// not re-authenticate the session.
		m.mu.Unlock()
		log.Warn().Msg("discarding login response for superseded session")
		return errors.New("login aborted")
	}

	if err != nil {
		// A re-login attempt over a live session must not leave the old
		// token and user behind an anonymous status.
		m.clearLocked()
		m.mu.Unlock()
		m.monitor.Stop()
		return err
	}

	if resp.Token == "" || resp.User == nil {
		m.clearLocked()
		m.mu.Unlock()
		m.monitor.Stop()
		if resp.Message != "" {
			return errors.New(resp.Message)
		}
		return errors.New("login failed")
	}

	user := *resp.User
	m.applyUserLocked(&user)

	expiresAt := time.Time{}
	if resp.ExpiresAt != nil {
		expiresAt = *resp.ExpiresAt
	} else if exp := expiryFromToken(resp.Token); !exp.IsZero() {
		expiresAt = exp
	}

	if err := m.store.Save(credentials.State{Token: resp.Token, User: &user, ExpiresAt: expiresAt}); err != nil {
		// The in-memory session is still usable; it just won't survive a
		// restart.
		log.Warn().Err(err).Msg("failed to persist session")
	}

	m.token = resp.Token
	m.user = &user
	m.expiresAt = expiresAt
	m.status = StatusAuthenticated
	m.mu.Unlock()

	log.Info().Str("email", user.Email).Time("expiresAt", expiresAt).Msg("logged in")

	if !expiresAt.IsZero() {
		m.monitor.Restart()
	} else {
		m.monitor.Stop()
	}

	return nil
}

// Logout performs best-effort remote invalidation and always clears the
// local session and credential store. It never fails.
func (m *Manager) Logout(ctx context.Context) {
	if m.IsAuthenticated() {
		if err := m.client.Logout(ctx); err != nil {
			log.Warn().Err(err).Msg("remote logout failed, clearing local session anyway")
		}
	}

	m.mu.Lock()
	m.store.Clear()
	m.clearLocked()
	m.mu.Unlock()

	m.monitor.Stop()

	log.Info().Msg("logged out")
}

// ServerRejected handles a 401 from the backend: forced logout, with the
// expired flag deciding the redirect reason. Repeated rejections after the
// session is already gone are no-ops, and a rejection during login is the
// login call's failure to report, not a forced logout.
func (m *Manager) ServerRejected(expired bool) {
	m.mu.Lock()
	if m.status != StatusAuthenticated && m.status != StatusExpiring {
		m.mu.Unlock()
		return
	}

	m.store.Clear()
	m.clearLocked()

	target := LoginPath
	if expired {
		target = LoginPathExpired
	}
	m.redirectLocked(target)
	m.mu.Unlock()

	m.monitor.Stop()

	log.Warn().Bool("expired", expired).Msg("session rejected by server")
}

// Refresh re-fetches the current user, refreshing the stored record and, when
// the backend returns one, the token expiry.
func (m *Manager) Refresh(ctx context.Context) (*api.User, error) {
	if !m.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	resp, err := m.client.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()

	if m.status != StatusAuthenticated && m.status != StatusExpiring {
		// Session ended while the request was in flight.
		m.mu.Unlock()
		return nil, ErrNotAuthenticated
	}

	if resp.User != nil {
		m.applyUserLocked(resp.User)
		m.user = resp.User
	}

	expiryChanged := false
	if resp.TokenExpiresAt != nil && !m.expiresAt.Equal(*resp.TokenExpiresAt) {
		m.expiresAt = *resp.TokenExpiresAt
		expiryChanged = true
	}

	st := credentials.State{User: m.user}
	if resp.TokenExpiresAt != nil {
		st.ExpiresAt = m.expiresAt
	}
	if err := m.store.Save(st); err != nil {
		log.Warn().Err(err).Msg("failed to persist refreshed session")
	}

	user := *m.user
	hasExpiry := !m.expiresAt.IsZero()
	m.mu.Unlock()

	if expiryChanged {
		if hasExpiry {
			m.monitor.Restart()
		} else {
			m.monitor.Stop()
		}
	}

	return &user, nil
}

// UpdateProfile calls the profile endpoint and, on success, replaces the user
// record in the session and the credential store. Token and expiry are
// untouched.
func (m *Manager) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*api.User, error) {
	if !m.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	user, err := m.client.UpdateProfile(ctx, update)
	if err != nil {
		return nil, err
	}

	return m.applyProfile(user)
}

// RemoveAvatar clears the avatar with the same persistence contract as
// UpdateProfile.
func (m *Manager) RemoveAvatar(ctx context.Context) (*api.User, error) {
	if !m.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	user, err := m.client.RemoveAvatar(ctx)
	if err != nil {
		return nil, err
	}

	return m.applyProfile(user)
}

func (m *Manager) applyProfile(user *api.User) (*api.User, error) {
	if user == nil {
		return nil, errors.New("backend returned no user record")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusAuthenticated && m.status != StatusExpiring {
		return nil, ErrNotAuthenticated
	}

	m.applyUserLocked(user)
	m.user = user
	m.status = StatusAuthenticated

	if err := m.store.Save(credentials.State{User: user}); err != nil {
		log.Warn().Err(err).Msg("failed to persist profile update")
	}

	updated := *user
	return &updated, nil
}

// CurrentUser returns a copy of the session's user, or nil while anonymous.
func (m *Manager) CurrentUser() *api.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		return nil
	}
	user := *m.user
	return &user
}

// Status returns the current authentication status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsAuthenticated reports whether the session is usable, including the
// expiring warning window.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == StatusAuthenticated || m.status == StatusExpiring
}

// HasPermission checks membership in the user's capability set. Always false
// while unauthenticated.
func (m *Manager) HasPermission(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusAuthenticated && m.status != StatusExpiring {
		return false
	}
	for _, p := range m.user.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// Token yields the current bearer token for the request transport; empty
// while anonymous.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// HasExpiry reports whether the session carries an expiry at all. A session
// without one never expires; callers must not read TimeLeft's zero as
// "already expired" in that case.
func (m *Manager) HasExpiry() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.expiresAt.IsZero()
}

// TimeLeft returns the time until expiry, floored at zero. Zero is also
// returned when no expiry is set; see HasExpiry.
func (m *Manager) TimeLeft() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeLeftLocked()
}

func (m *Manager) timeLeftLocked() time.Duration {
	if m.expiresAt.IsZero() {
		return 0
	}
	left := time.Until(m.expiresAt)
	if left < 0 {
		return 0
	}
	return left
}

// WillExpireSoon reports whether the session is inside the warning window.
func (m *Manager) WillExpireSoon() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	left := m.timeLeftLocked()
	return left > 0 && left < warnWindow
}

// markExpiring moves an authenticated session into the warning state. The
// session stays usable.
func (m *Manager) markExpiring() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusAuthenticated {
		return
	}
	m.status = StatusExpiring
	log.Warn().Dur("timeLeft", m.timeLeftLocked()).Msg("session expiring soon")
}

// expire performs the forced-expired transition exactly once: clear the
// store, drop the session and redirect with the expired reason. The expired
// state passes straight through to anonymous; the reason travels in the
// redirect target, not the resting status.
func (m *Manager) expire() {
	m.mu.Lock()
	if m.status != StatusAuthenticated && m.status != StatusExpiring {
		m.mu.Unlock()
		return
	}

	m.store.Clear()
	m.clearLocked()
	m.redirectLocked(LoginPathExpired)
	m.mu.Unlock()

	log.Warn().Msg("session expired")
}

// clearLocked drops all session fields and lands in anonymous. Callers hold
// the mutex.
func (m *Manager) clearLocked() {
	m.status = StatusAnonymous
	m.user = nil
	m.token = ""
	m.expiresAt = time.Time{}
}

// redirectLocked sends the application to the login screen unless it is
// already there.
func (m *Manager) redirectLocked(target string) {
	if m.redirector == nil {
		return
	}
	current := m.redirector.CurrentPath()
	if current == LoginPath || strings.HasPrefix(current, LoginPath+"?") {
		return
	}
	m.redirector.Redirect(target)
}

// applyUserLocked normalizes the incoming user record: relative avatar paths
// become absolute URLs against the backend origin, and an empty permission
// list is derived from the role so every consumer sees one capability set.
func (m *Manager) applyUserLocked(user *api.User) {
	if user.AvatarURL != "" && m.origin != nil {
		if ref, err := url.Parse(user.AvatarURL); err == nil && !ref.IsAbs() {
			user.AvatarURL = m.origin.ResolveReference(ref).String()
		}
	}
	if len(user.Permissions) == 0 {
		user.Permissions = PermissionsForRole(user.Role)
	}
}

// expiryFromToken extracts the exp claim when the bearer happens to be a JWT.
// The client cannot verify the signature and only needs the expiry hint, so
// the token is parsed unverified.
func expiryFromToken(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// FormatTimeLeft renders a duration for expiry warnings, e.g. "4m59s".
func FormatTimeLeft(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	d = d.Round(time.Second)

	h := d / time.Hour
	min := (d % time.Hour) / time.Minute
	sec := (d % time.Minute) / time.Second

	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, min)
	case min > 0:
		return fmt.Sprintf("%dm%02ds", min, sec)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}
