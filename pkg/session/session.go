// Package session implements the cookie-backed session and authentication
// provider for Gatehouse. It issues an opaque session ID in a cookie on
// login, resolves the cookie back to a Principal on later requests, and
// slides the session's expiration on every successful validation.
//
// The cookie carries only the session ID; the Principal itself lives in a
// Store. Stores are pluggable: an in-memory map for single-process use, a
// Redis backend, and a GORM backend for SQL databases.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCookieName is the session cookie's name. The name doubles as the
// authentication scheme identifier.
const DefaultCookieName = "Cookie"

// DefaultLifetime is the session lifetime used when none is configured.
const DefaultLifetime = 7 * 24 * time.Hour

// Session is a stored session: the issued ID, the principal it was bound
// to, and the current expiry. Expiry moves forward on every successful
// validation (sliding expiration).
type Session struct {
	ID        string    `json:"id"`
	Principal Principal `json:"principal"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry at time now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions by ID. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save creates or replaces the session.
	Save(ctx context.Context, s Session) error

	// Load returns the session with the given ID. The boolean reports
	// whether it was found; expired sessions may still be returned and are
	// filtered by the Manager.
	Load(ctx context.Context, id string) (Session, bool, error)

	// Delete removes the session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
}

// Config configures a Manager. Zero values fall back to the defaults above.
type Config struct {
	CookieName string
	Lifetime   time.Duration
	Store      Store
	Logger     *zap.Logger
}

// Manager issues, validates, and clears sessions. It is the authentication
// provider collaborator of the router: the router asks it for the request's
// Principal before evaluating the route table.
//
// Because pipeline responders produce response values rather than writing
// to a ResponseWriter, the Manager's methods return cookies for the caller
// to attach instead of setting them directly.
type Manager struct {
	cookieName string
	lifetime   time.Duration
	store      Store
	logger     *zap.Logger
}

// NewManager creates a Manager from the given configuration.
func NewManager(config Config) *Manager {
	if config.CookieName == "" {
		config.CookieName = DefaultCookieName
	}
	if config.Lifetime <= 0 {
		config.Lifetime = DefaultLifetime
	}
	if config.Store == nil {
		config.Store = NewMemoryStore()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Manager{
		cookieName: config.CookieName,
		lifetime:   config.Lifetime,
		store:      config.Store,
		logger:     config.Logger.Named("session"),
	}
}

// Issue creates a new session bound to the principal and returns the
// session cookie to attach to the response. The cookie is HTTP-only, and
// marked Secure when secure is true (request arrived over TLS).
func (m *Manager) Issue(ctx context.Context, p Principal, secure bool) (*http.Cookie, error) {
	s := Session{
		ID:        uuid.NewString(),
		Principal: p,
		ExpiresAt: time.Now().Add(m.lifetime),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	m.logger.Debug("session issued",
		zap.String("principal", p.Name),
		zap.Time("expires_at", s.ExpiresAt),
	)
	return m.cookie(s.ID, s.ExpiresAt, secure), nil
}

// Principal resolves the request's session cookie to a Principal. On a
// valid session the expiration slides forward by the full lifetime; the
// returned refresh cookie, when non-nil, carries the new expiry and should
// be attached to the response. Anonymous requests, unknown or expired
// sessions, and store failures all report (nil, nil, false); store failures
// are logged and treated as anonymous rather than surfaced to the client.
func (m *Manager) Principal(r *http.Request) (*Principal, *http.Cookie, bool) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil, false
	}

	s, found, err := m.store.Load(r.Context(), cookie.Value)
	if err != nil {
		m.logger.Warn("session load failed", zap.Error(err))
		return nil, nil, false
	}
	if !found {
		return nil, nil, false
	}

	now := time.Now()
	if s.Expired(now) {
		if err := m.store.Delete(r.Context(), s.ID); err != nil {
			m.logger.Warn("expired session delete failed", zap.Error(err))
		}
		return nil, nil, false
	}

	// Sliding expiration: every validated use pushes the expiry forward.
	var refresh *http.Cookie
	s.ExpiresAt = now.Add(m.lifetime)
	if err := m.store.Save(r.Context(), s); err != nil {
		m.logger.Warn("session touch failed", zap.Error(err))
	} else {
		refresh = m.cookie(s.ID, s.ExpiresAt, r.TLS != nil)
	}

	p := s.Principal
	return &p, refresh, true
}

// Clear invalidates the request's session, if any, and returns an expiring
// cookie to attach to the response.
func (m *Manager) Clear(r *http.Request) (*http.Cookie, error) {
	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		if err := m.store.Delete(r.Context(), cookie.Value); err != nil {
			return nil, err
		}
	}
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
	}, nil
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string { return m.cookieName }

// Lifetime returns the configured session lifetime.
func (m *Manager) Lifetime() time.Duration { return m.lifetime }

func (m *Manager) cookie(id string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
	}
}
