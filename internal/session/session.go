package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/fitpulse/fitpulse-go/internal/models"
	"github.com/fitpulse/fitpulse-go/internal/store"
)

// DefaultRefreshTokenTTL is how long a persisted refresh token survives.
const DefaultRefreshTokenTTL = 30 * 24 * time.Hour

// DefaultExpirySoonWindow is how close to expiry a token counts as expiring.
const DefaultExpirySoonWindow = 5 * time.Minute

// Session holds the authentication state for one client: the current token
// pair, its expiry, and the fetched user profile. It is constructed once at
// the application root and shared by every component.
//
// The mutex guards memory, not the refresh protocol: two callers that both
// observe a near-expired token may both refresh. That matches the original
// client, which has no in-flight refresh de-duplication.
type Session struct {
	mu    sync.Mutex
	store store.Store
	now   func() time.Time

	refreshTTL time.Duration
	soonWindow time.Duration

	accessToken  string
	refreshToken string
	expiresAt    time.Time
	user         *models.User
	initialized  bool

	onLogout []func()
}

// NewSession creates a Session backed by the given credential store
func NewSession(st store.Store, refreshTTL, soonWindow time.Duration) *Session {
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	if soonWindow <= 0 {
		soonWindow = DefaultExpirySoonWindow
	}
	return &Session{
		store:      st,
		now:        time.Now,
		refreshTTL: refreshTTL,
		soonWindow: soonWindow,
	}
}

// SetClock replaces the session clock. Intended for tests.
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Init hydrates the session from the credential store. It is idempotent and
// safe to call multiple times; each call re-reads the persisted triplet.
func (s *Session) Init(ctx context.Context) error {
	accessToken, err := s.store.Get(ctx, store.AuthTokenKey)
	if err != nil {
		return err
	}
	refreshToken, err := s.store.Get(ctx, store.RefreshTokenKey)
	if err != nil {
		return err
	}
	expiresAtRaw, err := s.store.Get(ctx, store.ExpiresAtKey)
	if err != nil {
		return err
	}

	var expiresAt time.Time
	if expiresAtRaw != "" {
		if millis, err := strconv.ParseInt(expiresAtRaw, 10, 64); err == nil {
			expiresAt = time.UnixMilli(millis)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.expiresAt = expiresAt
	s.initialized = true
	return nil
}

// SetTokens stores an issued token set. The persisted triplet is written as
// a unit: the access token and expiry entries live exactly as long as the
// token itself, the refresh token for a fixed window. A response without
// expiresIn leaves the expiry unset, which the session treats as already
// expiring.
func (s *Session) SetTokens(ctx context.Context, tokens *models.LoginResponse) error {
	now := s.clock()()

	entries := []store.Entry{
		{Name: store.AuthTokenKey, Value: tokens.Token, TTL: time.Duration(tokens.ExpiresIn) * time.Second},
	}

	var expiresAt time.Time
	if tokens.ExpiresIn > 0 {
		expiresAt = now.Add(time.Duration(tokens.ExpiresIn) * time.Second)
		entries = append(entries, store.Entry{
			Name:  store.ExpiresAtKey,
			Value: strconv.FormatInt(expiresAt.UnixMilli(), 10),
			TTL:   time.Duration(tokens.ExpiresIn) * time.Second,
		})
	}
	if tokens.RefreshToken != "" {
		entries = append(entries, store.Entry{
			Name:  store.RefreshTokenKey,
			Value: tokens.RefreshToken,
			TTL:   s.refreshTTL,
		})
	}

	if err := s.store.SetAll(ctx, entries); err != nil {
		return err
	}

	// Drop whatever the new token set does not carry, so a stale expiry or
	// refresh token never outlives the token it belonged to
	var stale []string
	if tokens.ExpiresIn <= 0 {
		stale = append(stale, store.ExpiresAtKey)
	}
	if tokens.RefreshToken == "" {
		stale = append(stale, store.RefreshTokenKey)
	}
	if len(stale) > 0 {
		if err := s.store.Delete(ctx, stale...); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = tokens.Token
	s.refreshToken = tokens.RefreshToken
	s.expiresAt = expiresAt
	return nil
}

// SetUser stores the fetched profile. A profile is never kept without an
// access token.
func (s *Session) SetUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accessToken == "" {
		return
	}
	s.user = user
}

// Logout clears the persisted triplet, resets all in-memory state and fires
// registered logout hooks.
func (s *Session) Logout(ctx context.Context) error {
	err := s.store.Delete(ctx, store.AuthTokenKey, store.RefreshTokenKey, store.ExpiresAtKey)

	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.expiresAt = time.Time{}
	s.user = nil
	hooks := make([]func(), len(s.onLogout))
	copy(hooks, s.onLogout)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
	return err
}

// OnLogout registers a hook that runs whenever the session is logged out
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// IsAuthenticated reports whether an access token is present
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken != ""
}

// WillExpireSoon reports whether the access token is inside the expiry
// window. An unknown expiry counts as expiring.
func (s *Session) WillExpireSoon() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiresAt.IsZero() {
		return true
	}
	return s.expiresAt.Sub(s.now()) < s.soonWindow
}

// AccessToken returns the current access token, or the empty string
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token, or the empty string
func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

// ExpiresAt returns the access token expiry, zero when unknown
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// User returns the fetched profile, nil when absent
func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Initialized reports whether Init has run this process
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

func (s *Session) clock() func() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}
