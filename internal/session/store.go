// Package session keeps the administrator's credential in a durable,
// client-side cookie and decodes the token payload for display.
package session

import (
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-console/internal/models"
	"github.com/noah-isme/roster-console/pkg/config"
)

// Well-known keys inside the cookie.
const (
	TokenKey    = "token"
	UsernameKey = "username"
)

// Store reads and writes the credential session. It is the only component
// allowed to touch the persisted token.
type Store struct {
	backend sessions.Store
	name    string
	logger  *zap.Logger
}

// NewStore builds a cookie-backed store from configuration.
func NewStore(cfg config.SessionConfig, logger *zap.Logger) *Store {
	cookies := sessions.NewCookieStore([]byte(cfg.Secret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return NewStoreWith(cookies, cfg.CookieName, logger)
}

// NewStoreWith wraps an arbitrary gorilla sessions backend.
func NewStoreWith(backend sessions.Store, name string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if name == "" {
		name = "roster_session"
	}
	return &Store{backend: backend, name: name, logger: logger}
}

// Save persists the token and display name.
func (s *Store) Save(w http.ResponseWriter, r *http.Request, sess models.Session) error {
	cookie, err := s.backend.Get(r, s.name)
	if err != nil {
		// A cookie signed with a rotated secret; start over with the fresh one.
		s.logger.Debug("discarding unreadable session cookie", zap.Error(err))
	}
	cookie.Values[TokenKey] = sess.Token
	cookie.Values[UsernameKey] = sess.DisplayName
	return cookie.Save(r, w)
}

// Current returns the stored session, or false when no token is stored.
func (s *Store) Current(r *http.Request) (models.Session, bool) {
	cookie, err := s.backend.Get(r, s.name)
	if err != nil {
		return models.Session{}, false
	}
	token, _ := cookie.Values[TokenKey].(string)
	if token == "" {
		return models.Session{}, false
	}
	name, _ := cookie.Values[UsernameKey].(string)
	return models.Session{Token: token, DisplayName: name}, true
}

// Clear removes both keys and expires the cookie.
func (s *Store) Clear(w http.ResponseWriter, r *http.Request) error {
	cookie, err := s.backend.Get(r, s.name)
	if err != nil {
		s.logger.Debug("clearing unreadable session cookie", zap.Error(err))
	}
	delete(cookie.Values, TokenKey)
	delete(cookie.Values, UsernameKey)
	opts := sessions.Options{Path: "/", MaxAge: -1}
	if cookie.Options != nil {
		opts = *cookie.Options
		opts.MaxAge = -1
	}
	cookie.Options = &opts
	return cookie.Save(r, w)
}
