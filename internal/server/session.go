package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/conneroisu/syllabus/internal/auth"
	"github.com/conneroisu/syllabus/internal/config"
)

// Cookie session keys.
const (
	sessionKeyID    = "sid"
	sessionKeyToken = "token"
)

// browser is the cookie session of one request together with its auth
// state.
type browser struct {
	id     string
	cookie *sessions.Session
	facade *auth.Facade
	state  auth.SessionState
}

// NewCookieStore builds the signed cookie store. Without a configured
// secret a random key is generated, so sessions do not survive a restart.
func NewCookieStore(cfg config.SessionConfig) *sessions.CookieStore {
	key := []byte(cfg.Secret)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// browser loads or starts the cookie session and resolves its auth state.
func (s *Server) browser(w http.ResponseWriter, r *http.Request) *browser {
	// A cookie that fails to decode still yields a fresh session.
	cookie, err := s.store.Get(r, s.config.Session.CookieName)
	if err != nil {
		s.logger.Debug(r.Context(), "Discarding unreadable session cookie", "reason", err.Error())
	}

	id, _ := cookie.Values[sessionKeyID].(string)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
		cookie.Values[sessionKeyID] = id
		delete(cookie.Values, sessionKeyToken)
		if err := cookie.Save(r, w); err != nil {
			s.logger.Warn(r.Context(), err, "Failed to save session cookie")
		}
	}
	token, _ := cookie.Values[sessionKeyToken].(string)

	return &browser{
		id:     id,
		cookie: cookie,
		facade: s.auth.For(id),
		state:  s.auth.Restore(r.Context(), id, token),
	}
}

// persist stores the id token of the current auth state in the cookie. It
// must run before the response body is written.
func (s *Server) persist(w http.ResponseWriter, r *http.Request, b *browser) {
	b.state = b.facade.Current()
	if b.state.Present() {
		b.cookie.Values[sessionKeyToken] = b.state.IDToken
	} else {
		delete(b.cookie.Values, sessionKeyToken)
	}
	if err := b.cookie.Save(r, w); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to save session cookie")
	}
}
