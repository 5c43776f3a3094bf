package session

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"
)

const (
	CookieName = "fitplan_session"
	idKey      = "sid"
)

// CookieManager hands out the session ID kept in a signed cookie. The cookie has no
// Max-Age, so it is dropped when the browser session ends.
type CookieManager struct {
	store sessions.Store
}

func NewCookieManager(secret []byte, secure bool) *CookieManager {
	store := sessions.NewCookieStore(secret)
	store.MaxAge(0)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode

	return &CookieManager{store: store}
}

// ID returns the request's session ID, issuing a new one (and setting the cookie)
// when the request carries none or an unreadable one.
func (m *CookieManager) ID(w http.ResponseWriter, r *http.Request) (string, error) {
	sess, err := m.store.Get(r, CookieName)
	if err != nil {
		// A cookie signed with an old secret decodes to a fresh session.
		log.Warn().Err(err).Msg("Discarding unreadable session cookie")
	}

	if id, ok := sess.Values[idKey].(string); ok && id != "" {
		return id, nil
	}

	id := uuid.NewString()
	sess.Values[idKey] = id
	if err := sess.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to save session cookie: %w", err)
	}
	return id, nil
}
