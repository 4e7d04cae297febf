// Package sessions manages the cookie session that marks a browser as
// signed in to this app instance.
package sessions

import (
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

var (
	store     *sessions.CookieStore
	storeOnce sync.Once
)

// getStore builds the cookie store on first use. Without SESSION_KEY a
// random key is generated, which signs everyone out on restart but
// keeps dev and test runs working.
func getStore() *sessions.CookieStore {
	storeOnce.Do(func() {
		key := []byte(os.Getenv("SESSION_KEY"))
		if len(key) == 0 {
			key = securecookie.GenerateRandomKey(32)
		}
		store = sessions.NewCookieStore(key)
		store.Options = &sessions.Options{
			Path:     "/",
			MaxAge:   3600 * 8, // 8 hours
			HttpOnly: true,
			Secure:   os.Getenv("ENV") != "dev" && os.Getenv("ENV") != "test",
			SameSite: http.SameSiteLaxMode,
		}
	})
	return store
}

// GetSession retrieves the app session from the request.
func GetSession(r *http.Request) (*sessions.Session, error) {
	return getStore().Get(r, "aerolog-session")
}

// SaveSession saves the session.
func SaveSession(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	return getStore().Save(r, w, session)
}
