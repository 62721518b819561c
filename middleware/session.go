package middleware

import (
	"net/http"
	"strings"

	goAttend "github.com/MrEthical07/goAttend"
	"github.com/google/uuid"
)

// ResolveSession returns the Session named by r's cookie, issuing a new
// cookie on w when r has none. Recovery is started but not awaited.
func ResolveSession(engine *goAttend.Engine, w http.ResponseWriter, r *http.Request) (*goAttend.Session, error) {
	if engine == nil {
		return nil, goAttend.ErrEngineNotReady
	}
	cfg := engine.Config().Session

	sid := ""
	if c, err := r.Cookie(cfg.CookieName); err == nil {
		sid = strings.TrimSpace(c.Value)
	}
	if _, err := uuid.Parse(sid); err != nil {
		sid = engine.NewSessionID()
		SetSessionCookie(engine, w, sid)
	}

	s, err := engine.Session(sid)
	if err != nil {
		return nil, err
	}
	s.Start(r.Context())
	return s, nil
}

// SetSessionCookie points the client at the browsing session sid. Handlers
// call it with the Session returned by Engine.Login.
func SetSessionCookie(engine *goAttend.Engine, w http.ResponseWriter, sid string) {
	cfg := engine.Config().Session
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Session attaches the browsing session to the request context without
// gating. Public pages such as the login form use it.
func Session(engine *goAttend.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := ResolveSession(engine, w, r)
			if err != nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r.WithContext(goAttend.WithSession(r.Context(), s)))
		})
	}
}
