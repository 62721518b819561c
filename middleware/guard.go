package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	goAttend "github.com/MrEthical07/goAttend"
	"github.com/MrEthical07/goAttend/guard"
	"github.com/MrEthical07/goAttend/role"
)

const loadingPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>Loading</title></head>
<body><div class="spinner" role="status" aria-label="loading"></div></body></html>
`

// Guard gates a page on the browsing session. It waits up to
// Guard.RecoveryWait for recovery, then renders the loading placeholder,
// redirects with 303, or calls next with the Session in the context.
func Guard(engine *goAttend.Engine, required role.Set) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, decision, ok := decide(engine, w, r, required)
			if !ok {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			cfg := engine.Config().Guard
			switch decision {
			case guard.RenderLoading:
				w.Header().Set("Cache-Control", "no-store")
				w.Header().Set("Refresh", refreshSeconds(cfg))
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusOK)
				_, _ = fmt.Fprint(w, loadingPage)
			case guard.RedirectLogin:
				http.Redirect(w, r, cfg.LoginPath, http.StatusSeeOther)
			case guard.RedirectDefault:
				http.Redirect(w, r, cfg.DefaultPath, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r.WithContext(goAttend.WithSession(r.Context(), s)))
			}
		})
	}
}

// RequireAPI is Guard for JSON endpoints: an unresolved session yields 503
// with Retry-After, an anonymous one 401 and a role mismatch 403.
func RequireAPI(engine *goAttend.Engine, required role.Set) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, decision, ok := decide(engine, w, r, required)
			if !ok {
				writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
				return
			}

			switch decision {
			case guard.RenderLoading:
				w.Header().Set("Retry-After", refreshSeconds(engine.Config().Guard))
				writeJSONError(w, http.StatusServiceUnavailable, "session is loading")
			case guard.RedirectLogin:
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			case guard.RedirectDefault:
				writeJSONError(w, http.StatusForbidden, "forbidden")
			default:
				next.ServeHTTP(w, r.WithContext(goAttend.WithSession(r.Context(), s)))
			}
		})
	}
}

func decide(engine *goAttend.Engine, w http.ResponseWriter, r *http.Request, required role.Set) (*goAttend.Session, guard.Decision, bool) {
	s, err := ResolveSession(engine, w, r)
	if err != nil {
		return nil, guard.RenderLoading, false
	}

	if wait := engine.Config().Guard.RecoveryWait; wait > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), wait)
		s.Wait(ctx)
		cancel()
	}

	decision := guard.Evaluate(s.State(), required)

	m := engine.Metrics()
	switch decision {
	case guard.RenderLoading:
		m.Inc(goAttend.MetricGuardLoading)
	case guard.RedirectLogin:
		m.Inc(goAttend.MetricGuardRedirectLogin)
	case guard.RedirectDefault:
		m.Inc(goAttend.MetricGuardRedirectDefault)
	default:
		m.Inc(goAttend.MetricGuardRender)
	}
	return s, decision, true
}

func refreshSeconds(cfg goAttend.GuardConfig) string {
	secs := int(math.Ceil(cfg.LoadingRefresh.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("%d", secs)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
