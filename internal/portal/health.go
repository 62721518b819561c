package portal

import (
	"context"
	"net/http"
	"time"
)

type healthBody struct {
	Status       string  `json:"status"`
	TokenStore   bool    `json:"token_store"`
	LatencyMS    float64 `json:"token_store_latency_ms"`
	LiveSessions int     `json:"live_sessions"`
	Pollers      int     `json:"notification_pollers"`
}

// health answers 503 when the credential store is unreachable.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	st := s.engine.Health(ctx)
	body := healthBody{
		Status:       "ok",
		TokenStore:   st.TokenStoreAvailable,
		LatencyMS:    float64(st.TokenStoreLatency.Microseconds()) / 1000,
		LiveSessions: st.LiveSessions,
		Pollers:      s.notifier.active(),
	}
	status := http.StatusOK
	if !st.TokenStoreAvailable {
		body.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}
