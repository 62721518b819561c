package goAttend

import (
	"context"
	"sort"
	"time"
)

// SessionInfo is the safe introspection view of a live session.
// It never includes credential material.
type SessionInfo struct {
	SessionID string
	Phase     Phase
	UserID    string
	Role      string
	IdleFor   time.Duration
	// CredentialTTL is the remaining lifetime of the persisted credential,
	// or zero when the backend does not expose one.
	CredentialTTL time.Duration
}

// HealthStatus is an on-demand token backend health result.
type HealthStatus struct {
	TokenStoreAvailable bool
	TokenStoreLatency   time.Duration
	LiveSessions        int
}

type pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

type ttlReporter interface {
	TTL(ctx context.Context, sid string) (time.Duration, error)
}

// Backends that cannot be pinged, such as the in-memory one, always report
// available.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil {
		return HealthStatus{}
	}
	status := HealthStatus{
		TokenStoreAvailable: true,
		LiveSessions:        e.Len(),
	}
	if p, ok := e.backend.(pinger); ok {
		latency, err := p.Ping(ctx)
		status.TokenStoreAvailable = err == nil
		status.TokenStoreLatency = latency
	}
	return status
}

// GetSessionInfo returns nil for ids with no live session.
func (e *Engine) GetSessionInfo(ctx context.Context, sid string) (*SessionInfo, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	s, ok := e.Lookup(sid)
	if !ok {
		return nil, nil
	}
	info := toSessionInfo(s, time.Now())
	if r, ok := e.backend.(ttlReporter); ok {
		ttl, err := r.TTL(ctx, sid)
		if err != nil {
			return nil, err
		}
		if ttl > 0 {
			info.CredentialTTL = ttl
		}
	}
	return &info, nil
}

// ListSessions returns every live session, ordered by id.
func (e *Engine) ListSessions() []SessionInfo {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	sessions := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.mu.Unlock()

	now := time.Now()
	out := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionInfo(s, now))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

func toSessionInfo(s *Session, now time.Time) SessionInfo {
	st := s.State()
	info := SessionInfo{
		SessionID: s.ID(),
		Phase:     st.Phase,
		IdleFor:   s.idleFor(now),
	}
	if st.User != nil {
		info.UserID = st.User.ID
		info.Role = st.User.Role.String()
	}
	return info
}
