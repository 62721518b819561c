package goAttend

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goAttend/apiclient"
	"github.com/MrEthical07/goAttend/tokenstore"
	"github.com/google/uuid"
)

// Engine is the process-wide registry of browsing sessions. It owns the
// shared backend client, the token backend, metrics and audit.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config  Config
	api     *apiclient.Client
	backend tokenstore.Backend
	logger  *slog.Logger
	metrics *Metrics
	audit   *auditDispatcher

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// API returns the shared backend client with no credential attached.
func (e *Engine) API() *apiclient.Client {
	return e.api
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Metrics returns the engine counters.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// NewSessionID returns a fresh random browsing-session id.
func (e *Engine) NewSessionID() string {
	return uuid.NewString()
}

// Session returns the live Session for sid, creating an Unresolved one if
// none exists. A created Session has not started recovery.
func (e *Engine) Session(sid string) (*Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return nil, ErrEmptySessionID
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	if s, ok := e.sessions[sid]; ok {
		s.touch()
		return s, nil
	}

	tokens, err := tokenstore.New(e.backend, sid, e.logger)
	if err != nil {
		return nil, err
	}
	s := newSession(sid, tokens, e.api, &e.config, e.logger, e.metrics, e.audit)
	e.sessions[sid] = s
	e.metrics.Inc(MetricSessionCreated)
	return s, nil
}

// Login signs user in under a fresh browsing-session id and retires prev,
// so an id the client held before signing in never carries the credential.
// The caller must hand the returned Session's ID back to the client. prev
// may be nil.
func (e *Engine) Login(ctx context.Context, prev *Session, token string, user *User) (*Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	s, err := e.Session(e.NewSessionID())
	if err != nil {
		return nil, err
	}
	if err := s.Login(ctx, token, user); err != nil {
		e.Forget(s.ID())
		return nil, err
	}

	if prev != nil && prev.ID() != s.ID() {
		prev.retire(ctx)
		e.Forget(prev.ID())
		e.metrics.Inc(MetricSessionRotated)
		e.logger.Debug("session id rotated on sign-in", "session_id", s.ID())
	}
	return s, nil
}

// Lookup returns the live Session for sid without creating one.
func (e *Engine) Lookup(sid string) (*Session, bool) {
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[sid]
	return s, ok
}

// Forget closes and drops the Session for sid. Its persisted credential is
// left in place.
func (e *Engine) Forget(sid string) {
	if e == nil {
		return
	}
	e.mu.Lock()
	s, ok := e.sessions[sid]
	delete(e.sessions, sid)
	e.mu.Unlock()

	if ok {
		s.Close()
	}
}

// Len returns the number of live sessions.
func (e *Engine) Len() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

func (e *Engine) janitor(interval time.Duration) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case now := <-ticker.C:
			e.sweep(now)
		}
	}
}

// sweep evicts sessions idle for longer than Session.IdleTimeout.
func (e *Engine) sweep(now time.Time) int {
	idle := e.config.Session.IdleTimeout
	if idle <= 0 {
		return 0
	}

	var evicted []*Session
	e.mu.Lock()
	for sid, s := range e.sessions {
		if s.idleFor(now) > idle {
			delete(e.sessions, sid)
			evicted = append(evicted, s)
		}
	}
	e.mu.Unlock()

	for _, s := range evicted {
		s.Close()
		e.metrics.Inc(MetricSessionEvicted)
		s.emitAudit(context.Background(), AuditSessionEvicted, true, s.User(), "idle", nil)
	}
	if len(evicted) > 0 {
		e.logger.Debug("evicted idle sessions", "count", len(evicted))
	}
	return len(evicted)
}

// Close stops the janitor, closes every live session and flushes audit.
// Persisted credentials are untouched.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		sessions := e.sessions
		e.sessions = make(map[string]*Session)
		e.mu.Unlock()

		close(e.done)
		e.wg.Wait()

		for _, s := range sessions {
			s.Close()
		}
		if e.audit != nil {
			e.audit.Close()
		}
	})
}

func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// A nil or metrics-disabled engine yields empty maps.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}
