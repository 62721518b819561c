package goAttend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAttend/apiclient"
	"github.com/MrEthical07/goAttend/jwt"
	"github.com/MrEthical07/goAttend/tokenstore"
	"github.com/google/uuid"
)

const (
	profilePath = "/auth/profile"
	// cleanupTimeout bounds token deletes that must outlive a cancelled request.
	cleanupTimeout = 2 * time.Second
)

// Recovery failure reasons, as they appear in logs and audit events.
const (
	ReasonTokenExpired = "token_expired"
	ReasonUnauthorized = "unauthorized"
	ReasonTimeout      = "timeout"
	ReasonNetwork      = "network"
	ReasonSchema       = "schema"
	ReasonStatus       = "status"
	ReasonForced       = "forced"
)

// Session is the per-browsing-session state machine. It is the only place
// current-user state changes.
//
// A Session starts Unresolved. Recover moves it to Authenticated or
// Anonymous exactly once; Login and Logout may move it at any time. Every
// transition bumps a generation counter, and a Recovery result computed
// under an older generation is discarded, so the last transition requested
// always wins.
type Session struct {
	id      string
	tokens  *tokenstore.Store
	api     *apiclient.Client
	cfg     *Config
	logger  *slog.Logger
	metrics *Metrics
	audit   *auditDispatcher
	now     func() time.Time

	// credMu serializes credential writes and deletes so the slow store
	// round trips happen outside mu. Lock order is credMu, then mu.
	credMu sync.Mutex

	mu     sync.Mutex
	user   *User
	phase  Phase
	gen    uint64
	tasks  []*Task
	closed bool

	started     atomic.Bool
	recoverOnce sync.Once
	resolveOnce sync.Once
	resolved    chan struct{}
	lastSeen    atomic.Int64
}

func newSession(id string, tokens *tokenstore.Store, api *apiclient.Client, cfg *Config, logger *slog.Logger, metrics *Metrics, audit *auditDispatcher) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		id:       id,
		tokens:   tokens,
		api:      api.WithTokens(tokens),
		cfg:      cfg,
		logger:   logger.With("session_id", id),
		metrics:  metrics,
		audit:    audit,
		now:      time.Now,
		resolved: make(chan struct{}),
	}
	s.touch()
	return s
}

// ID returns the browsing-session id.
func (s *Session) ID() string { return s.id }

// API returns the backend client bound to this session's credential.
func (s *Session) API() *apiclient.Client { return s.api }

// Tokens returns the session's credential store.
func (s *Session) Tokens() *tokenstore.Store { return s.tokens }

/*
====================================
RECOVERY
====================================
*/

// Start launches Recover in the background. The recovery outlives ctx's
// cancellation but keeps its values. Only the first call has an effect.
func (s *Session) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.Recover(context.WithoutCancel(ctx))
}

// Wait blocks until the session is resolved or ctx ends, and reports
// whether it is resolved.
func (s *Session) Wait(ctx context.Context) bool {
	select {
	case <-s.resolved:
		return true
	default:
	}
	select {
	case <-s.resolved:
		return true
	case <-ctx.Done():
		return false
	}
}

// Done is closed when the session first becomes resolved.
func (s *Session) Done() <-chan struct{} {
	return s.resolved
}

// Recover restores the session from its stored credential. It runs at most
// once and never returns an error: any failure clears the credential and
// leaves the session Anonymous. A Login or Logout that happens first makes
// Recover a no-op.
func (s *Session) Recover(ctx context.Context) {
	s.recoverOnce.Do(func() {
		s.recover(ctx)
	})
}

func (s *Session) recover(ctx context.Context) {
	s.mu.Lock()
	if s.phase != PhaseUnresolved {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseRecovering
	gen := s.gen
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Recovery.Timeout)
	defer cancel()

	token, ok := s.tokens.Get(ctx)
	if !ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen {
			s.metrics.Inc(MetricRecoveryStale)
			return
		}
		s.user = nil
		s.phase = PhaseAnonymous
		s.markResolvedLocked()
		s.metrics.Inc(MetricRecoveryAnonymous)
		s.logger.Debug("session recovery: no stored credential")
		return
	}

	start := time.Now()
	user, err := s.fetchProfile(ctx, token)
	s.metrics.Observe(MetricRecoveryLatency, time.Since(start))

	if err != nil {
		s.failRecovery(ctx, gen, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		s.metrics.Inc(MetricRecoveryStale)
		s.logger.Debug("session recovery: result discarded, session changed meanwhile")
		return
	}

	s.user = user
	s.phase = PhaseAuthenticated
	s.markResolvedLocked()

	s.metrics.Inc(MetricRecoverySuccess)
	s.logger.Info("session recovered", "user_id", user.ID, "role", user.Role)
	s.emitAudit(ctx, AuditRecovery, true, user, "", nil)
}

// failRecovery drops the rejected credential unless a transition happened
// while the profile fetch was in flight.
func (s *Session) failRecovery(ctx context.Context, gen uint64, err error) {
	s.credMu.Lock()
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.credMu.Unlock()
		s.metrics.Inc(MetricRecoveryStale)
		s.logger.Debug("session recovery: result discarded, session changed meanwhile")
		return
	}
	s.user = nil
	s.phase = PhaseAnonymous
	s.markResolvedLocked()
	s.mu.Unlock()

	// credMu is still held, so no Login can store a credential before this delete.
	s.clearToken(ctx)
	s.credMu.Unlock()

	reason := recoveryReason(err)
	s.metrics.Inc(MetricRecoveryFailure)
	s.logger.Warn("session recovery failed", "reason", reason, "error", err)
	s.emitAudit(context.WithoutCancel(ctx), AuditRecovery, false, nil, reason, err)
}

func (s *Session) fetchProfile(ctx context.Context, token string) (*User, error) {
	if s.cfg.Recovery.SkipExpiredJWT && jwt.Expired(token, s.now(), s.cfg.Recovery.ExpiryLeeway) {
		return nil, fmt.Errorf("%w: %w", ErrRecoveryFailed, ErrTokenExpired)
	}

	var user User
	if err := s.api.Get(ctx, profilePath, nil, &user); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w: %w", ErrRecoveryFailed, ErrRecoveryTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrRecoveryFailed, err)
	}
	return &user, nil
}

func recoveryReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return ReasonTokenExpired
	case errors.Is(err, ErrRecoveryTimeout):
		return ReasonTimeout
	case apiclient.IsUnauthorized(err):
		return ReasonUnauthorized
	case apiclient.StatusCode(err) != 0:
		return ReasonStatus
	case errors.Is(err, apiclient.ErrSchema):
		return ReasonSchema
	default:
		return ReasonNetwork
	}
}

/*
====================================
TRANSITIONS
====================================
*/

// Login stores token and marks the session Authenticated as user, without
// a round trip. Only argument validation fails; a credential that could not
// be persisted stays in the in-memory cache and is logged.
func (s *Session) Login(ctx context.Context, token string, user *User) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidToken
	}
	if err := user.Validate(); err != nil {
		return err
	}
	u := user.Clone()

	s.credMu.Lock()
	if err := s.tokens.Set(ctx, token); err != nil {
		s.metrics.Inc(MetricTokenPersistFailure)
		s.logger.Warn("credential not persisted", "error", err)
	}
	s.mu.Lock()
	s.gen++
	s.user = u
	s.phase = PhaseAuthenticated
	s.markResolvedLocked()
	s.mu.Unlock()
	s.credMu.Unlock()
	s.touch()

	s.metrics.Inc(MetricLogin)
	s.logger.Info("user logged in", "user_id", u.ID, "role", u.Role)
	s.emitAudit(ctx, AuditLogin, true, u, "", nil)
	return nil
}

// Logout clears the credential and moves the session to Anonymous from any
// state. Periodic tasks attached to the session are stopped.
func (s *Session) Logout(ctx context.Context) {
	s.logout(ctx, AuditLogout, "")
}

// ForceLogout logs the session out when err is a 401 or 403 from the
// backend and reports whether it did.
func (s *Session) ForceLogout(ctx context.Context, err error) bool {
	if !apiclient.IsUnauthorized(err) {
		return false
	}
	s.logout(ctx, AuditForcedLogout, ReasonForced)
	return true
}

func (s *Session) logout(ctx context.Context, event, reason string) {
	prev := s.signOut(ctx)

	if event == AuditForcedLogout {
		s.metrics.Inc(MetricForcedLogout)
		s.logger.Info("session invalidated by backend")
	} else {
		s.metrics.Inc(MetricLogout)
		s.logger.Info("user logged out")
	}
	s.emitAudit(ctx, event, true, prev, reason, nil)
}

// retire signs the session out after its credential moved to another id.
// It is not a logout and records none.
func (s *Session) retire(ctx context.Context) {
	s.signOut(ctx)
	s.logger.Debug("session retired after sign-in")
}

// signOut moves the session to Anonymous, stops its tasks and deletes the
// stored credential. It returns the user signed out, if any.
func (s *Session) signOut(ctx context.Context) *User {
	s.credMu.Lock()

	s.mu.Lock()
	prev := s.user
	s.gen++
	s.user = nil
	s.phase = PhaseAnonymous
	s.markResolvedLocked()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	s.clearToken(ctx)
	s.credMu.Unlock()

	for _, t := range tasks {
		t.stopFrom(ctx)
	}
	return prev
}

// UpdateUser replaces the current profile without touching the credential.
// It fails with ErrNotAuthenticated unless the session is Authenticated.
func (s *Session) UpdateUser(ctx context.Context, user *User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	u := user.Clone()

	s.mu.Lock()
	if s.phase != PhaseAuthenticated {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	s.gen++
	s.user = u
	s.mu.Unlock()

	s.metrics.Inc(MetricProfileUpdate)
	s.emitAudit(ctx, AuditProfileUpdate, true, u, "", nil)
	return nil
}

// clearToken deletes the credential even when ctx is already done. Callers
// hold credMu but not mu.
func (s *Session) clearToken(ctx context.Context) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := s.tokens.Clear(cctx); err != nil {
		s.logger.Warn("credential not cleared from backend", "error", err)
	}
}

func (s *Session) markResolvedLocked() {
	s.resolveOnce.Do(func() {
		close(s.resolved)
	})
}

/*
====================================
READS
====================================
*/

// State returns a snapshot. The user is a copy.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		User:     s.user.Clone(),
		Resolved: s.phase == PhaseAnonymous || s.phase == PhaseAuthenticated,
		Phase:    s.phase,
	}
}

// User returns a copy of the current user, or nil.
func (s *Session) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Clone()
}

func (s *Session) IsAuthenticated() bool { return s.State().Authenticated() }
func (s *Session) IsAdmin() bool         { return s.State().IsAdmin() }
func (s *Session) IsManager() bool       { return s.State().IsManager() }
func (s *Session) IsHR() bool            { return s.State().IsHR() }
func (s *Session) IsEmployee() bool      { return s.State().IsEmployee() }

/*
====================================
LIFECYCLE
====================================
*/

// Attach ties t to the session: it is stopped on Logout and Close. A task
// attached to a closed or unauthenticated session is stopped immediately.
func (s *Session) Attach(t *Task) {
	if t == nil {
		return
	}
	s.mu.Lock()
	if s.closed || s.phase != PhaseAuthenticated {
		s.mu.Unlock()
		t.Stop()
		return
	}
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
}

// Close stops attached tasks and drops the in-memory credential. The
// persisted credential survives, so a new Session for the same id recovers.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	for _, t := range tasks {
		t.Stop()
	}
	s.tokens.Forget()
}

func (s *Session) touch() {
	s.lastSeen.Store(s.now().UnixNano())
}

func (s *Session) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

func (s *Session) emitAudit(ctx context.Context, eventType string, success bool, user *User, reason string, err error) {
	if s.audit == nil {
		return
	}
	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: s.now(),
		EventType: eventType,
		SessionID: s.id,
		Success:   success,
		Reason:    reason,
	}
	if user != nil {
		event.UserID = user.ID
		event.Role = user.Role.String()
	}
	if err != nil {
		event.Error = err.Error()
	}
	s.audit.Emit(ctx, event)
}
