package tokenstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrNotFound is returned by a [Backend] when no token is persisted for the
// browsing session.
var ErrNotFound = errors.New("token not found")

// ErrEmptySessionID is returned by [New] when sid is blank.
var ErrEmptySessionID = errors.New("empty browsing session id")

// Backend is the session-scoped persistent half of a [Store].
type Backend interface {
	Load(ctx context.Context, sid string) (string, error)
	Save(ctx context.Context, sid, token string) error
	Delete(ctx context.Context, sid string) error
}

// Store is the single source of truth for one browsing session's bearer
// credential. Safe for concurrent use.
type Store struct {
	backend Backend
	sid     string
	logger  *slog.Logger

	mu      sync.Mutex
	cached  string
	version uint64
}

// New returns a Store for the browsing session sid. A nil logger falls back
// to slog.Default().
func New(backend Backend, sid string, logger *slog.Logger) (*Store, error) {
	if backend == nil {
		return nil, errors.New("tokenstore: nil backend")
	}
	if sid == "" {
		return nil, ErrEmptySessionID
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, sid: sid, logger: logger}, nil
}

// SessionID returns the browsing session the store is bound to.
func (s *Store) SessionID() string {
	return s.sid
}

// Set caches token and writes it to the backend. The cache is updated even
// when the backend write fails; the backend error is returned.
func (s *Store) Set(ctx context.Context, token string) error {
	s.mu.Lock()
	s.cached = token
	s.version++
	s.mu.Unlock()

	if token == "" {
		return s.backend.Delete(ctx, s.sid)
	}
	return s.backend.Save(ctx, s.sid, token)
}

// Get returns the cached token, falling back to the backend. Backend errors
// are logged and reported as absent.
func (s *Store) Get(ctx context.Context) (string, bool) {
	s.mu.Lock()
	if s.cached != "" {
		token := s.cached
		s.mu.Unlock()
		return token, true
	}
	seen := s.version
	s.mu.Unlock()

	token, err := s.backend.Load(ctx, s.sid)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("token backend read failed", "sid", s.sid, "err", err)
		}
		return "", false
	}
	if token == "" {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A Set or Clear that raced the backend read wins over the stale value.
	if s.version != seen {
		if s.cached == "" {
			return "", false
		}
		return s.cached, true
	}
	s.cached = token
	return token, true
}

// Clear drops the cached and persisted token. Safe to call when empty.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.cached = ""
	s.version++
	s.mu.Unlock()

	return s.backend.Delete(ctx, s.sid)
}

// Forget drops only the in-memory copy. The next Get reads the backend.
func (s *Store) Forget() {
	s.mu.Lock()
	s.cached = ""
	s.mu.Unlock()
}
