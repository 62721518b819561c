package goAttend

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goAttend/apiclient"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, rdb
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBackend is a stand-in attendance backend that serves /api/auth/profile.
type fakeBackend struct {
	srv      *httptest.Server
	calls    atomic.Int64
	status   atomic.Int64
	delay    atomic.Int64
	body     atomic.Value
	lastAuth atomic.Value
	release  chan struct{}
}

// gated makes every profile request block until release is closed.
func gated(fb *fakeBackend) {
	fb.release = make(chan struct{})
}

func newFakeBackend(t *testing.T, opts ...func(*fakeBackend)) *fakeBackend {
	t.Helper()

	fb := &fakeBackend{}
	for _, opt := range opts {
		opt(fb)
	}
	fb.status.Store(http.StatusOK)
	fb.body.Store(`{"_id":"u-1","name":"Mina","email":"mina@example.com","role":"manager","department":"Ops"}`)
	fb.lastAuth.Store("")

	fb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/profile" {
			http.NotFound(w, r)
			return
		}
		fb.calls.Add(1)
		fb.lastAuth.Store(r.Header.Get("Authorization"))

		if fb.release != nil {
			select {
			case <-fb.release:
			case <-r.Context().Done():
				return
			}
		}
		if d := time.Duration(fb.delay.Load()); d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}

		status := int(fb.status.Load())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Token is not valid"})
			return
		}
		_, _ = io.WriteString(w, fb.body.Load().(string))
	}))
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) URL() string {
	return fb.srv.URL + "/api"
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = 5 * time.Second
	cfg.Recovery.Timeout = 2 * time.Second
	cfg.Session.IdleTimeout = 0
	return cfg
}

func buildTestEngine(t *testing.T, cfg Config) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(discardLogger()).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return engine, mr
}

func managerUser() *User {
	return &User{ID: "u-1", Name: "Mina", Email: "mina@example.com", Role: "manager", Department: "Ops"}
}

func errForTest(status int) error {
	return &apiclient.StatusError{Method: http.MethodGet, Path: "/x", StatusCode: status}
}
