//go:build integration
// +build integration

package test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goAttend "github.com/MrEthical07/goAttend"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// redisMode is one Redis deployment the suite runs against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes always includes miniredis. A real server joins when REDIS_ADDR
// is set, a cluster when REDIS_CLUSTER_ADDRS is.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}

	if addrs := os.Getenv("REDIS_CLUSTER_ADDRS"); addrs != "" {
		modes = append(modes, redisMode{
			name: "cluster",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClusterClient(&redis.ClusterOptions{Addrs: strings.Split(addrs, ",")})
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis cluster: %v", err)
				}
				return rdb, func() { _ = rdb.Close() }
			},
		})
	}

	return modes
}

// attendanceAPI is a minimal stand-in for the attendance backend's auth
// routes. Tokens map to profiles; revoked tokens get 401.
type attendanceAPI struct {
	*httptest.Server

	mu           sync.Mutex
	profiles     map[string]map[string]any
	profileCalls atomic.Int64
}

func newAttendanceAPI(t *testing.T) *attendanceAPI {
	t.Helper()
	a := &attendanceAPI{profiles: map[string]map[string]any{
		"tok-admin": {"_id": "u-admin", "name": "Ada", "email": "ada@example.com", "role": "admin"},
		"tok-emp":   {"_id": "u-emp", "name": "Eve", "email": "eve@example.com", "role": "employee"},
	}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		a.profileCalls.Add(1)
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		a.mu.Lock()
		p, ok := a.profiles[token]
		a.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token is not valid"})
			return
		}
		writeJSON(w, http.StatusOK, p)
	})
	a.Server = httptest.NewServer(mux)
	t.Cleanup(a.Close)
	return a
}

func (a *attendanceAPI) revoke(token string) {
	a.mu.Lock()
	delete(a.profiles, token)
	a.mu.Unlock()
}

func (a *attendanceAPI) profileHits() int64 {
	return a.profileCalls.Load()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func buildEngine(t *testing.T, rdb redis.UniversalClient, api *attendanceAPI) *goAttend.Engine {
	t.Helper()
	cfg := goAttend.DefaultConfig()
	cfg.API.BaseURL = api.URL + "/api"
	cfg.Session.IdleTimeout = 0
	cfg.Recovery.Timeout = 2 * time.Second

	engine, err := goAttend.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func resolve(t *testing.T, s *goAttend.Session) goAttend.State {
	t.Helper()
	s.Start(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if !s.Wait(ctx) {
		t.Fatalf("session %s never resolved", s.ID())
	}
	return s.State()
}
