//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
	"time"

	goAttend "github.com/MrEthical07/goAttend"
	"github.com/MrEthical07/goAttend/role"
	gojwt "github.com/golang-jwt/jwt/v5"
)

func TestSessionSurvivesEngineRestart(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()
			api := newAttendanceAPI(t)

			first := buildEngine(t, rdb, api)
			sid := first.NewSessionID()
			s, err := first.Session(sid)
			if err != nil {
				t.Fatalf("session: %v", err)
			}
			user := &goAttend.User{ID: "u-admin", Name: "Ada", Email: "ada@example.com", Role: role.Admin}
			if err := s.Login(context.Background(), "tok-admin", user); err != nil {
				t.Fatalf("login: %v", err)
			}
			first.Close()

			second := buildEngine(t, rdb, api)
			restored, err := second.Session(sid)
			if err != nil {
				t.Fatalf("session after restart: %v", err)
			}
			state := resolve(t, restored)
			if !state.Authenticated() || state.Role() != role.Admin {
				t.Fatalf("expected recovered admin, got %+v", state)
			}
			if api.profileHits() != 1 {
				t.Fatalf("expected exactly one profile fetch, got %d", api.profileHits())
			}
		})
	}
}

func TestRevokedCredentialIsClearedOnRecovery(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()
			api := newAttendanceAPI(t)

			first := buildEngine(t, rdb, api)
			sid := first.NewSessionID()
			s, _ := first.Session(sid)
			user := &goAttend.User{ID: "u-emp", Name: "Eve", Email: "eve@example.com", Role: role.Employee}
			if err := s.Login(context.Background(), "tok-emp", user); err != nil {
				t.Fatalf("login: %v", err)
			}
			first.Close()
			api.revoke("tok-emp")

			second := buildEngine(t, rdb, api)
			restored, _ := second.Session(sid)
			state := resolve(t, restored)
			if state.Authenticated() || state.Phase != goAttend.PhaseAnonymous {
				t.Fatalf("expected anonymous after revoked credential, got %+v", state)
			}
			n, err := rdb.Exists(context.Background(), "ga:tok:"+sid).Result()
			if err != nil {
				t.Fatalf("exists: %v", err)
			}
			if n != 0 {
				t.Fatalf("revoked credential still persisted")
			}
		})
	}
}

func TestExpiredJWTSkipsProfileFetch(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()
			api := newAttendanceAPI(t)

			claims := gojwt.MapClaims{
				"id":   "u-emp",
				"role": "employee",
				"exp":  time.Now().Add(-time.Hour).Unix(),
			}
			token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
			if err != nil {
				t.Fatalf("sign: %v", err)
			}

			engine := buildEngine(t, rdb, api)
			sid := engine.NewSessionID()
			if err := rdb.Set(context.Background(), "ga:tok:"+sid, token, time.Hour).Err(); err != nil {
				t.Fatalf("seed: %v", err)
			}

			s, _ := engine.Session(sid)
			state := resolve(t, s)
			if state.Authenticated() {
				t.Fatalf("expired credential should not authenticate")
			}
			if api.profileHits() != 0 {
				t.Fatalf("expired credential should not reach the backend, got %d calls", api.profileHits())
			}
		})
	}
}

func TestLogoutRemovesCredentialForOtherInstances(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()
			api := newAttendanceAPI(t)

			a := buildEngine(t, rdb, api)
			b := buildEngine(t, rdb, api)
			sid := a.NewSessionID()

			sa, _ := a.Session(sid)
			user := &goAttend.User{ID: "u-admin", Name: "Ada", Email: "ada@example.com", Role: role.Admin}
			if err := sa.Login(context.Background(), "tok-admin", user); err != nil {
				t.Fatalf("login: %v", err)
			}
			sa.Logout(context.Background())

			sb, _ := b.Session(sid)
			if state := resolve(t, sb); state.Authenticated() {
				t.Fatalf("other instance recovered a logged-out session: %+v", state)
			}
			if api.profileHits() != 0 {
				t.Fatalf("no profile fetch expected, got %d", api.profileHits())
			}
		})
	}
}
