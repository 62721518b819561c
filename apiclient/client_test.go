package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

type staticTokens struct {
	mu    sync.Mutex
	token string
	calls int
}

func (s *staticTokens) Get(context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.token, s.token != ""
}

type profile struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (p *profile) Validate() error {
	if p.ID == "" {
		return errors.New("missing id")
	}
	return nil
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(h)
	c, err := New(srv.URL + "/api/")
	if err != nil {
		srv.Close()
		t.Fatalf("new client: %v", err)
	}
	return c, srv.Close
}

func TestBearerAttachedWhenTokenPresent(t *testing.T) {
	var gotAuth, gotPath string
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id":"1","role":"admin"}`))
	})
	defer done()

	tokens := &staticTokens{token: "abc"}
	var p profile
	if err := c.WithTokens(tokens).Get(context.Background(), "/auth/profile", nil, &p); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotAuth != "Bearer abc" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if gotPath != "/api/auth/profile" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if p.ID != "1" || p.Role != "admin" {
		t.Fatalf("unexpected profile %+v", p)
	}
}

func TestTokenConsultedOnEveryRequest(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	})
	defer done()

	tokens := &staticTokens{token: "first"}
	view := c.WithTokens(tokens)
	ctx := context.Background()

	if err := view.Get(ctx, "/x", nil, nil); err != nil {
		t.Fatalf("first: %v", err)
	}
	tokens.mu.Lock()
	tokens.token = ""
	tokens.mu.Unlock()
	if err := view.Get(ctx, "/x", nil, nil); err != nil {
		t.Fatalf("second: %v", err)
	}

	if len(seen) != 2 || seen[0] != "Bearer first" || seen[1] != "" {
		t.Fatalf("unexpected auth headers %q", seen)
	}
}

func TestUnauthenticatedWithoutTokenSource(t *testing.T) {
	var gotAuth string
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})
	defer done()

	if _, err := c.Do(context.Background(), &Request{Path: "/auth/login", Method: http.MethodPost, Body: map[string]string{"email": "a"}}); err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("expected no auth header, got %q", gotAuth)
	}
}

func TestQueryMergedWithPathQuery(t *testing.T) {
	var got url.Values
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(`{}`))
	})
	defer done()

	q := url.Values{"limit": {"10"}, "page": {"2"}}
	if err := c.Get(context.Background(), "/leave/requests?status=pending&limit=5", q, nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Get("status") != "pending" || got.Get("limit") != "10" || got.Get("page") != "2" {
		t.Fatalf("unexpected query %v", got)
	}
}

func TestNon2xxBecomesStatusError(t *testing.T) {
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Token is not valid"}`))
	})
	defer done()

	err := c.Get(context.Background(), "/auth/profile", nil, &profile{})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusUnauthorized || se.Message != "Token is not valid" {
		t.Fatalf("unexpected status error %+v", se)
	}
	if !IsUnauthorized(err) {
		t.Fatal("expected 401 to read as unauthorized")
	}
	if Message(err) != "Token is not valid" {
		t.Fatalf("unexpected message %q", Message(err))
	}
}

func TestForbiddenIsUnauthorizedButBadRequestIsNot(t *testing.T) {
	if !IsUnauthorized(&StatusError{StatusCode: http.StatusForbidden}) {
		t.Fatal("403 must read as unauthorized")
	}
	if IsUnauthorized(&StatusError{StatusCode: http.StatusBadRequest}) {
		t.Fatal("400 must not read as unauthorized")
	}
	if IsUnauthorized(errors.New("dial tcp: refused")) {
		t.Fatal("transport errors must not read as unauthorized")
	}
}

func TestSchemaMismatchIsDistinct(t *testing.T) {
	bodies := []string{`{"role":"admin"}`, `not json`, ``}
	for _, body := range bodies {
		c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		err := c.Get(context.Background(), "/auth/profile", nil, &profile{})
		done()

		if !errors.Is(err, ErrSchema) {
			t.Fatalf("body %q: expected ErrSchema, got %v", body, err)
		}
		if StatusCode(err) != 0 {
			t.Fatalf("body %q: schema errors carry no status", body)
		}
	}
}

func TestHooksRunAfterBearer(t *testing.T) {
	var gotTrace, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = r.Header.Get("X-Request-Id")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithHook(func(_ context.Context, req *http.Request) error {
		if !strings.HasPrefix(req.Header.Get("Authorization"), "Bearer ") {
			return errors.New("bearer hook did not run first")
		}
		req.Header.Set("X-Request-Id", "r-1")
		return nil
	}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := c.WithTokens(&staticTokens{token: "t"}).Get(context.Background(), "/x", nil, nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotTrace != "r-1" || gotAuth != "Bearer t" {
		t.Fatalf("unexpected headers trace=%q auth=%q", gotTrace, gotAuth)
	}
}

func TestFailingHookAbortsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c, _ := New(srv.URL, WithHook(func(context.Context, *http.Request) error {
		return errors.New("blocked")
	}))
	if _, err := c.Do(context.Background(), &Request{Path: "/x"}); err == nil {
		t.Fatal("expected hook error")
	}
	if called {
		t.Fatal("request must not be sent when a hook fails")
	}
}

func TestDownloadReturnsBinaryAndFilename(t *testing.T) {
	payload := []byte{0x50, 0x4b, 0x03, 0x04, 0x00}
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("startDate") != "2024-01-01" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="Attendance_Report.xlsx"`)
		_, _ = w.Write(payload)
	})
	defer done()

	f, err := c.Download(context.Background(), &Request{
		Path:  "/attendance/download-report",
		Query: url.Values{"startDate": {"2024-01-01"}},
	})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if f.Name != "Attendance_Report.xlsx" {
		t.Fatalf("unexpected filename %q", f.Name)
	}
	if string(f.Data) != string(payload) {
		t.Fatalf("unexpected payload %v", f.Data)
	}
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:5000", "/api"} {
		if _, err := New(raw); !errors.Is(err, ErrInvalidBaseURL) {
			t.Fatalf("New(%q): expected ErrInvalidBaseURL, got %v", raw, err)
		}
	}
}

func TestRequestBodyIsJSON(t *testing.T) {
	var got map[string]any
	var ct string
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ct = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{}`))
	})
	defer done()

	if err := c.Post(context.Background(), "/leave/request", map[string]string{"leaveType": "sick"}, nil); err != nil {
		t.Fatalf("post: %v", err)
	}
	if ct != "application/json" || got["leaveType"] != "sick" {
		t.Fatalf("unexpected body %v (content-type %q)", got, ct)
	}
}

func TestEscapedPathSegmentReachesBackendIntact(t *testing.T) {
	var rawPath, path string
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawPath = r.URL.EscapedPath()
		path = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	defer done()

	id := "a/../../auth/x"
	if err := c.Put(context.Background(), "/users/"+url.PathEscape(id), nil, nil); err != nil {
		t.Fatalf("put: %v", err)
	}
	if rawPath != "/api/users/a%2F..%2F..%2Fauth%2Fx" {
		t.Fatalf("id must stay one escaped segment, backend saw %q", rawPath)
	}
	if path != "/api/users/"+id {
		t.Fatalf("unexpected decoded path %q", path)
	}
}

func TestPlainPathUnchanged(t *testing.T) {
	var rawPath string
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawPath = r.URL.EscapedPath() + "?" + r.URL.RawQuery
		_, _ = w.Write([]byte(`{}`))
	})
	defer done()

	if err := c.Get(context.Background(), "/leave/requests?status=pending", url.Values{"page": {"2"}}, nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if rawPath != "/api/leave/requests?page=2&status=pending" {
		t.Fatalf("unexpected request %q", rawPath)
	}
}

func TestOversizedBodyIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/api", WithMaxBody(16))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := c.Do(context.Background(), &Request{Path: "/reports/download"}); !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("expected ErrResponseTooLarge, got %v", err)
	}

	exact, _ := New(srv.URL+"/api", WithMaxBody(64))
	resp, err := exact.Do(context.Background(), &Request{Path: "/reports/download"})
	if err != nil || len(resp.Body) != 64 {
		t.Fatalf("body at the limit must be read in full, got %v", err)
	}
}
