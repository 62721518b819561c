package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	goAttend "github.com/MrEthical07/goAttend"
	"github.com/MrEthical07/goAttend/apiclient"
	"github.com/MrEthical07/goAttend/backend"
	"github.com/MrEthical07/goAttend/guard"
)

const maxRequestBody = 1 << 20

var (
	errBadRequest     = errors.New("bad request")
	errThrottled      = errors.New("too many sign-in attempts, try again later")
	errExportTooLarge = errors.New("attendance log too large to export")
)

type pageData struct {
	Title         string
	Path          string
	User          *goAttend.User
	Nav           []guard.Route
	Notifications []backend.Notification
	Error         string
	Flash         string
	Data          any
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) render(w http.ResponseWriter, status int, name string, pd pageData) {
	tmpl, ok := s.pages[name]
	if !ok {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", pd); err != nil {
		s.logger.Error("template render failed", "page", name, "error", err)
		http.Error(w, "template render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// decodeJSON reads an optional JSON body into v. An empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if len(data) > maxRequestBody {
		return fmt.Errorf("%w: body too large", errBadRequest)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// classify maps a backend or request error to a status and a message safe
// to show the user.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errThrottled):
		return http.StatusTooManyRequests, "Too many sign-in attempts. Try again later."
	case errors.Is(err, errBadRequest),
		errors.Is(err, backend.ErrEmptyID),
		errors.Is(err, backend.ErrInvalidLeaveStatus),
		errors.Is(err, goAttend.ErrInvalidUser):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errExportTooLarge):
		return http.StatusUnprocessableEntity, "Too many log entries to export at once. Pick a single date."
	case errors.Is(err, apiclient.ErrResponseTooLarge):
		return http.StatusBadGateway, "The file is too large to download."
	case errors.Is(err, apiclient.ErrSchema):
		return http.StatusBadGateway, "Unexpected response from the attendance service."
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "The attendance service timed out."
	}
	if code := apiclient.StatusCode(err); code >= 400 {
		return code, apiclient.Message(err)
	}
	return http.StatusBadGateway, "The attendance service is unavailable."
}

// actionError answers a failed JSON action. A rejected credential logs the
// session out and answers 401.
func (s *Server) actionError(w http.ResponseWriter, r *http.Request, sess *goAttend.Session, err error) {
	if sess != nil && sess.ForceLogout(r.Context(), err) {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "session expired"})
		return
	}
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("backend call failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

// redirectWith sends a 303 to path with the given query parameters.
func redirectWith(w http.ResponseWriter, r *http.Request, path string, params ...string) {
	q := url.Values{}
	for i := 0; i+1 < len(params); i += 2 {
		if params[i+1] != "" {
			q.Set(params[i], params[i+1])
		}
	}
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func sessionFrom(r *http.Request) *goAttend.Session {
	s, _ := goAttend.SessionFromContext(r.Context())
	return s
}
