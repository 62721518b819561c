package portal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	goAttend "github.com/MrEthical07/goAttend"
	"github.com/MrEthical07/goAttend/apiclient"
	"github.com/MrEthical07/goAttend/backend"
	"github.com/MrEthical07/goAttend/guard"
	"github.com/MrEthical07/goAttend/internal/rate"
	"github.com/MrEthical07/goAttend/middleware"
)

// waitResolved gives an in-flight recovery up to Guard.RecoveryWait.
func (s *Server) waitResolved(r *http.Request, sess *goAttend.Session) goAttend.State {
	if wait := s.engine.Config().Guard.RecoveryWait; wait > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), wait)
		sess.Wait(ctx)
		cancel()
	}
	return sess.State()
}

// public returns a client without a bearer credential.
func (s *Server) public() *backend.Client {
	return backend.New(s.engine.API())
}

func (s *Server) publicPage(name, title string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		s.render(w, http.StatusOK, name, pageData{
			Title: title,
			Path:  r.URL.Path,
			Error: q.Get("error"),
			Flash: q.Get("notice"),
			Data:  q.Get("token"),
		})
	})
}

// loginPage sends signed-in users to the landing page.
func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFrom(r); sess != nil && s.waitResolved(r, sess).Authenticated() {
		http.Redirect(w, r, s.engine.Config().Guard.DefaultPath, http.StatusSeeOther)
		return
	}
	s.publicPage("login", "Sign in").ServeHTTP(w, r)
}

// login signs creds in with the backend and moves the browser to a fresh
// session id. Failed credentials count against the sign-in throttle; a
// throttle that cannot reach Redis lets the attempt through.
func (s *Server) login(w http.ResponseWriter, r *http.Request, creds backend.Credentials) (*goAttend.Session, error) {
	ctx := r.Context()
	ip := clientIP(r)

	if err := s.throttle.CheckLogin(ctx, creds.Email, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			s.logger.Info("sign-in throttled", "ip", ip)
			return nil, errThrottled
		}
		s.logger.Warn("sign-in throttle check failed", "error", err)
	}

	resp, err := s.public().Login(ctx, creds)
	if err != nil {
		if credentialsRejected(err) {
			if terr := s.throttle.RecordFailure(ctx, creds.Email, ip); terr != nil && !errors.Is(terr, rate.ErrRateLimited) {
				s.logger.Warn("sign-in throttle update failed", "error", terr)
			}
		}
		return nil, err
	}
	if err := s.throttle.Reset(ctx, creds.Email, ip); err != nil {
		s.logger.Warn("sign-in throttle reset failed", "error", err)
	}

	sess, err := s.engine.Login(ctx, sessionFrom(r), resp.Token, resp.User)
	if err != nil {
		return nil, err
	}
	middleware.SetSessionCookie(s.engine, w, sess.ID())
	return sess, nil
}

func credentialsRejected(err error) bool {
	switch apiclient.StatusCode(err) {
	case http.StatusBadRequest, http.StatusUnauthorized:
		return true
	}
	return false
}

// clientIP is the peer address. Forwarding headers are not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	cfg := s.engine.Config().Guard
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, cfg.LoginPath, "error", "Invalid form submission")
		return
	}
	creds := backend.Credentials{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	if creds.Email == "" || creds.Password == "" {
		redirectWith(w, r, cfg.LoginPath, "error", "Email and password are required")
		return
	}

	if _, err := s.login(w, r, creds); err != nil {
		_, msg := classify(err)
		redirectWith(w, r, cfg.LoginPath, "error", msg)
		return
	}
	http.Redirect(w, r, cfg.DefaultPath, http.StatusSeeOther)
}

func (s *Server) logoutForm(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Logout(r.Context())
	http.Redirect(w, r, s.engine.Config().Guard.LoginPath, http.StatusSeeOther)
}

func (s *Server) registerForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/register", "error", "Invalid form submission")
		return
	}
	reg := backend.Registration{
		Name:       strings.TrimSpace(r.FormValue("name")),
		Email:      strings.TrimSpace(r.FormValue("email")),
		Password:   r.FormValue("password"),
		Department: strings.TrimSpace(r.FormValue("department")),
		Position:   strings.TrimSpace(r.FormValue("position")),
		Phone:      strings.TrimSpace(r.FormValue("phone")),
	}
	if reg.Name == "" || reg.Email == "" || reg.Password == "" {
		redirectWith(w, r, "/register", "error", "Name, email and password are required")
		return
	}
	if _, err := s.public().Register(r.Context(), reg); err != nil {
		_, msg := classify(err)
		redirectWith(w, r, "/register", "error", msg)
		return
	}
	redirectWith(w, r, s.engine.Config().Guard.LoginPath, "notice", "Registration submitted. An administrator will review it.")
}

func (s *Server) forgotPasswordForm(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	if email == "" {
		redirectWith(w, r, "/forgot-password", "error", "Email is required")
		return
	}
	if _, err := s.public().ForgotPassword(r.Context(), email); err != nil {
		_, msg := classify(err)
		redirectWith(w, r, "/forgot-password", "error", msg)
		return
	}
	redirectWith(w, r, s.engine.Config().Guard.LoginPath, "notice", "If the address is registered, a reset link is on its way.")
}

func (s *Server) resetPasswordForm(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.PostFormValue("token"))
	password := r.PostFormValue("newPassword")
	if token == "" || password == "" {
		redirectWith(w, r, "/reset-password", "token", token, "error", "Reset token and new password are required")
		return
	}
	if _, err := s.public().ResetPassword(r.Context(), token, password); err != nil {
		_, msg := classify(err)
		redirectWith(w, r, "/reset-password", "token", token, "error", msg)
		return
	}
	redirectWith(w, r, s.engine.Config().Guard.LoginPath, "notice", "Password updated. Please sign in.")
}

type sessionView struct {
	Resolved   bool           `json:"resolved"`
	Phase      string         `json:"phase"`
	User       *goAttend.User `json:"user,omitempty"`
	Navigation []string       `json:"navigation"`
}

func viewOf(state goAttend.State) sessionView {
	v := sessionView{
		Resolved:   state.Resolved,
		Phase:      state.Phase.String(),
		User:       state.User,
		Navigation: []string{},
	}
	for _, rt := range guard.Navigation(state) {
		v.Navigation = append(v.Navigation, rt.Path)
	}
	return v
}

func (s *Server) apiLogin(w http.ResponseWriter, r *http.Request) {
	var creds backend.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		s.actionError(w, r, nil, err)
		return
	}
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "email and password are required"})
		return
	}
	sess, err := s.login(w, r, creds)
	if err != nil {
		s.actionError(w, r, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess.State()))
}

func (s *Server) apiLogout(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// apiSession reports the session state. An unresolved session is reported
// as such after RecoveryWait rather than blocking.
func (s *Server) apiSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(s.waitResolved(r, sessionFrom(r))))
}
