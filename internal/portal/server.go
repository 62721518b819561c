package portal

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goAttend "github.com/MrEthical07/goAttend"
	"github.com/MrEthical07/goAttend/guard"
	"github.com/MrEthical07/goAttend/internal/rate"
	"github.com/MrEthical07/goAttend/middleware"
	"github.com/MrEthical07/goAttend/role"
)

//go:embed templates/*.html
var templatesFS embed.FS

var (
	reviewers = role.Only(role.Admin, role.Manager, role.HR)
	admins    = role.Only(role.Admin)
	userAdmin = role.Only(role.Admin, role.HR)
)

var publicPages = []string{"login", "register", "forgot_password", "reset_password"}

// Options configures a Server. Zero values are valid.
type Options struct {
	Logger *slog.Logger
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// Throttle limits failed sign-ins. Nil disables throttling.
	Throttle *rate.Limiter
}

// Server renders the portal for one Engine.
type Server struct {
	engine   *goAttend.Engine
	logger   *slog.Logger
	pages    map[string]*template.Template
	metrics  http.Handler
	throttle *rate.Limiter
	notifier *notifier
}

func New(engine *goAttend.Engine, opts Options) (*Server, error) {
	if engine == nil {
		return nil, goAttend.ErrEngineNotReady
	}
	logger := opts.Logger
	if logger == nil {
		logger = engine.Logger()
	}
	logger = logger.With("component", "portal")

	pages := make(map[string]*template.Template)
	names := append([]string{}, publicPages...)
	for _, rt := range guard.Routes {
		if !rt.Public {
			names = append(names, templateName(rt.Path))
		}
	}
	for _, name := range names {
		tmpl, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		pages[name] = tmpl
	}

	return &Server{
		engine:   engine,
		logger:   logger,
		pages:    pages,
		metrics:  opts.Metrics,
		throttle: opts.Throttle,
		notifier: newNotifier(engine.Config().Poll.NotificationInterval, logger),
	}, nil
}

func templateName(path string) string {
	return strings.ReplaceAll(strings.TrimPrefix(path, "/"), "-", "_")
}

// Handler returns the full route table wrapped in security headers.
func (s *Server) Handler() http.Handler {
	cfg := s.engine.Config().Guard
	pub := middleware.Session(s.engine)
	api := func(set role.Set, h http.HandlerFunc) http.Handler {
		return middleware.RequireAPI(s.engine, set)(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, cfg.DefaultPath, http.StatusSeeOther)
	})
	mux.HandleFunc("GET /healthz", s.health)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	mux.Handle("GET /login", pub(http.HandlerFunc(s.loginPage)))
	mux.Handle("POST /login", pub(http.HandlerFunc(s.loginForm)))
	mux.Handle("POST /logout", pub(http.HandlerFunc(s.logoutForm)))
	mux.Handle("GET /register", pub(s.publicPage("register", "Register")))
	mux.Handle("POST /register", pub(http.HandlerFunc(s.registerForm)))
	mux.Handle("GET /forgot-password", pub(s.publicPage("forgot_password", "Forgot password")))
	mux.Handle("POST /forgot-password", pub(http.HandlerFunc(s.forgotPasswordForm)))
	mux.Handle("GET /reset-password", pub(s.publicPage("reset_password", "Reset password")))
	mux.Handle("POST /reset-password", pub(http.HandlerFunc(s.resetPasswordForm)))

	for _, rt := range guard.Routes {
		if rt.Public {
			continue
		}
		mux.Handle("GET "+rt.Path, middleware.Guard(s.engine, rt.Roles)(s.page(rt, loaders[rt.Path])))
	}

	mux.Handle("POST /actions/login", pub(http.HandlerFunc(s.apiLogin)))
	mux.Handle("POST /actions/logout", pub(http.HandlerFunc(s.apiLogout)))
	mux.Handle("GET /actions/session", pub(http.HandlerFunc(s.apiSession)))
	mux.Handle("POST /actions/attendance/checkin", api(role.Any, s.checkIn))
	mux.Handle("POST /actions/attendance/checkout", api(role.Any, s.checkOut))
	mux.Handle("GET /actions/attendance/logs/export", api(role.Any, s.exportLogs))
	mux.Handle("GET /actions/attendance/report/download", api(reviewers, s.downloadReport))
	mux.Handle("POST /actions/leaves", api(role.Any, s.applyLeave))
	mux.Handle("PUT /actions/leaves/{id}", api(reviewers, s.reviewLeave))
	mux.Handle("PUT /actions/profile", api(role.Any, s.updateProfile))
	mux.Handle("PUT /actions/users/{id}", api(userAdmin, s.updateUser))
	mux.Handle("DELETE /actions/users/{id}", api(admins, s.deleteUser))
	mux.Handle("POST /actions/registration-requests/{id}/approve", api(admins, s.approveRegistration))
	mux.Handle("POST /actions/registration-requests/{id}/reject", api(admins, s.rejectRegistration))
	mux.Handle("GET /actions/notifications", api(reviewers, s.listNotifications))
	mux.Handle("PUT /actions/notifications/{id}/read", api(reviewers, s.markNotificationRead))

	return middleware.Chain(mux, middleware.SecurityHeaders(middleware.DefaultCSP))
}

// ListenAndServe serves Handler on addr until ctx is cancelled, then shuts
// down gracefully and stops every notification poller.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	defer s.Close()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("portal listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Close stops every notification poller.
func (s *Server) Close() {
	s.notifier.closeAll()
}
