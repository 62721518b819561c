package portal

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	goAttend "github.com/MrEthical07/goAttend"
	"github.com/MrEthical07/goAttend/backend"
	"github.com/MrEthical07/goAttend/guard"
)

const pageSize = 10

// loader fetches the backend data a page renders.
type loader func(ctx context.Context, r *http.Request, state goAttend.State, api *backend.Client) (any, error)

var loaders = map[string]loader{
	"/dashboard":             loadDashboard,
	"/attendance":            loadAttendance,
	"/leaves":                loadLeaves,
	"/reports":               loadReports,
	"/admin":                 loadAdmin,
	"/users":                 loadUsers,
	"/registration-requests": loadRegistrations,
}

// page renders a guarded route. The guard has already put an
// authenticated Session with a permitted role in the request context.
func (s *Server) page(rt guard.Route, load loader) http.Handler {
	name := templateName(rt.Path)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		if sess == nil {
			http.Redirect(w, r, s.engine.Config().Guard.LoginPath, http.StatusSeeOther)
			return
		}
		state := sess.State()
		pd := pageData{
			Title: rt.Title,
			Path:  rt.Path,
			User:  state.User,
			Nav:   guard.Navigation(state),
			Flash: r.URL.Query().Get("notice"),
		}
		if reviewers.Allows(state.Role()) {
			pd.Notifications = s.notifier.ensure(sess).Items()
		}

		status := http.StatusOK
		if load != nil {
			data, err := load(r.Context(), r, state, backend.New(sess.API()))
			if err != nil {
				if sess.ForceLogout(r.Context(), err) {
					http.Redirect(w, r, s.engine.Config().Guard.LoginPath, http.StatusSeeOther)
					return
				}
				status, pd.Error = classify(err)
				s.logger.Warn("page data unavailable", "page", rt.Path, "status", status, "error", err)
			}
			pd.Data = data
		}
		s.render(w, status, name, pd)
	})
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

type dashboardData struct {
	Status *backend.AttendanceStatus
	Stats  *backend.AttendanceStats
	Org    *backend.DashboardStats
	Recent []backend.Attendance
}

func loadDashboard(ctx context.Context, _ *http.Request, state goAttend.State, api *backend.Client) (any, error) {
	var (
		d   dashboardData
		err error
	)
	if d.Status, err = api.AttendanceStatus(ctx); err != nil {
		return nil, err
	}
	if d.Stats, err = api.AttendanceStats(ctx); err != nil {
		return nil, err
	}
	if reviewers.Allows(state.Role()) {
		if d.Org, err = api.DashboardStats(ctx); err != nil {
			return nil, err
		}
		if d.Recent, err = api.RecentAttendance(ctx); err != nil {
			return nil, err
		}
	}
	return &d, nil
}

type attendanceData struct {
	Status *backend.AttendanceStatus
	Logs   *backend.AttendanceLogs
}

func loadAttendance(ctx context.Context, r *http.Request, _ goAttend.State, api *backend.Client) (any, error) {
	var (
		d   attendanceData
		err error
	)
	if d.Status, err = api.AttendanceStatus(ctx); err != nil {
		return nil, err
	}
	d.Logs, err = api.AttendanceLogs(ctx, backend.LogFilter{
		Page: backend.Page{Page: queryInt(r, "page"), Limit: pageSize},
		Date: r.URL.Query().Get("date"),
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type leavesData struct {
	Leaves    []backend.Leave
	Stats     *backend.LeaveStats
	CanReview bool
}

func loadLeaves(ctx context.Context, r *http.Request, state goAttend.State, api *backend.Client) (any, error) {
	d := leavesData{CanReview: reviewers.Allows(state.Role())}
	var err error
	if d.Leaves, err = api.Leaves(ctx, backend.LeaveFilter{Status: r.URL.Query().Get("status")}); err != nil {
		return nil, err
	}
	if d.Stats, err = api.LeaveStats(ctx); err != nil {
		return nil, err
	}
	return &d, nil
}

type reportsData struct {
	Filter backend.ReportFilter
	Rows   []backend.ReportRow
}

func reportFilter(r *http.Request) backend.ReportFilter {
	q := r.URL.Query()
	return backend.ReportFilter{
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		UserID:    q.Get("userId"),
	}
}

// Reports are fetched only once a date range is chosen.
func loadReports(ctx context.Context, r *http.Request, _ goAttend.State, api *backend.Client) (any, error) {
	d := reportsData{Filter: reportFilter(r)}
	if d.Filter.StartDate == "" || d.Filter.EndDate == "" {
		return &d, nil
	}
	rows, err := api.AttendanceReport(ctx, d.Filter)
	if err != nil {
		return nil, err
	}
	d.Rows = rows
	return &d, nil
}

type adminData struct {
	Org           *backend.DashboardStats
	Registrations *backend.RegistrationStats
}

func loadAdmin(ctx context.Context, _ *http.Request, _ goAttend.State, api *backend.Client) (any, error) {
	var (
		d   adminData
		err error
	)
	if d.Org, err = api.DashboardStats(ctx); err != nil {
		return nil, err
	}
	if d.Registrations, err = api.RegistrationStats(ctx); err != nil {
		return nil, err
	}
	return &d, nil
}

type usersData struct {
	Filter      backend.UserFilter
	List        *backend.UserList
	Departments []string
}

func loadUsers(ctx context.Context, r *http.Request, _ goAttend.State, api *backend.Client) (any, error) {
	q := r.URL.Query()
	d := usersData{Filter: backend.UserFilter{
		Page:       backend.Page{Page: queryInt(r, "page"), Limit: pageSize},
		Search:     strings.TrimSpace(q.Get("search")),
		Department: q.Get("department"),
	}}
	var err error
	if d.List, err = api.Users(ctx, d.Filter); err != nil {
		return nil, err
	}
	if d.Departments, err = api.Departments(ctx); err != nil {
		return nil, err
	}
	return &d, nil
}

type registrationsData struct {
	Status   string
	Requests []backend.RegistrationRequest
	Stats    *backend.RegistrationStats
}

func loadRegistrations(ctx context.Context, r *http.Request, _ goAttend.State, api *backend.Client) (any, error) {
	d := registrationsData{Status: r.URL.Query().Get("status")}
	if d.Status == "" {
		d.Status = "pending"
	}
	var err error
	if d.Requests, err = api.RegistrationRequests(ctx, d.Status); err != nil {
		return nil, err
	}
	if d.Stats, err = api.RegistrationStats(ctx); err != nil {
		return nil, err
	}
	return &d, nil
}
