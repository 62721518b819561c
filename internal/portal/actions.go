package portal

import (
	"context"
	"net/http"
	"strconv"

	goAttend "github.com/MrEthical07/goAttend"
	"github.com/MrEthical07/goAttend/backend"
)

func (s *Server) checkIn(w http.ResponseWriter, r *http.Request) {
	s.punch(w, r, (*backend.Client).CheckIn)
}

func (s *Server) checkOut(w http.ResponseWriter, r *http.Request) {
	s.punch(w, r, (*backend.Client).CheckOut)
}

type punchFunc func(*backend.Client, context.Context, *backend.Location) (*backend.PunchResponse, error)

func (s *Server) punch(w http.ResponseWriter, r *http.Request, fn punchFunc) {
	sess := sessionFrom(r)
	var body struct {
		Location *backend.Location `json:"location"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	resp, err := fn(backend.New(sess.API()), r.Context(), body.Location)
	if err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) downloadReport(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	f, err := backend.New(sess.API()).DownloadReport(r.Context(), reportFilter(r))
	if err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	name := f.Name
	if name == "" {
		name = "attendance-report.xlsx"
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}

func (s *Server) applyLeave(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var app backend.LeaveApplication
	if err := decodeJSON(r, &app); err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	if app.LeaveType == "" || app.StartDate == "" || app.EndDate == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "leaveType, startDate and endDate are required"})
		return
	}
	leave, err := backend.New(sess.API()).RequestLeave(r.Context(), app)
	if err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusCreated, leave)
}

func (s *Server) reviewLeave(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var body struct {
		Status   string `json:"status"`
		Comments string `json:"comments"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	leave, err := backend.New(sess.API()).ReviewLeave(r.Context(), r.PathValue("id"), body.Status, body.Comments)
	if err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, leave)
}

// updateProfile edits the caller's own record and refreshes the session
// profile from the backend's answer.
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	me := sess.User()
	if me == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	s.editUser(w, r, sess, me.ID, true)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	s.editUser(w, r, sess, r.PathValue("id"), false)
}

func (s *Server) editUser(w http.ResponseWriter, r *http.Request, sess *goAttend.Session, id string, self bool) {
	var upd backend.UserUpdate
	if err := decodeJSON(r, &upd); err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	// Role and status changes are administrative.
	if self {
		upd.Role = nil
		upd.IsActive = nil
	}
	user, err := backend.New(sess.API()).UpdateUser(r.Context(), id, upd)
	if err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	if cur := sess.User(); cur != nil && cur.ID == user.ID {
		if err := sess.UpdateUser(r.Context(), user); err != nil {
			s.logger.Warn("session profile not refreshed", "session_id", sess.ID(), "error", err)
		}
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if me := sess.User(); me != nil && me.ID == r.PathValue("id") {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "cannot delete your own account"})
		return
	}
	if err := backend.New(sess.API()).DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) approveRegistration(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	msg, err := backend.New(sess.API()).ApproveRegistration(r.Context(), r.PathValue("id"))
	if err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) rejectRegistration(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	msg, err := backend.New(sess.API()).RejectRegistration(r.Context(), r.PathValue("id"), body.Reason)
	if err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// listNotifications serves the poller's latest snapshot, starting the
// poller if this session has none.
func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	items := s.notifier.ensure(sessionFrom(r)).Items()
	if items == nil {
		items = []backend.Notification{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id := r.PathValue("id")
	if err := backend.New(sess.API()).MarkNotificationRead(r.Context(), id); err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	s.notifier.markRead(sess.ID(), id)
	w.WriteHeader(http.StatusNoContent)
}
