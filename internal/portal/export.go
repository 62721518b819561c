package portal

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/goAttend/backend"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet    = "Attendance"
	exportMaxPages = 50
	exportPageSize = 100
	xlsxType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeader = []any{"Date", "Name", "Check in", "Check out", "Working hours", "Status"}

// exportLogs writes the caller's attendance log, optionally narrowed to one
// date, as a single-sheet workbook.
func (s *Server) exportLogs(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	logs, err := collectLogs(r.Context(), backend.New(sess.API()), r.URL.Query().Get("date"), exportMaxPages)
	if err != nil {
		s.actionError(w, r, sess, err)
		return
	}

	data, err := logsWorkbook(logs)
	if err != nil {
		s.logger.Error("build attendance workbook", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "could not build workbook"})
		return
	}

	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote("attendance-log.xlsx"))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// collectLogs walks the paginated log. A log with more than maxPages pages
// fails with errExportTooLarge instead of exporting a partial sheet.
func collectLogs(ctx context.Context, api *backend.Client, date string, maxPages int) ([]backend.Attendance, error) {
	var out []backend.Attendance
	for page := 1; ; page++ {
		resp, err := api.AttendanceLogs(ctx, backend.LogFilter{
			Page: backend.Page{Page: page, Limit: exportPageSize},
			Date: date,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Logs...)
		if page >= resp.TotalPages || len(resp.Logs) == 0 {
			return out, nil
		}
		if page >= maxPages {
			return nil, fmt.Errorf("%w: %d pages, limit %d", errExportTooLarge, resp.TotalPages, maxPages)
		}
	}
}

func logsWorkbook(logs []backend.Attendance) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}
	for i, a := range logs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			formatDay(a.Date),
			userName(a.User),
			formatClock(a.CheckIn),
			formatClock(a.CheckOut),
			a.WorkingHours,
			attendanceStatus(a),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}

func formatClock(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Local().Format("15:04")
}

func userName(u *backend.UserRef) string {
	if u == nil {
		return ""
	}
	return u.Name
}

func attendanceStatus(a backend.Attendance) string {
	switch {
	case a.IsLeave && a.LeaveType != "":
		return "Leave (" + a.LeaveType + ")"
	case a.IsLeave:
		return "Leave"
	case a.IsAbsent:
		return "Absent"
	case a.CheckIn != nil:
		return "Present"
	default:
		return ""
	}
}
