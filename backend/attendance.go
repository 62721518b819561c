package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/MrEthical07/goAttend/apiclient"
)

// Location is an optional geotag on check-in and check-out.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type punchRequest struct {
	Location *Location `json:"location,omitempty"`
}

// Attendance is one day of one user's attendance.
type Attendance struct {
	ID           string     `json:"_id,omitempty"`
	Date         time.Time  `json:"date,omitempty"`
	CheckIn      *time.Time `json:"checkIn,omitempty"`
	CheckOut     *time.Time `json:"checkOut,omitempty"`
	WorkingHours float64    `json:"workingHours"`
	IsAbsent     bool       `json:"isAbsent,omitempty"`
	IsLeave      bool       `json:"isLeave,omitempty"`
	LeaveType    string     `json:"leaveType,omitempty"`
	User         *UserRef   `json:"user,omitempty"`
}

// PunchResponse is returned by check-in and check-out.
type PunchResponse struct {
	Message    string      `json:"message"`
	Attendance *Attendance `json:"attendance,omitempty"`
}

// AttendanceStatus is today's attendance of the bound user.
type AttendanceStatus struct {
	HasCheckedIn  bool        `json:"hasCheckedIn"`
	HasCheckedOut bool        `json:"hasCheckedOut"`
	Attendance    *Attendance `json:"attendance"`
	CurrentDate   string      `json:"currentDate"`
}

// AttendanceStats summarizes the bound user's month.
type AttendanceStats struct {
	TotalDays    int     `json:"totalDays"`
	PresentDays  int     `json:"presentDays"`
	TotalHours   float64 `json:"totalHours"`
	AverageHours float64 `json:"averageHours"`
}

// LogFilter narrows the attendance log listing. Date is YYYY-MM-DD.
type LogFilter struct {
	Page
	Date string
}

// AttendanceLogs is one page of the attendance log.
type AttendanceLogs struct {
	Logs []Attendance `json:"logs"`
	Pagination
}

// ReportFilter bounds an attendance report. Dates are YYYY-MM-DD.
type ReportFilter struct {
	StartDate string
	EndDate   string
	UserID    string
}

func (f ReportFilter) query() url.Values {
	q := url.Values{}
	setIf(q, "startDate", f.StartDate)
	setIf(q, "endDate", f.EndDate)
	setIf(q, "userId", f.UserID)
	return q
}

// ReportRow is one user's line in an attendance report.
type ReportRow struct {
	User         UserRef `json:"user"`
	PresentDays  int     `json:"presentDays"`
	AbsentDays   int     `json:"absentDays"`
	LeaveDays    int     `json:"leaveDays"`
	TotalHours   float64 `json:"totalHours"`
	AverageHours float64 `json:"averageHours"`
}

type reportEnvelope struct {
	Report []ReportRow `json:"report"`
}

func (c *Client) CheckIn(ctx context.Context, loc *Location) (*PunchResponse, error) {
	return c.punch(ctx, "/attendance/checkin", loc)
}

func (c *Client) CheckOut(ctx context.Context, loc *Location) (*PunchResponse, error) {
	return c.punch(ctx, "/attendance/checkout", loc)
}

func (c *Client) punch(ctx context.Context, path string, loc *Location) (*PunchResponse, error) {
	var out PunchResponse
	if err := c.api.Post(ctx, path, punchRequest{Location: loc}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AttendanceStatus(ctx context.Context) (*AttendanceStatus, error) {
	var out AttendanceStatus
	if err := c.get(ctx, "/attendance/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AttendanceStats(ctx context.Context) (*AttendanceStats, error) {
	var out AttendanceStats
	if err := c.get(ctx, "/attendance/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AttendanceLogs lists attendance records. Employees see their own; other
// roles see everyone's.
func (c *Client) AttendanceLogs(ctx context.Context, f LogFilter) (*AttendanceLogs, error) {
	q := url.Values{}
	f.Page.apply(q)
	setIf(q, "date", f.Date)

	var out AttendanceLogs
	if err := c.get(ctx, "/attendance/logs", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AttendanceReport(ctx context.Context, f ReportFilter) ([]ReportRow, error) {
	var out reportEnvelope
	if err := c.get(ctx, "/attendance/report", f.query(), &out); err != nil {
		return nil, err
	}
	return out.Report, nil
}

// DownloadReport fetches the spreadsheet rendering of a report.
func (c *Client) DownloadReport(ctx context.Context, f ReportFilter) (*apiclient.File, error) {
	return c.api.Download(ctx, &apiclient.Request{
		Method: http.MethodGet,
		Path:   "/attendance/download-report",
		Query:  f.query(),
	})
}
