package backend

import (
	"context"
	"errors"
	"net/url"

	goAttend "github.com/MrEthical07/goAttend"
)

// UserFilter narrows the user directory.
type UserFilter struct {
	Page
	Search     string
	Department string
}

// UserList is one page of the user directory.
type UserList struct {
	Users []goAttend.User `json:"users"`
	Pagination
}

// UserUpdate is a partial profile edit. Nil fields are left unchanged.
type UserUpdate struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Role       *string `json:"role,omitempty"`
	Department *string `json:"department,omitempty"`
	Position   *string `json:"position,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Address    *string `json:"address,omitempty"`
	IsActive   *bool   `json:"isActive,omitempty"`
}

type userEnvelope struct {
	Message string         `json:"message"`
	User    *goAttend.User `json:"user"`
}

func (e *userEnvelope) Validate() error {
	if e.User == nil {
		return errors.New("missing user")
	}
	return e.User.Validate()
}

// DepartmentStat is one department's line on the dashboard.
type DepartmentStat struct {
	Department string `json:"_id"`
	Total      int    `json:"total"`
	Present    int    `json:"present"`
}

// DashboardStats is the organisation-wide dashboard summary.
type DashboardStats struct {
	TotalEmployees  int              `json:"totalEmployees"`
	PresentToday    int              `json:"presentToday"`
	AbsentToday     int              `json:"absentToday"`
	AttendanceRate  float64          `json:"attendanceRate"`
	DepartmentStats []DepartmentStat `json:"departmentStats"`
}

func (c *Client) Users(ctx context.Context, f UserFilter) (*UserList, error) {
	q := url.Values{}
	f.Page.apply(q)
	setIf(q, "search", f.Search)
	setIf(q, "department", f.Department)

	var out UserList
	if err := c.get(ctx, "/users", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Departments(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.get(ctx, "/users/departments", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var out DashboardStats
	if err := c.get(ctx, "/users/dashboard-stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RecentAttendance(ctx context.Context) ([]Attendance, error) {
	var out []Attendance
	if err := c.get(ctx, "/users/recent-attendance", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUser edits a user and returns the stored profile. When id is the
// caller's own id, feed the result to Session.UpdateUser.
func (c *Client) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*goAttend.User, error) {
	path, err := pathID("/users", id, "")
	if err != nil {
		return nil, err
	}
	var out userEnvelope
	if err := c.api.Put(ctx, path, upd, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	path, err := pathID("/users", id, "")
	if err != nil {
		return err
	}
	return c.api.Delete(ctx, path, nil)
}
