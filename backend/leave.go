package backend

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Leave request statuses.
const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

// ErrInvalidLeaveStatus is returned by ReviewLeave for anything other than
// approved or rejected.
var ErrInvalidLeaveStatus = errors.New("backend: leave status must be approved or rejected")

// LeaveApplication is the body of POST /leave/request.
type LeaveApplication struct {
	LeaveType string `json:"leaveType"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason"`
}

// Leave is a submitted leave request.
type Leave struct {
	ID         string    `json:"_id"`
	LeaveType  string    `json:"leaveType"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Days       float64   `json:"days"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	Comments   string    `json:"comments,omitempty"`
	User       *UserRef  `json:"user,omitempty"`
	ReviewedBy *UserRef  `json:"reviewedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

type leaveList struct {
	Leaves []Leave `json:"leaves"`
}

type leaveEnvelope struct {
	Message string `json:"message"`
	Leave   *Leave `json:"leave"`
}

// LeaveStats counts leave requests by status.
type LeaveStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// LeaveFilter narrows the leave listing. Zero fields are omitted.
type LeaveFilter struct {
	Status string
	Limit  int
}

func (c *Client) RequestLeave(ctx context.Context, app LeaveApplication) (*Leave, error) {
	var out leaveEnvelope
	if err := c.api.Post(ctx, "/leave/request", app, &out); err != nil {
		return nil, err
	}
	return out.Leave, nil
}

// Leaves lists leave requests. Employees see their own; reviewers see all.
func (c *Client) Leaves(ctx context.Context, f LeaveFilter) ([]Leave, error) {
	q := url.Values{}
	setIf(q, "status", f.Status)
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	var out leaveList
	if err := c.get(ctx, "/leave/requests", q, &out); err != nil {
		return nil, err
	}
	return out.Leaves, nil
}

// ReviewLeave approves or rejects a pending request.
func (c *Client) ReviewLeave(ctx context.Context, id, status, comments string) (*Leave, error) {
	if status != LeaveApproved && status != LeaveRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLeaveStatus, status)
	}
	path, err := pathID("/leave/requests", id, "")
	if err != nil {
		return nil, err
	}
	body := map[string]string{"status": status, "comments": comments}
	var out leaveEnvelope
	if err := c.api.Put(ctx, path, body, &out); err != nil {
		return nil, err
	}
	return out.Leave, nil
}

func (c *Client) LeaveStats(ctx context.Context) (*LeaveStats, error) {
	var out LeaveStats
	if err := c.get(ctx, "/leave/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
