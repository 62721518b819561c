package backend

import (
	"context"
	"net/url"
	"time"
)

// RegistrationRequest is a pending self-registration awaiting an admin.
type RegistrationRequest struct {
	ID         string    `json:"_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Department string    `json:"department,omitempty"`
	Position   string    `json:"position,omitempty"`
	Status     string    `json:"status"`
	Reason     string    `json:"rejectionReason,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type registrationList struct {
	Requests []RegistrationRequest `json:"requests"`
}

// RegistrationStats counts requests by status.
type RegistrationStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// RegistrationRequests lists requests, optionally filtered by status.
// "all" and "" return every request.
func (c *Client) RegistrationRequests(ctx context.Context, status string) ([]RegistrationRequest, error) {
	q := url.Values{}
	if status != "all" {
		setIf(q, "status", status)
	}
	var out registrationList
	if err := c.get(ctx, "/auth/registration-requests", q, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

func (c *Client) RegistrationStats(ctx context.Context) (*RegistrationStats, error) {
	var out RegistrationStats
	if err := c.get(ctx, "/auth/registration-stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ApproveRegistration(ctx context.Context, id string) (*Message, error) {
	path, err := pathID("/auth/approve-registration", id, "")
	if err != nil {
		return nil, err
	}
	var out Message
	if err := c.api.Post(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RejectRegistration(ctx context.Context, id, reason string) (*Message, error) {
	path, err := pathID("/auth/reject-registration", id, "")
	if err != nil {
		return nil, err
	}
	var out Message
	if err := c.api.Post(ctx, path, map[string]string{"reason": reason}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
