package backend

import (
	"context"
	"time"
)

// Notification is an unread item in the navbar.
type Notification struct {
	ID        string    `json:"_id"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifications returns the unread notifications of the bound user.
func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var out []Notification
	if err := c.get(ctx, "/auth/notifications", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	path, err := pathID("/auth/notifications", id, "/read")
	if err != nil {
		return err
	}
	return c.api.Put(ctx, path, nil, nil)
}
