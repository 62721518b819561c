package backend

import (
	"context"
	"errors"
	"strings"

	goAttend "github.com/MrEthical07/goAttend"
)

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful POST /auth/login.
type LoginResponse struct {
	Token string         `json:"token"`
	User  *goAttend.User `json:"user"`
}

func (r *LoginResponse) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return errors.New("missing token")
	}
	return r.User.Validate()
}

// Registration is a self-service or admin-created account request.
type Registration struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password,omitempty"`
	Role       string `json:"role,omitempty"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
	Phone      string `json:"phone,omitempty"`
	EmployeeID string `json:"employeeId,omitempty"`
	Address    string `json:"address,omitempty"`
}

// Login exchanges credentials for a token and profile. It sends no bearer
// credential requirement; the backend decides.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.api.Post(ctx, "/auth/login", creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile fetches the profile of the bound credential.
func (c *Client) Profile(ctx context.Context) (*goAttend.User, error) {
	var out goAttend.User
	if err := c.get(ctx, "/auth/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, reg Registration) (*Message, error) {
	var out Message
	if err := c.api.Post(ctx, "/auth/register", reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (*Message, error) {
	var out Message
	if err := c.api.Post(ctx, "/auth/forgot-password", map[string]string{"email": email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (*Message, error) {
	body := map[string]string{"token": token, "newPassword": newPassword}
	var out Message
	if err := c.api.Post(ctx, "/auth/reset-password", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
