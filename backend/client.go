package backend

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/MrEthical07/goAttend/apiclient"
)

// ErrEmptyID is returned before any request when a path id is blank.
var ErrEmptyID = errors.New("backend: empty id")

// Client wraps an apiclient.Client with typed endpoints.
type Client struct {
	api *apiclient.Client
}

// New returns a Client over api. Bind api to a session first
// (Session.API) for endpoints that require a credential.
func New(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// Page selects one page of a listing. Zero fields are omitted.
type Page struct {
	Page  int
	Limit int
}

func (p Page) apply(q url.Values) {
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
}

// Pagination is the paging envelope shared by list endpoints.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	Total       int `json:"total"`
}

// UserRef is a populated user inside another record.
type UserRef struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	EmployeeID string `json:"employeeId,omitempty"`
	Department string `json:"department,omitempty"`
}

// Message is the acknowledgement most mutations return.
type Message struct {
	Message string `json:"message"`
}

func pathID(prefix, id, suffix string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrEmptyID
	}
	return prefix + "/" + url.PathEscape(id) + suffix, nil
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	return c.api.Get(ctx, path, q, out)
}
