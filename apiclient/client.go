package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 64 << 20
)

// TokenSource yields the current bearer credential, if any.
type TokenSource interface {
	Get(ctx context.Context) (string, bool)
}

// RequestHook mutates an outgoing request before it is sent. Returning an
// error aborts the request.
type RequestHook func(ctx context.Context, req *http.Request) error

// Validator is implemented by response schemas that check required fields
// after decoding.
type Validator interface {
	Validate() error
}

// Request describes one backend call. Path is relative to the base URL and
// may carry its own query string; Query is merged on top.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// File is a binary download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Client is the backend transport. The zero value is not usable; build with New.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	hooks      []RequestHook
	tokens     TokenSource
	maxBody    int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHook appends a request hook. Hooks run after the bearer hook, in order.
func WithHook(h RequestHook) Option {
	return func(c *Client) {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
}

// WithMaxBody caps how much of a response body is read. A larger body fails
// with ErrResponseTooLarge rather than coming back cut short.
func WithMaxBody(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// New builds the process-wide client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxBody:    maxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithTokens returns a view of c bound to src. The view shares base URL,
// HTTP client and hooks with c.
func (c *Client) WithTokens(src TokenSource) *Client {
	view := *c
	view.tokens = src
	return &view
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) attachBearer(ctx context.Context, req *http.Request) {
	if c.tokens == nil {
		return
	}
	token, ok := c.tokens.Get(ctx)
	if !ok || token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

func (c *Client) resolve(path string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("path %q must be relative to the base url", path)
	}

	// Join the escaped forms so an id escaped by the caller, such as one
	// holding %2F, reaches the backend as a single segment.
	u := *c.baseURL
	raw := strings.TrimRight(c.baseURL.EscapedPath(), "/") + "/" + strings.TrimLeft(ref.EscapedPath(), "/")
	if u.Path, err = url.PathUnescape(raw); err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	u.RawPath = raw

	q := ref.Query()
	for k, vs := range query {
		q.Del(k)
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return &u, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, r *Request) (*http.Request, error) {
	if r == nil {
		return nil, fmt.Errorf("nil request")
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	u, err := c.resolve(r.Path, r.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.attachBearer(ctx, req)
	for _, hook := range c.hooks {
		if err := hook(ctx, req); err != nil {
			return nil, fmt.Errorf("request hook: %w", err)
		}
	}
	return req, nil
}

// Do sends r and returns the read response. Non-2xx statuses are returned as
// *StatusError; transport failures are wrapped.
func (c *Client) Do(ctx context.Context, r *Request) (*Response, error) {
	req, err := c.newHTTPRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(data)) > c.maxBody {
		return nil, fmt.Errorf("%s %s: %w (limit %d bytes)", req.Method, r.Path, ErrResponseTooLarge, c.maxBody)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Method:     req.Method,
			Path:       r.Path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
			Body:       data,
		}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// errorResponse is the backend's JSON error envelope.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func errorMessage(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return ""
	}
	if er.Message != "" {
		return er.Message
	}
	return er.Error
}

// DoJSON sends r and decodes the body into out. out may be nil.
func (c *Client) DoJSON(ctx context.Context, r *Request, out any) error {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	return Decode(r.Path, resp.Body, out)
}

// Decode unmarshals body into out and runs Validate when out implements
// Validator. Failures are *SchemaError.
func Decode(path string, body []byte, out any) error {
	if out == nil {
		return nil
	}
	target := reflect.TypeOf(out).String()
	if len(bytes.TrimSpace(body)) == 0 {
		return &SchemaError{Path: path, Target: target, Err: io.ErrUnexpectedEOF}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &SchemaError{Path: path, Target: target, Err: err}
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return &SchemaError{Path: path, Target: target, Err: err}
		}
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.DoJSON(ctx, &Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, &Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, &Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.DoJSON(ctx, &Request{Method: http.MethodDelete, Path: path}, out)
}

// Download sends r and returns the raw body with its file metadata.
func (c *Client) Download(ctx context.Context, r *Request) (*File, error) {
	if r != nil && (r.Header == nil || r.Header.Get("Accept") == "") {
		cp := *r
		cp.Header = r.Header.Clone()
		if cp.Header == nil {
			cp.Header = http.Header{}
		}
		cp.Header.Set("Accept", "*/*")
		r = &cp
	}

	resp, err := c.Do(ctx, r)
	if err != nil {
		return nil, err
	}

	f := &File{
		ContentType: resp.Header.Get("Content-Type"),
		Data:        resp.Body,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		f.Name = params["filename"]
	}
	if f.ContentType == "" {
		f.ContentType = "application/octet-stream"
	}
	return f, nil
}
