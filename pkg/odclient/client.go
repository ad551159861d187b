// Package odclient is a typed HTTP client for the OD API.
package odclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 15 * time.Second

// Status is the review state of a request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is an OD request as returned by the API.
type Request struct {
	ID           string     `json:"id"`
	StudentEmail string     `json:"student_email"`
	Name         string     `json:"name"`
	RollNo       string     `json:"roll_no"`
	DeptName     string     `json:"dept_name"`
	Section      string     `json:"section"`
	Reason       string     `json:"reason"`
	Venue        string     `json:"venue"`
	Description  string     `json:"description"`
	Status       Status     `json:"status"`
	AppliedAt    time.Time  `json:"applied_at"`
	ReviewedBy   *string    `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewRequest is the create payload.
type NewRequest struct {
	StudentEmail string    `json:"student_email"`
	Name         string    `json:"name"`
	RollNo       string    `json:"roll_no"`
	DeptName     string    `json:"dept_name"`
	Section      string    `json:"section"`
	Reason       string    `json:"reason"`
	Venue        string    `json:"venue"`
	Description  string    `json:"description"`
	AppliedAt    time.Time `json:"applied_at"`
}

// ListOptions narrows ListAll. Zero values are omitted from the query.
type ListOptions struct {
	Status string
	Search string
	Sort   string
	Page   int
	Limit  int
}

// Stats counts requests per status.
type Stats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// User identifies the signed-in account.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// Login is the result of a successful sign-in.
type Login struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         User      `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// Client talks to the OD API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// New returns a client for the API rooted at baseURL (including any prefix).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// StudentLogin signs a student in by college email and stores the token.
func (c *Client) StudentLogin(ctx context.Context, email string) (*Login, error) {
	var out Login
	if err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"email": email}, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	return &out, nil
}

// FacultyLogin signs a reviewer in and stores the token.
func (c *Client) FacultyLogin(ctx context.Context, email, password string) (*Login, error) {
	var out Login
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/od/auth/faculty-login", body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	return &out, nil
}

// CreateRequest submits a new OD request.
func (c *Client) CreateRequest(ctx context.Context, req NewRequest) (*Request, error) {
	if req.AppliedAt.IsZero() {
		req.AppliedAt = time.Now()
	}
	req.AppliedAt = req.AppliedAt.UTC()
	var out Request
	if err := c.do(ctx, http.MethodPost, "/od/request", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByStudent returns one student's requests, newest first.
func (c *Client) ListByStudent(ctx context.Context, email string) ([]Request, error) {
	var out []Request
	if err := c.do(ctx, http.MethodGet, "/od/student/"+url.PathEscape(email), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAll returns every request visible to a reviewer.
func (c *Client) ListAll(ctx context.Context, opts ListOptions) ([]Request, error) {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	path := "/od/all"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []Request
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one request by id.
func (c *Client) Get(ctx context.Context, id string) (*Request, error) {
	var out Request
	if err := c.do(ctx, http.MethodGet, "/od/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus approves or rejects a request and returns the stored record.
func (c *Client) UpdateStatus(ctx context.Context, id string, status Status) (*Request, error) {
	var out Request
	body := map[string]Status{"status": status}
	if err := c.do(ctx, http.MethodPatch, "/od/status/"+url.PathEscape(id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats returns counts per status.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.do(ctx, http.MethodGet, "/od/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
