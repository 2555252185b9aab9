package api

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

	"github.com/google/uuid"

	"github.com/five82/tasksync/internal/query"
)

// TaskLister is the read side the sync engine depends on.
type TaskLister interface {
	ListTasks(ctx context.Context, c query.Criteria, o query.SortOrder) ([]Task, error)
}

// TaskMutator covers the write operations. Every successful call can change
// any cached result set.
type TaskMutator interface {
	CreateTask(ctx context.Context, in TaskInput) (Task, error)
	UpdateTask(ctx context.Context, id int64, in TaskInput) (Task, error)
	DeleteTask(ctx context.Context, id int64) error
	ToggleTask(ctx context.Context, id int64) (Task, error)
	BatchComplete(ctx context.Context, ids []int64, completed bool) error
}

// Ensure Client implements both interfaces at compile time.
var (
	_ TaskLister  = (*Client)(nil)
	_ TaskMutator = (*Client)(nil)
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Client talks to the task HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string

	mu    sync.RWMutex
	token string
}

const (
	defaultAPIURL    = "127.0.0.1:8080"
	defaultUserAgent = "tasksync/0.1"
	requestTimeout   = 5 * time.Second
	maxErrorBody     = 4 << 10
)

// NewClient builds a Client for apiURL (host:port or full URL).
func NewClient(apiURL, token string) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		token:     strings.TrimSpace(token),
	}, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

// ClearToken drops the bearer token; later requests go out unauthenticated.
func (c *Client) ClearToken() {
	c.SetToken("")
}

// HasToken reports whether a bearer token is configured.
func (c *Client) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// Ping checks that the API answers at all.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.do(ctx, http.MethodGet, &url.URL{Path: "/api/health"}, nil, nil)
}

// ListTasks fetches the rows matching a selection. The query string is the
// selection's signature encoding.
func (c *Client) ListTasks(ctx context.Context, crit query.Criteria, order query.SortOrder) ([]Task, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: "/api/tasks", RawQuery: query.Values(crit, order).Encode()}
	var payload TaskListResponse
	if err := c.do(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	items := payload.Items
	SortTasks(items, order)
	return items, nil
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, in TaskInput) (Task, error) {
	if c == nil {
		return Task{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(in.Title) == "" {
		return Task{}, fmt.Errorf("title required")
	}
	var out Task
	if err := c.do(ctx, http.MethodPost, &url.URL{Path: "/api/tasks"}, in, &out); err != nil {
		return Task{}, err
	}
	return out, nil
}

// UpdateTask patches a task.
func (c *Client) UpdateTask(ctx context.Context, id int64, in TaskInput) (Task, error) {
	if c == nil {
		return Task{}, fmt.Errorf("client is nil")
	}
	if id <= 0 {
		return Task{}, fmt.Errorf("task id required")
	}
	var out Task
	if err := c.do(ctx, http.MethodPatch, taskPath(id, ""), in, &out); err != nil {
		return Task{}, err
	}
	return out, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if id <= 0 {
		return fmt.Errorf("task id required")
	}
	return c.do(ctx, http.MethodDelete, taskPath(id, ""), nil, nil)
}

// ToggleTask flips a task's completion flag.
func (c *Client) ToggleTask(ctx context.Context, id int64) (Task, error) {
	if c == nil {
		return Task{}, fmt.Errorf("client is nil")
	}
	if id <= 0 {
		return Task{}, fmt.Errorf("task id required")
	}
	var out Task
	if err := c.do(ctx, http.MethodPost, taskPath(id, "toggle"), nil, &out); err != nil {
		return Task{}, err
	}
	return out, nil
}

// BatchComplete sets the completion flag on several tasks at once.
func (c *Client) BatchComplete(ctx context.Context, ids []int64, completed bool) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if len(ids) == 0 {
		return nil
	}
	body := batchRequest{IDs: ids, Completed: completed}
	return c.do(ctx, http.MethodPost, &url.URL{Path: "/api/tasks/batch"}, body, nil)
}

func taskPath(id int64, suffix string) *url.URL {
	p := "/api/tasks/" + strconv.FormatInt(id, 10)
	if suffix != "" {
		p += "/" + suffix
	}
	return &url.URL{Path: p}
}

func (c *Client) do(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &StatusError{
			Method:     method,
			Path:       rel.Path,
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
