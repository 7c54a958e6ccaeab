// Package client is a Go client for the habits API together with an
// optimistic local cache of the caller's habits.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arnold/productivityhub-api/internal/models"
)

const defaultTimeout = 10 * time.Second

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// APIError is a non-2xx response. It matches ErrNotFound and ErrConflict
// with errors.Is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}

type Client struct {
	baseURL    string
	token      string
	timezone   string
	httpClient *http.Client
}

type Option func(*Client)

// WithToken authenticates every request with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimezone sends an IANA zone name so the server counts calendar days
// the way the caller does.
func WithTimezone(name string) Option {
	return func(c *Client) { c.timezone = name }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListHabits returns the owner's habits. With a token the server ignores owner.
func (c *Client) ListHabits(ctx context.Context, owner string) ([]models.Habit, error) {
	path := "/api/habits"
	if owner != "" {
		path += "?userId=" + url.QueryEscape(owner)
	}
	var habits []models.Habit
	err := c.do(ctx, http.MethodGet, path, nil, &habits)
	return habits, err
}

func (c *Client) GetHabit(ctx context.Context, id uuid.UUID) (models.Habit, error) {
	var h models.Habit
	err := c.do(ctx, http.MethodGet, "/api/habits/"+id.String(), nil, &h)
	return h, err
}

func (c *Client) CreateHabit(ctx context.Context, req models.CreateHabitRequest) (models.Habit, error) {
	var h models.Habit
	err := c.do(ctx, http.MethodPost, "/api/habits", req, &h)
	return h, err
}

func (c *Client) UpdateHabit(ctx context.Context, id uuid.UUID, req models.UpdateHabitRequest) (models.Habit, error) {
	var h models.Habit
	err := c.do(ctx, http.MethodPut, "/api/habits/"+id.String(), req, &h)
	return h, err
}

func (c *Client) ToggleHabit(ctx context.Context, id uuid.UUID) (models.Habit, error) {
	path := "/api/habits/" + id.String() + "/toggle"
	if c.timezone != "" {
		path += "?tz=" + url.QueryEscape(c.timezone)
	}
	var h models.Habit
	err := c.do(ctx, http.MethodPut, path, nil, &h)
	return h, err
}

func (c *Client) DeleteHabit(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/habits/"+id.String(), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
