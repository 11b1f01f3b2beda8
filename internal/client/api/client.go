// Package api is the HTTP client of the job tracker server. Server error
// statuses are mapped back onto the sentinel errors of package models and
// network failures wrap models.ErrTransient.
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

	"github.com/atinyakov/JobTracker/internal/models"
)

// StatusError is returned for error statuses without a matching sentinel.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error: %d %s", e.Code, e.Message)
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Client talks to the server on behalf of one user.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// New returns a client for baseURL. A nil hc uses http.DefaultClient.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// SetToken sets the bearer token sent with every request.
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

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", models.ErrTransient, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		msg = body.Message
	}

	var kind error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		kind = models.ErrValidation
	case http.StatusUnauthorized:
		kind = models.ErrInvalidCredentials
	case http.StatusForbidden:
		kind = models.ErrForbidden
	case http.StatusNotFound:
		kind = models.ErrNotFound
	case http.StatusConflict:
		kind = models.ErrUserExists
	default:
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if msg == "" {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, msg)
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	var u models.User
	in := map[string]string{"username": username, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var res LoginResult
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

// ListByOwner fetches every application of userID, newest first.
func (c *Client) ListByOwner(ctx context.Context, userID int64) ([]models.Application, error) {
	var apps []models.Application
	path := "/applications?" + url.Values{"userId": {strconv.FormatInt(userID, 10)}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &apps); err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []models.Application{}
	}
	return apps, nil
}

// UpdateFields sends a partial update and returns the persisted record.
func (c *Client) UpdateFields(ctx context.Context, id int64, patch models.ApplicationPatch) (*models.Application, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: no fields to update", models.ErrValidation)
	}
	var app models.Application
	if err := c.do(ctx, http.MethodPut, "/applications/"+strconv.FormatInt(id, 10), patch, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// Create adds an application for the logged-in user.
func (c *Client) Create(ctx context.Context, n models.NewApplication) (*models.Application, error) {
	var app models.Application
	if err := c.do(ctx, http.MethodPost, "/applications", n, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// Delete removes an application.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/applications/"+strconv.FormatInt(id, 10), nil, nil)
}

// Stats returns the per-status counts of the logged-in user.
func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var s models.Stats
	if err := c.do(ctx, http.MethodGet, "/applications/stats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GenerateCoverLetter asks the server to draft a cover letter.
func (c *Client) GenerateCoverLetter(ctx context.Context, req models.CoverLetterRequest) (string, error) {
	var out struct {
		Letter string `json:"letter"`
	}
	if err := c.do(ctx, http.MethodPost, "/ai/generate", req, &out); err != nil {
		return "", err
	}
	return out.Letter, nil
}
