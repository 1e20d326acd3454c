package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds common client configuration.
type Config struct {
	ServerURL string
	Timeout   time.Duration
	Debug     bool
}

// DefaultConfig returns a default client configuration.
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8080/api/v1",
		Timeout:   30 * time.Second,
	}
}

// Client talks to the estate backend's REST API. All authenticated calls go
// through the supplied Transport, which attaches the bearer credential and
// reports 401 rejections.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient creates a client for the given server. The transport is wrapped
// in otelhttp instrumentation so every call is traced.
func NewClient(cfg Config, transport *Transport) (*Client, error) {
	baseURL, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}, nil
}

// Origin returns the scheme://host of the backend, used to absolutize
// relative asset paths the backend hands out.
func (c *Client) Origin() *url.URL {
	return &url.URL{Scheme: c.baseURL.Scheme, Host: c.baseURL.Host}
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/login", nil, LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the current token server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil, nil)
}

// CurrentUser fetches the authenticated user, optionally with a refreshed
// token expiry.
func (c *Client) CurrentUser(ctx context.Context) (*UserResponse, error) {
	var resp UserResponse
	if err := c.get(ctx, "/user", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateProfile updates the user's profile. When an avatar file is included
// the request is sent as multipart form data.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	var resp UserResponse

	if update.AvatarPath != "" {
		if err := c.doMultipart(ctx, "/user/profile", update, &resp); err != nil {
			return nil, err
		}
		return resp.User, nil
	}

	payload := map[string]string{}
	if update.Name != "" {
		payload["name"] = update.Name
	}
	if update.Password != "" {
		payload["password_current"] = update.PasswordCurrent
		payload["password"] = update.Password
		payload["password_confirmation"] = update.PasswordConfirmation
	}

	if err := c.do(ctx, http.MethodPost, "/user/profile", nil, payload, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// RemoveAvatar clears the user's avatar.
func (c *Client) RemoveAvatar(ctx context.Context) (*User, error) {
	var resp UserResponse
	if err := c.do(ctx, http.MethodDelete, "/user/avatar", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// ListResource returns one page of an admin resource collection.
func (c *Client) ListResource(ctx context.Context, resource string, params ListParams) (*ResourcePage, error) {
	query := url.Values{}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(params.PerPage))
	}
	if params.Search != "" {
		query.Set("search", params.Search)
	}

	var page ResourcePage
	if err := c.get(ctx, "/admin/"+resource, query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetResource fetches a single admin resource by id.
func (c *Client) GetResource(ctx context.Context, resource string, id int64) (map[string]any, error) {
	var doc envelope
	if err := c.get(ctx, fmt.Sprintf("/admin/%s/%d", resource, id), nil, &doc); err != nil {
		return nil, err
	}
	return doc.payload, nil
}

// CreateResource creates an admin resource from a generic document.
func (c *Client) CreateResource(ctx context.Context, resource string, payload map[string]any) (map[string]any, error) {
	var doc envelope
	if err := c.do(ctx, http.MethodPost, "/admin/"+resource, nil, payload, &doc); err != nil {
		return nil, err
	}
	return doc.payload, nil
}

// UpdateResource replaces an admin resource.
func (c *Client) UpdateResource(ctx context.Context, resource string, id int64, payload map[string]any) (map[string]any, error) {
	var doc envelope
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/%s/%d", resource, id), nil, payload, &doc); err != nil {
		return nil, err
	}
	return doc.payload, nil
}

// DeleteResource deletes an admin resource by id.
func (c *Client) DeleteResource(ctx context.Context, resource string, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/admin/%s/%d", resource, id), nil, nil, nil)
}

// GetSettings fetches a settings group.
func (c *Client) GetSettings(ctx context.Context, group string) (map[string]any, error) {
	var doc envelope
	if err := c.get(ctx, "/admin/settings/"+group, nil, &doc); err != nil {
		return nil, err
	}
	return doc.payload, nil
}

// UpdateSettings replaces the values of a settings group.
func (c *Client) UpdateSettings(ctx context.Context, group string, values map[string]any) (map[string]any, error) {
	var doc envelope
	if err := c.do(ctx, http.MethodPost, "/admin/settings/"+group, nil, values, &doc); err != nil {
		return nil, err
	}
	return doc.payload, nil
}

// envelope decodes either a bare JSON object or one wrapped in a {data: ...}
// envelope; some backend revisions wrap single resources, others do not.
type envelope struct {
	payload map[string]any
}

func (e *envelope) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Data != nil {
		e.payload = wrapped.Data
		return nil
	}

	return json.Unmarshal(data, &e.payload)
}

// get performs a GET with exponential-backoff retry of transient failures.
// Anything the server answered with a definite 4xx is permanent.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	operation := func() (struct{}, error) {
		err := c.do(ctx, http.MethodGet, path, query, nil, out)
		if err != nil {
			var apiErr *Error
			if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
				return struct{}{}, backoff.Permanent(err)
			}
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3))
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reqBody io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return c.send(req, out)
}

// doMultipart sends a profile update as multipart form data with the avatar
// file attached.
func (c *Client) doMultipart(ctx context.Context, path string, update ProfileUpdate, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"name":                  update.Name,
		"password_current":      update.PasswordCurrent,
		"password":              update.Password,
		"password_confirmation": update.PasswordConfirmation,
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("failed to write form field: %w", err)
		}
	}

	file, err := os.Open(update.AvatarPath)
	if err != nil {
		return fmt.Errorf("failed to open avatar file: %w", err)
	}
	defer file.Close()

	part, err := writer.CreateFormFile("avatar", filepath.Base(update.AvatarPath))
	if err != nil {
		return fmt.Errorf("failed to create avatar part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read avatar file: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), &buf)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = u.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}
