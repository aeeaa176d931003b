// Package apiclient is the typed client for the Golden Review backend.
// Authentication rides on the backend's HTTP-only session cookie, held in
// the client's cookie jar; no bearer tokens are attached.
package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/alfredo-dkl/golden-review-frontend/internal/log"
)

// DefaultTimeout bounds every backend request.
const DefaultTimeout = 30 * time.Second

// Client talks to the Golden Review backend.
type Client struct {
	http *resty.Client
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// New creates a backend client for the given base URL. The cookie jar keeps
// the session cookie between requests, standing in for the browser.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{Jar: jar, Timeout: timeout}
	client := resty.NewWithClient(httpClient).
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	client.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		req.Header.Set("X-Request-ID", uuid.NewString())
		return nil
	})

	return &Client{http: client}, nil
}

func (c *Client) do(ctx context.Context, method, path string, params map[string]string, body, result any) error {
	req := c.http.R().SetContext(ctx).SetError(&errorEnvelope{})
	if len(params) > 0 {
		req.SetQueryParams(params)
	}
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}

	if resp.IsError() {
		message := "request failed"
		if env, ok := resp.Error().(*errorEnvelope); ok {
			if env.Error != "" {
				message = env.Error
			} else if env.Message != "" {
				message = env.Message
			}
		}
		log.LogDebugWithFields("apiclient", "Backend returned error", map[string]any{
			"method": method,
			"path":   path,
			"status": resp.StatusCode(),
		})
		return &APIError{StatusCode: resp.StatusCode(), Message: message}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, result any) error {
	return c.do(ctx, resty.MethodGet, path, params, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, resty.MethodPost, path, nil, body, result)
}

func (c *Client) put(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, resty.MethodPut, path, nil, body, result)
}

// CreateSession establishes a cookie-backed session from a verified
// external identity.
func (c *Client) CreateSession(ctx context.Context, user SessionUser) (*SessionResponse, error) {
	var resp SessionResponse
	payload := map[string]SessionUser{"user": user}
	if err := c.post(ctx, "/auth/session", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateSession checks whether the current cookie corresponds to a live
// session.
func (c *Client) ValidateSession(ctx context.Context) (*ValidateResponse, error) {
	var resp ValidateResponse
	if err := c.get(ctx, "/auth/validate", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CurrentUser fetches the current session's user profile.
func (c *Client) CurrentUser(ctx context.Context) (*MeResponse, error) {
	var resp MeResponse
	if err := c.get(ctx, "/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the current session. The backend clears the cookie.
func (c *Client) Logout(ctx context.Context) (*SessionResponse, error) {
	var resp SessionResponse
	if err := c.post(ctx, "/auth/logout", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NewBusiness lists new-business policies.
func (c *Client) NewBusiness(ctx context.Context, params PageParams) (*PolicyPage, error) {
	var resp PolicyPage
	if err := c.get(ctx, "/policies/new-business", params.query(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Renewals lists renewal policies.
func (c *Client) Renewals(ctx context.Context, params PageParams) (*PolicyPage, error) {
	var resp PolicyPage
	if err := c.get(ctx, "/policies/renewals", params.query(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UserCarriers lists users with their assigned carriers.
func (c *Client) UserCarriers(ctx context.Context, params PageParams) (*UserCarrierPage, error) {
	var resp UserCarrierPage
	if err := c.get(ctx, "/users/carriers", params.query(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AvailableCarriers lists carriers that can be assigned to users.
func (c *Client) AvailableCarriers(ctx context.Context) (*CarriersResponse, error) {
	var resp CarriersResponse
	if err := c.get(ctx, "/carriers/available", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateUserCarriers replaces a user's carrier assignments.
func (c *Client) UpdateUserCarriers(ctx context.Context, userID string, carrierIDs []string) (*UpdateUserCarriersResponse, error) {
	var resp UpdateUserCarriersResponse
	payload := map[string][]string{"carrierIds": carrierIDs}
	if err := c.put(ctx, "/user/"+userID+"/carriers", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
