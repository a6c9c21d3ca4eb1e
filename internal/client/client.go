package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fitpulse/fitpulse-go/internal/models"
	"github.com/fitpulse/fitpulse-go/internal/session"
)

// Client performs authentication and profile operations against the
// fitpulse API and keeps the shared session in sync with the results.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
}

// NewClient creates a Client for the given API base URL
func NewClient(baseURL string, timeout time.Duration, sess *session.Session) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		session: sess,
	}
}

// Session returns the session this client mutates
func (c *Client) Session() *session.Session {
	return c.session
}

// Login authenticates with username and password. On success the issued
// tokens are stored and the user profile is fetched immediately.
func (c *Client) Login(ctx context.Context, creds *models.LoginCredentials) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", creds, "", &resp, "Login failed"); err != nil {
		return nil, err
	}

	if err := c.session.SetTokens(ctx, &resp); err != nil {
		return nil, &AuthError{Message: "Login failed", Err: err}
	}
	if _, err := c.FetchUser(ctx); err != nil {
		return nil, err
	}

	return &resp, nil
}

// Register creates a new account. The issued tokens are stored and a
// provisional profile is built from the response fields without an extra
// profile fetch.
func (c *Client) Register(ctx context.Context, creds *models.RegisterCredentials) (*models.RegisterResponse, error) {
	var resp models.RegisterResponse
	if err := c.call(ctx, http.MethodPost, "/api/auth/register", creds, "", &resp, "Registration failed"); err != nil {
		return nil, err
	}

	if err := c.session.SetTokens(ctx, resp.Tokens()); err != nil {
		return nil, &AuthError{Message: "Registration failed", Err: err}
	}
	c.session.SetUser(models.NewProvisionalUser(&resp))

	return &resp, nil
}

// FetchUser retrieves the profile of the authenticated user and stores it
// on the session. Fails fast, without a network call, when no access token
// is present.
func (c *Client) FetchUser(ctx context.Context) (*models.User, error) {
	token := c.session.AccessToken()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	var user models.User
	if err := c.call(ctx, http.MethodGet, "/api/user/me", nil, token, &user, "Failed to fetch user profile"); err != nil {
		return nil, err
	}

	c.session.SetUser(&user)
	return &user, nil
}

// UpdateUser sends a partial profile update and replaces the stored
// profile with the server's response. Requires a loaded profile and an
// access token.
func (c *Client) UpdateUser(ctx context.Context, payload *models.UpdateUserPayload) (*models.User, error) {
	token := c.session.AccessToken()
	if c.session.User() == nil || token == "" {
		return nil, ErrNotAuthenticated
	}

	var user models.User
	if err := c.call(ctx, http.MethodPut, "/api/user/me", payload, token, &user, "Failed to update user"); err != nil {
		return nil, err
	}

	c.session.SetUser(&user)
	return &user, nil
}

// Refresh exchanges the refresh token for a new token set and returns the
// new access token. Every failure mode normalizes to ErrRefreshFailed.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	refreshToken := c.session.RefreshToken()
	if refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	body := map[string]string{"refreshToken": refreshToken}
	var resp models.LoginResponse
	if err := c.call(ctx, http.MethodPost, "/api/auth/refresh", body, "", &resp, "Token refresh failed"); err != nil {
		return "", &AuthError{Message: "Token refresh failed", Err: err}
	}
	if resp.Token == "" {
		return "", ErrRefreshFailed
	}

	if err := c.session.SetTokens(ctx, &resp); err != nil {
		return "", &AuthError{Message: "Token refresh failed", Err: err}
	}
	return resp.Token, nil
}

// call performs a single HTTP request and normalizes every failure to an
// AuthError carrying the extracted or fallback message.
func (c *Client) call(ctx context.Context, method, path string, in any, token string, out any, fallback string) error {
	payload, err := marshalBody(in)
	if err != nil {
		return &AuthError{Message: fallback, Err: err}
	}

	resp, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		return &AuthError{Message: fallback, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &AuthError{Message: fallback, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &AuthError{Message: extractMessage(data, fallback), Status: resp.StatusCode}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &AuthError{Message: fallback, Err: err}
		}
	}
	return nil
}

// send issues one HTTP request. Every request carries a request ID for
// server-side correlation.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.http.Do(req)
}

func marshalBody(in any) ([]byte, error) {
	if in == nil {
		return nil, nil
	}
	return json.Marshal(in)
}
