// Package client is a typed Go client for the Only Friends API. It mirrors
// the session handling of the mobile apps: tokens live in a TokenStore, every
// request carries a bounded timeout, and an expired access token is refreshed
// at most once per call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// NetworkError wraps transport-level failures (timeouts, refused
// connections) so callers can tell them apart from API errors.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// envelope is the uniform response wrapper the server emits
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// User is the account snapshot returned by /users/me
type User struct {
	ID          string   `json:"id"`
	PhoneNumber string   `json:"phone_number"`
	IsVerified  bool     `json:"is_verified"`
	IsActive    bool     `json:"is_active"`
	Profile     *Profile `json:"profile,omitempty"`
}

// Profile is the public profile attached to an account
type Profile struct {
	ID               string `json:"id"`
	AccountID        string `json:"account_id"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Username         string `json:"username,omitempty"`
	AvatarURL        string `json:"avatar_url,omitempty"`
	Bio              string `json:"bio,omitempty"`
	ConnectionCap    int    `json:"connection_cap"`
	InvitesSentCount int    `json:"invites_sent_count"`
}

// AuthResponse is returned by verify-code, register, login and refresh
type AuthResponse struct {
	UserID       string `json:"user_id,omitempty"`
	PhoneNumber  string `json:"phone_number"`
	IsNewUser    bool   `json:"is_new_user"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// InviteValidation is the public invite-code check result
type InviteValidation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Client talks to one Only Friends server
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      TokenStore
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a Client against baseURL, storing tokens in store
func New(baseURL string, store TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		store:      store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues one request and decodes the envelope into out. authed attaches
// the stored access token. It does not refresh; Bootstrap and authedDo own
// that.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, authed bool, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		if token, ok := c.store.Get(KeyAccessToken); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &NetworkError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &NetworkError{Err: err}
		}
	}
	return nil
}

// authedDo issues an authenticated request, refreshing the token pair once
// on a 401 and retrying the request once.
func (c *Client) authedDo(ctx context.Context, method, path string, body, out interface{}) error {
	err := c.do(ctx, method, path, body, true, out)
	if !isUnauthorized(err) {
		return err
	}
	if err := c.refresh(ctx); err != nil {
		return err
	}
	return c.do(ctx, method, path, body, true, out)
}

func isUnauthorized(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusUnauthorized
}

// refresh exchanges the stored refresh token for a rotated pair
func (c *Client) refresh(ctx context.Context) error {
	refreshToken, ok := c.store.Get(KeyRefreshToken)
	if !ok {
		return &APIError{StatusCode: http.StatusUnauthorized, Message: "no refresh token"}
	}
	var auth AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/refresh",
		map[string]string{"refresh_token": refreshToken}, false, &auth)
	if err != nil {
		return err
	}
	c.storeTokens(&auth)
	return nil
}

func (c *Client) storeTokens(auth *AuthResponse) {
	c.store.Set(KeyAccessToken, auth.AccessToken)
	c.store.Set(KeyRefreshToken, auth.RefreshToken)
	if auth.UserID != "" {
		c.store.Set(KeyUserID, auth.UserID)
	}
}

// GetMe fetches the caller's account snapshot
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.authedDo(ctx, http.MethodGet, "/api/v1/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Register creates an account for a phone number verified in the last ten
// minutes
func (c *Client) Register(ctx context.Context, phone, firstName, lastName, password, inviteCode string) (*AuthResponse, error) {
	var auth AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"phone_number": phone,
		"first_name":   firstName,
		"last_name":    lastName,
		"password":     password,
		"invite_code":  inviteCode,
	}, false, &auth)
	if err != nil {
		return nil, err
	}
	c.storeTokens(&auth)
	return &auth, nil
}

// Login authenticates with phone number and password
func (c *Client) Login(ctx context.Context, phone, password string) (*AuthResponse, error) {
	var auth AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"phone_number": phone,
		"password":     password,
	}, false, &auth)
	if err != nil {
		return nil, err
	}
	c.storeTokens(&auth)
	return &auth, nil
}

// Logout revokes the current refresh session and clears the store
func (c *Client) Logout(ctx context.Context) error {
	refreshToken, _ := c.store.Get(KeyRefreshToken)
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout",
		map[string]string{"refresh_token": refreshToken}, true, nil)
	c.store.Clear()
	return err
}

// ValidateInviteCode checks an invite code before signup; no auth required
func (c *Client) ValidateInviteCode(ctx context.Context, code string) (*InviteValidation, error) {
	var result InviteValidation
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/invites/validate",
		map[string]string{"code": code}, false, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SendConnectionRequest asks another user to connect
func (c *Client) SendConnectionRequest(ctx context.Context, requesteeID string) error {
	return c.authedDo(ctx, http.MethodPost, "/api/v1/connections/requests",
		map[string]string{"requestee_id": requesteeID}, nil)
}

// AcceptConnectionRequest accepts an incoming request by its ID
func (c *Client) AcceptConnectionRequest(ctx context.Context, requestID string) error {
	return c.authedDo(ctx, http.MethodPut, "/api/v1/connections/requests/"+requestID+"/accept", nil, nil)
}

// GetConnections lists the caller's accepted connections
func (c *Client) GetConnections(ctx context.Context) ([]Profile, error) {
	var raw []struct {
		Friend Profile `json:"friend"`
	}
	if err := c.authedDo(ctx, http.MethodGet, "/api/v1/connections", nil, &raw); err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(raw))
	for _, r := range raw {
		profiles = append(profiles, r.Friend)
	}
	return profiles, nil
}

// GetMyInviteCode returns the caller's active invite code
func (c *Client) GetMyInviteCode(ctx context.Context) (string, error) {
	var invite struct {
		Code string `json:"code"`
	}
	if err := c.authedDo(ctx, http.MethodGet, "/api/v1/invites/code", nil, &invite); err != nil {
		return "", err
	}
	return invite.Code, nil
}
