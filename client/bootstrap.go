package client

import (
	"context"
	"net/http"
)

// SessionState is the outcome of a session bootstrap
type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticated   SessionState = "authenticated"
)

// Session is the result of Bootstrap; User is set only when authenticated
type Session struct {
	State SessionState
	User  *User
}

// Bootstrap resolves the app-launch session state:
//
//  1. No stored access token: Unauthenticated, without touching the network.
//  2. GET /users/me with the stored token; success is Authenticated.
//  3. On 401, refresh the token pair exactly once and retry the fetch once.
//  4. Any other outcome (refresh rejected, retry rejected, network failure,
//     malformed body) clears the store and resolves Unauthenticated.
//
// Bootstrap never panics; client code can call it unconditionally at launch.
func (c *Client) Bootstrap(ctx context.Context) Session {
	if _, ok := c.store.Get(KeyAccessToken); !ok {
		return Session{State: StateUnauthenticated}
	}

	user, err := c.bootstrapFetch(ctx)
	if err != nil {
		c.store.Clear()
		return Session{State: StateUnauthenticated}
	}
	c.store.Set(KeyUserID, user.ID)
	return Session{State: StateAuthenticated, User: user}
}

// bootstrapFetch is GET /users/me with a single refresh-and-retry on 401
func (c *Client) bootstrapFetch(ctx context.Context) (*User, error) {
	var user User
	err := c.do(ctx, http.MethodGet, "/api/v1/users/me", nil, true, &user)
	if err == nil {
		return &user, nil
	}
	if !isUnauthorized(err) {
		return nil, err
	}
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/me", nil, true, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
