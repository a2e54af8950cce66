package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, data interface{}, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": errMsg == "",
		"data":    data,
		"error":   errMsg,
	})
}

func TestBootstrapNoTokenMakesZeroCalls(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	}))
	defer server.Close()

	c := New(server.URL, NewMemoryTokenStore())
	session := c.Bootstrap(context.Background())

	assert.Equal(t, StateUnauthenticated, session.State)
	assert.Nil(t, session.User)
	assert.EqualValues(t, 0, atomic.LoadInt64(&calls))
}

func TestBootstrapValidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/users/me", r.URL.Path)
		require.Equal(t, "Bearer good-token", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"id":           "user-1",
			"phone_number": "+15558675309",
		}, "")
	}))
	defer server.Close()

	store := NewMemoryTokenStore()
	store.Set(KeyAccessToken, "good-token")
	store.Set(KeyRefreshToken, "refresh-1")

	c := New(server.URL, store)
	session := c.Bootstrap(context.Background())

	require.Equal(t, StateAuthenticated, session.State)
	require.NotNil(t, session.User)
	assert.Equal(t, "user-1", session.User.ID)

	userID, _ := store.Get(KeyUserID)
	assert.Equal(t, "user-1", userID)
}

func TestBootstrapExpiredTokenRefreshesExactlyOnce(t *testing.T) {
	var meCalls, refreshCalls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/users/me":
			atomic.AddInt64(&meCalls, 1)
			if r.Header.Get("Authorization") != "Bearer fresh-token" {
				writeEnvelope(w, http.StatusUnauthorized, nil, "token expired")
				return
			}
			writeEnvelope(w, http.StatusOK, map[string]interface{}{"id": "user-1"}, "")
		case "/api/v1/auth/refresh":
			atomic.AddInt64(&refreshCalls, 1)
			var body struct {
				RefreshToken string `json:"refresh_token"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "refresh-1", body.RefreshToken)
			writeEnvelope(w, http.StatusOK, map[string]interface{}{
				"user_id":       "user-1",
				"access_token":  "fresh-token",
				"refresh_token": "refresh-2",
			}, "")
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
	defer server.Close()

	store := NewMemoryTokenStore()
	store.Set(KeyAccessToken, "stale-token")
	store.Set(KeyRefreshToken, "refresh-1")

	c := New(server.URL, store)
	session := c.Bootstrap(context.Background())

	require.Equal(t, StateAuthenticated, session.State)
	assert.EqualValues(t, 1, atomic.LoadInt64(&refreshCalls), "refresh must happen exactly once")
	assert.EqualValues(t, 2, atomic.LoadInt64(&meCalls), "fetch, then one retry")

	// The rotated pair replaced the old one.
	accessToken, _ := store.Get(KeyAccessToken)
	refreshToken, _ := store.Get(KeyRefreshToken)
	assert.Equal(t, "fresh-token", accessToken)
	assert.Equal(t, "refresh-2", refreshToken)
}

func TestBootstrapRefreshRejectedClearsStore(t *testing.T) {
	var refreshCalls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/users/me":
			writeEnvelope(w, http.StatusUnauthorized, nil, "token expired")
		case "/api/v1/auth/refresh":
			atomic.AddInt64(&refreshCalls, 1)
			writeEnvelope(w, http.StatusUnauthorized, nil, "Invalid refresh token")
		}
	}))
	defer server.Close()

	store := NewMemoryTokenStore()
	store.Set(KeyAccessToken, "stale-token")
	store.Set(KeyRefreshToken, "revoked-refresh")

	c := New(server.URL, store)
	session := c.Bootstrap(context.Background())

	assert.Equal(t, StateUnauthenticated, session.State)
	assert.EqualValues(t, 1, atomic.LoadInt64(&refreshCalls))
	if _, ok := store.Get(KeyAccessToken); ok {
		t.Error("access token should be cleared after a rejected refresh")
	}
	if _, ok := store.Get(KeyRefreshToken); ok {
		t.Error("refresh token should be cleared after a rejected refresh")
	}
}

func TestBootstrapRetryRejectedClearsStore(t *testing.T) {
	// Refresh succeeds but the retried fetch still fails: also unauthenticated.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/users/me":
			writeEnvelope(w, http.StatusUnauthorized, nil, "token expired")
		case "/api/v1/auth/refresh":
			writeEnvelope(w, http.StatusOK, map[string]interface{}{
				"access_token":  "fresh-token",
				"refresh_token": "refresh-2",
			}, "")
		}
	}))
	defer server.Close()

	store := NewMemoryTokenStore()
	store.Set(KeyAccessToken, "stale-token")
	store.Set(KeyRefreshToken, "refresh-1")

	c := New(server.URL, store)
	session := c.Bootstrap(context.Background())

	assert.Equal(t, StateUnauthenticated, session.State)
	if _, ok := store.Get(KeyAccessToken); ok {
		t.Error("store should be cleared when the retry is rejected")
	}
}

func TestBootstrapServerDownResolvesUnauthenticated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	store := NewMemoryTokenStore()
	store.Set(KeyAccessToken, "some-token")

	c := New(server.URL, store)
	session := c.Bootstrap(context.Background())

	assert.Equal(t, StateUnauthenticated, session.State)
}

func TestBootstrapMalformedBodyResolvesUnauthenticated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	store := NewMemoryTokenStore()
	store.Set(KeyAccessToken, "some-token")

	c := New(server.URL, store)
	session := c.Bootstrap(context.Background())

	assert.Equal(t, StateUnauthenticated, session.State)
}
