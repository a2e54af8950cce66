package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerifyServer(t *testing.T, code string, isNewUser bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/send-code":
			writeEnvelope(w, http.StatusOK, map[string]string{"phone_number": "+15558675309"}, "")
		case "/api/v1/auth/verify-code":
			var body struct {
				Code string `json:"code"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body.Code != code {
				writeEnvelope(w, http.StatusUnauthorized, nil, "invalid or expired code")
				return
			}
			data := map[string]interface{}{
				"phone_number": "+15558675309",
				"is_new_user":  isNewUser,
			}
			if !isNewUser {
				data["user_id"] = "user-1"
				data["access_token"] = "access-1"
				data["refresh_token"] = "refresh-1"
			}
			writeEnvelope(w, http.StatusOK, data, "")
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
}

func TestVerificationFlowExistingUser(t *testing.T) {
	server := newVerifyServer(t, "123456", false)
	defer server.Close()

	store := NewMemoryTokenStore()
	flow := New(server.URL, store).NewVerificationFlow("+15558675309")
	assert.Equal(t, VerificationIdle, flow.State())

	require.NoError(t, flow.SendCode(context.Background()))
	assert.Equal(t, VerificationCodeSent, flow.State())

	auth, err := flow.VerifyCode(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, VerificationExistingUser, flow.State())
	assert.False(t, auth.IsNewUser)

	// Tokens landed in the store.
	accessToken, _ := store.Get(KeyAccessToken)
	assert.Equal(t, "access-1", accessToken)
}

func TestVerificationFlowNewUser(t *testing.T) {
	server := newVerifyServer(t, "123456", true)
	defer server.Close()

	store := NewMemoryTokenStore()
	flow := New(server.URL, store).NewVerificationFlow("+15558675309")

	require.NoError(t, flow.SendCode(context.Background()))
	auth, err := flow.VerifyCode(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, VerificationNewUser, flow.State())
	assert.True(t, auth.IsNewUser)

	// No session yet; registration comes next.
	if _, ok := store.Get(KeyAccessToken); ok {
		t.Error("no tokens may be stored before registration")
	}
}

func TestVerificationFlowWrongCodeAllowsRetry(t *testing.T) {
	server := newVerifyServer(t, "123456", false)
	defer server.Close()

	flow := New(server.URL, NewMemoryTokenStore()).NewVerificationFlow("+15558675309")
	require.NoError(t, flow.SendCode(context.Background()))

	_, err := flow.VerifyCode(context.Background(), "000000")
	require.Error(t, err)
	assert.Equal(t, VerificationCodeSent, flow.State())

	_, err = flow.VerifyCode(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, VerificationExistingUser, flow.State())
}

func TestVerificationFlowRejectsVerifyBeforeSend(t *testing.T) {
	flow := New("http://unused", NewMemoryTokenStore()).NewVerificationFlow("+15558675309")

	_, err := flow.VerifyCode(context.Background(), "123456")
	require.Error(t, err)
	assert.Equal(t, VerificationIdle, flow.State())
}
