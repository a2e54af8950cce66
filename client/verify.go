package client

import (
	"context"
	"net/http"
)

// VerificationState tracks the phone-verification flow on the client
type VerificationState string

const (
	VerificationIdle         VerificationState = "idle"
	VerificationCodeSent     VerificationState = "code_sent"
	VerificationVerifying    VerificationState = "verifying"
	VerificationNewUser      VerificationState = "verified_new_user"
	VerificationExistingUser VerificationState = "verified_existing_user"
	VerificationFailed       VerificationState = "failed"
)

// VerificationFlow drives one phone through send-code and verify-code. It is
// a linear state machine: Idle, CodeSent, Verifying, then one of the three
// terminal states. A failed verification can be retried from CodeSent.
type VerificationFlow struct {
	client *Client
	phone  string
	state  VerificationState
}

// NewVerificationFlow starts an Idle flow for a phone number
func (c *Client) NewVerificationFlow(phone string) *VerificationFlow {
	return &VerificationFlow{client: c, phone: phone, state: VerificationIdle}
}

// State returns the current flow state
func (f *VerificationFlow) State() VerificationState { return f.state }

// SendCode requests an SMS code. Allowed from Idle, CodeSent (resend, subject
// to the server cooldown) and Failed.
func (f *VerificationFlow) SendCode(ctx context.Context) error {
	switch f.state {
	case VerificationIdle, VerificationCodeSent, VerificationFailed:
	default:
		return &APIError{StatusCode: http.StatusConflict, Message: "verification already completed"}
	}

	err := f.client.do(ctx, http.MethodPost, "/api/v1/auth/send-code",
		map[string]string{"phone_number": f.phone}, false, nil)
	if err != nil {
		return err
	}
	f.state = VerificationCodeSent
	return nil
}

// VerifyCode submits the received code. On success the flow reaches
// VerificationNewUser (register next) or VerificationExistingUser (tokens
// already stored). A wrong code returns the error and leaves the flow in
// CodeSent so the user can retry.
func (f *VerificationFlow) VerifyCode(ctx context.Context, code string) (*AuthResponse, error) {
	if f.state != VerificationCodeSent {
		return nil, &APIError{StatusCode: http.StatusConflict, Message: "no code outstanding"}
	}
	f.state = VerificationVerifying

	var auth AuthResponse
	err := f.client.do(ctx, http.MethodPost, "/api/v1/auth/verify-code",
		map[string]string{"phone_number": f.phone, "code": code}, false, &auth)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusUnauthorized {
			// Wrong code; more attempts may remain.
			f.state = VerificationCodeSent
		} else {
			f.state = VerificationFailed
		}
		return nil, err
	}

	if auth.IsNewUser {
		f.state = VerificationNewUser
	} else {
		f.state = VerificationExistingUser
		f.client.storeTokens(&auth)
	}
	return &auth, nil
}
