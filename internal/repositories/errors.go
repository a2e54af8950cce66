// Package repositories holds the data-access layer. The sentinel errors
// below let handlers distinguish failure scenarios without inspecting
// driver-specific errors: ErrCapReached maps to 409, ErrForbidden to 403,
// ErrNotFound to 404, and so on.
package repositories

import "errors"

// ErrNotFound is returned when the requested record does not exist
var ErrNotFound = errors.New("record not found")

// ErrForbidden is returned when the caller attempts an operation on a
// record they are not a party to
var ErrForbidden = errors.New("forbidden")

// ErrAlreadyConnected is returned when an accepted connection already
// exists between the pair, in either direction
var ErrAlreadyConnected = errors.New("already connected")

// ErrRequestPending is returned when a pending request already exists
// between the pair, in either direction
var ErrRequestPending = errors.New("request already pending")

// ErrCapReached is returned when a cap-gated mutation would put the account
// over its connection cap. The count and the mutation are evaluated in a
// single SQL statement, never as separate read-then-write steps.
var ErrCapReached = errors.New("connection cap reached")

// ErrNotConnected is returned when an operation requires an accepted
// connection between the two accounts
var ErrNotConnected = errors.New("users are not connected")

// ErrPhoneTaken is returned when registering a phone number that already
// has an account
var ErrPhoneTaken = errors.New("phone number already registered")

// ErrCodeUsed is returned when claiming an invite code that has already
// been consumed
var ErrCodeUsed = errors.New("invite code already used")

// ErrNotPending is returned when accepting or declining a request that is
// no longer pending
var ErrNotPending = errors.New("request is not pending")
