package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/onlyfriends/server/internal/auth"
	"github.com/onlyfriends/server/internal/models"
	"github.com/onlyfriends/server/internal/repositories"
)

// apiResponse is the uniform envelope every endpoint returns. Clients
// pattern-match on success instead of catching exceptions.
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondOK(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, apiResponse{Success: true, Data: data})
}

func respondErrorMsg(c echo.Context, status int, msg string) error {
	return c.JSON(status, apiResponse{Success: false, Error: msg})
}

// respondError translates sentinel errors into HTTP statuses. Unknown errors
// become a 500 with a generic message; internals never leak to the client.
func respondError(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg := http.StatusText(httpErr.Code)
		if s, ok := httpErr.Message.(string); ok {
			msg = s
		}
		return respondErrorMsg(c, httpErr.Code, msg)
	}

	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return respondErrorMsg(c, http.StatusNotFound, err.Error())
	case errors.Is(err, repositories.ErrForbidden),
		errors.Is(err, repositories.ErrNotConnected):
		return respondErrorMsg(c, http.StatusForbidden, err.Error())
	case errors.Is(err, repositories.ErrAlreadyConnected),
		errors.Is(err, repositories.ErrRequestPending),
		errors.Is(err, repositories.ErrCapReached),
		errors.Is(err, repositories.ErrNotPending),
		errors.Is(err, repositories.ErrCodeUsed),
		errors.Is(err, repositories.ErrPhoneTaken):
		return respondErrorMsg(c, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCode):
		return respondErrorMsg(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrCooldown),
		errors.Is(err, auth.ErrRateLimited):
		return respondErrorMsg(c, http.StatusTooManyRequests, err.Error())
	default:
		c.Logger().Errorf("internal error: %v", err)
		return respondErrorMsg(c, http.StatusInternalServerError, "internal server error")
	}
}

// currentClaims returns the JWT claims placed in the context by the auth middleware
func currentClaims(c echo.Context) *models.JwtCustomClaims {
	claims, _ := c.Get("user").(*models.JwtCustomClaims)
	return claims
}
