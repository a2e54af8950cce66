package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/onlyfriends/server/internal/models"
	"github.com/onlyfriends/server/internal/repositories"
)

// UserHandler handles profile reads and edits
type UserHandler struct {
	userRepository       repositories.UserRepository
	connectionRepository repositories.ConnectionRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, connectionRepo repositories.ConnectionRepository) *UserHandler {
	return &UserHandler{
		userRepository:       userRepo,
		connectionRepository: connectionRepo,
	}
}

// RegisterProfileRoutes registers profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/users/me", h.GetMe)
	g.PUT("/users/me", h.UpdateMe)
	g.DELETE("/users/me", h.DeactivateMe)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:id", h.GetUser)
}

// GetMe returns the caller's account with profile
func (h *UserHandler) GetMe(c echo.Context) error {
	claims := currentClaims(c)

	account, err := h.userRepository.GetAccountByID(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, account)
}

// UpdateMe edits the caller's profile. Only provided fields change; the
// connection cap is never writable here.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	claims := currentClaims(c)

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}

	profile, err := h.userRepository.GetProfileByAccountID(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}

	if req.FirstName != nil {
		profile.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		profile.LastName = *req.LastName
	}
	if req.Username != nil {
		profile.Username = *req.Username
	}
	if req.AvatarURL != nil {
		profile.AvatarURL = *req.AvatarURL
	}
	if req.Bio != nil {
		profile.Bio = *req.Bio
	}
	if req.NotifyRequests != nil {
		profile.NotifyRequests = *req.NotifyRequests
	}
	if req.NotifyMessages != nil {
		profile.NotifyMessages = *req.NotifyMessages
	}

	if err := h.userRepository.UpdateProfile(profile); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, profile)
}

// DeactivateMe marks the caller's account inactive
func (h *UserHandler) DeactivateMe(c echo.Context) error {
	claims := currentClaims(c)

	if err := h.userRepository.DeactivateAccount(claims.AccountID); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]string{"message": "account deactivated"})
}

// GetUser returns another user's profile. Visible to connections and to the
// counterparty of a pending request; private otherwise.
func (h *UserHandler) GetUser(c echo.Context) error {
	claims := currentClaims(c)

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid user ID")
	}
	if accountID == claims.AccountID {
		return h.GetMe(c)
	}

	if _, err := h.connectionRepository.FindBetween(claims.AccountID, accountID); err != nil {
		return respondError(c, repositories.ErrForbidden)
	}

	profile, err := h.userRepository.GetProfileByAccountID(accountID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, profile)
}

// SearchUsers searches profiles by name or username
func (h *UserHandler) SearchUsers(c echo.Context) error {
	claims := currentClaims(c)

	query := c.QueryParam("q")
	if len(query) < 2 {
		return respondErrorMsg(c, http.StatusBadRequest, "Search query must be at least 2 characters")
	}

	profiles, err := h.userRepository.SearchProfiles(query, claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, profiles)
}
