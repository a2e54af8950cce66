package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/onlyfriends/server/internal/models"
	"github.com/onlyfriends/server/internal/repositories"
)

// InviteHandler handles invite codes and tier progress
type InviteHandler struct {
	inviteRepository repositories.InviteRepository
	userRepository   repositories.UserRepository
}

// NewInviteHandler creates a new InviteHandler
func NewInviteHandler(inviteRepo repositories.InviteRepository, userRepo repositories.UserRepository) *InviteHandler {
	return &InviteHandler{
		inviteRepository: inviteRepo,
		userRepository:   userRepo,
	}
}

// RegisterInviteRoutes registers the authenticated invite routes
func (h *InviteHandler) RegisterInviteRoutes(g *echo.Group) {
	g.GET("/invites/code", h.GetMyCode)
	g.GET("/invites/stats", h.GetStats)
	g.GET("/invites/accepted", h.GetInvitedUsers)
}

// RegisterPublicInviteRoutes registers routes reachable before registration
func (h *InviteHandler) RegisterPublicInviteRoutes(g *echo.Group) {
	g.POST("/invites/validate", h.ValidateCode)
}

// GetMyCode returns the caller's active invite code, creating one if needed
func (h *InviteHandler) GetMyCode(c echo.Context) error {
	claims := currentClaims(c)

	invite, err := h.inviteRepository.GetOrCreateActiveCode(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]string{"code": invite.Code})
}

// ValidateCode checks whether an invite code can still be claimed. Public so
// registration can validate before the account exists.
func (h *InviteHandler) ValidateCode(c echo.Context) error {
	var req models.ValidateInviteRequest
	if err := c.Bind(&req); err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}

	invite, err := h.inviteRepository.GetByCode(req.Code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return respondOK(c, http.StatusOK, models.ValidateInviteResponse{
				Valid:  false,
				Reason: "Invalid invite code",
			})
		}
		return respondError(c, err)
	}
	if invite.UsedByUserID != nil {
		return respondOK(c, http.StatusOK, models.ValidateInviteResponse{
			Valid:  false,
			Reason: "This code has already been used",
		})
	}
	return respondOK(c, http.StatusOK, models.ValidateInviteResponse{Valid: true})
}

// GetStats reports invite totals, the current cap and the next tier
func (h *InviteHandler) GetStats(c echo.Context) error {
	claims := currentClaims(c)

	profile, err := h.userRepository.GetProfileByAccountID(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}
	total, err := h.inviteRepository.CountCreatedBy(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}

	return respondOK(c, http.StatusOK, models.InviteStats{
		TotalInvites:  int(total),
		UsedInvites:   profile.InvitesSentCount,
		CurrentCap:    profile.ConnectionCap,
		NextCapUnlock: models.NextTier(profile.InvitesSentCount),
	})
}

// GetInvitedUsers lists the profiles of users who joined via the caller's codes
func (h *InviteHandler) GetInvitedUsers(c echo.Context) error {
	claims := currentClaims(c)

	profiles, err := h.inviteRepository.GetInvitedProfiles(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, profiles)
}
