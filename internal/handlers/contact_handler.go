package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/onlyfriends/server/internal/models"
	"github.com/onlyfriends/server/internal/repositories"
)

// ContactHandler handles hashed-contact sync and mutual matching
type ContactHandler struct {
	contactRepository    repositories.ContactRepository
	userRepository       repositories.UserRepository
	connectionRepository repositories.ConnectionRepository
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(
	contactRepo repositories.ContactRepository,
	userRepo repositories.UserRepository,
	connectionRepo repositories.ConnectionRepository,
) *ContactHandler {
	return &ContactHandler{
		contactRepository:    contactRepo,
		userRepository:       userRepo,
		connectionRepository: connectionRepo,
	}
}

// RegisterContactRoutes registers contact-matching routes
func (h *ContactHandler) RegisterContactRoutes(g *echo.Group) {
	g.POST("/contacts/sync", h.SyncContacts)
	g.GET("/contacts/matches", h.GetMutualMatches)
	g.DELETE("/contacts", h.ClearContacts)
}

// SyncContacts replaces the caller's uploaded contact hash set. Clients send
// hashes only; raw phone numbers never reach the server.
func (h *ContactHandler) SyncContacts(c echo.Context) error {
	claims := currentClaims(c)

	var req models.SyncContactsRequest
	if err := c.Bind(&req); err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}

	if err := h.contactRepository.ReplaceHashes(claims.AccountID, req.Hashes); err != nil {
		return respondError(c, err)
	}

	count, err := h.contactRepository.CountHashes(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]int64{"synced": count})
}

// GetMutualMatches returns profiles of users where each party's phone hash
// appears in the other's uploaded set, excluding existing connections and
// pending requests
func (h *ContactHandler) GetMutualMatches(c echo.Context) error {
	claims := currentClaims(c)

	myHash := models.HashPhoneNumber(claims.PhoneNumber)

	// Accounts that have me in their contacts.
	candidates, err := h.contactRepository.FindAccountsWithHash(myHash)
	if err != nil {
		return respondError(c, err)
	}
	if len(candidates) == 0 {
		return respondOK(c, http.StatusOK, []models.Profile{})
	}

	// Keep only those whose phone is in my contacts and who are not already
	// connected to or pending with me.
	matches := make([]uuid.UUID, 0, len(candidates))
	for _, candidateID := range candidates {
		if candidateID == claims.AccountID {
			continue
		}
		account, err := h.userRepository.GetAccountByID(candidateID)
		if err != nil {
			continue
		}
		theirs := models.HashPhoneNumber(account.PhoneNumber)
		mutual, err := h.contactRepository.HasHash(claims.AccountID, theirs)
		if err != nil {
			return respondError(c, err)
		}
		if !mutual {
			continue
		}
		if _, err := h.connectionRepository.FindBetween(claims.AccountID, candidateID); err == nil {
			continue
		}
		matches = append(matches, candidateID)
	}

	profiles, err := h.userRepository.GetProfilesByAccountIDs(matches)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, profiles)
}

// ClearContacts removes every hash the caller uploaded
func (h *ContactHandler) ClearContacts(c echo.Context) error {
	claims := currentClaims(c)

	if err := h.contactRepository.ClearHashes(claims.AccountID); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]string{"message": "contacts cleared"})
}
