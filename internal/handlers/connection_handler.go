package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/onlyfriends/server/internal/models"
	"github.com/onlyfriends/server/internal/repositories"
)

// ConnectionHandler handles HTTP requests for the connection graph
type ConnectionHandler struct {
	connectionRepository repositories.ConnectionRepository
	userRepository       repositories.UserRepository
	notificationRepo     repositories.NotificationRepository
}

// NewConnectionHandler creates a new ConnectionHandler
func NewConnectionHandler(
	connectionRepo repositories.ConnectionRepository,
	userRepo repositories.UserRepository,
	notificationRepo repositories.NotificationRepository,
) *ConnectionHandler {
	return &ConnectionHandler{
		connectionRepository: connectionRepo,
		userRepository:       userRepo,
		notificationRepo:     notificationRepo,
	}
}

// RegisterConnectionRoutes registers connection-related routes
func (h *ConnectionHandler) RegisterConnectionRoutes(g *echo.Group) {
	g.POST("/connections/requests", h.SendRequest)
	g.GET("/connections/requests/pending", h.GetPendingRequests)
	g.GET("/connections/requests/outgoing", h.GetOutgoingRequests)
	g.PUT("/connections/requests/:id/accept", h.AcceptRequest)
	g.DELETE("/connections/requests/:id", h.DeclineRequest)
	g.GET("/connections", h.GetConnections)
	g.DELETE("/connections/:id", h.RemoveConnection)
	g.GET("/connections/count", h.GetConnectionCount)
}

// SendRequest sends a connection request, subject to the requester's cap
func (h *ConnectionHandler) SendRequest(c echo.Context) error {
	claims := currentClaims(c)

	var req models.CreateConnectionRequest
	if err := c.Bind(&req); err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}

	if req.RequesteeID == claims.AccountID {
		return respondErrorMsg(c, http.StatusBadRequest, "Cannot send a connection request to yourself")
	}

	if _, err := h.userRepository.GetAccountByID(req.RequesteeID); err != nil {
		return respondError(c, err)
	}

	profile, err := h.userRepository.GetProfileByAccountID(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}

	conn, err := h.connectionRepository.CreateRequest(claims.AccountID, req.RequesteeID, profile.ConnectionCap)
	if err != nil {
		return respondError(c, err)
	}

	h.notify(c, models.NotificationTypeConnectionRequest, claims.AccountID, req.RequesteeID,
		fmt.Sprintf("%s %s wants to connect", profile.FirstName, profile.LastName))

	return respondOK(c, http.StatusCreated, conn)
}

// AcceptRequest accepts a pending request; only the requestee may accept and
// only within their own cap
func (h *ConnectionHandler) AcceptRequest(c echo.Context) error {
	claims := currentClaims(c)

	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid connection ID")
	}

	profile, err := h.userRepository.GetProfileByAccountID(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}

	conn, err := h.connectionRepository.Accept(connectionID, claims.AccountID, profile.ConnectionCap)
	if err != nil {
		return respondError(c, err)
	}

	h.notify(c, models.NotificationTypeConnectionAccept, claims.AccountID, conn.RequesterID,
		fmt.Sprintf("%s %s accepted your request", profile.FirstName, profile.LastName))

	return respondOK(c, http.StatusOK, conn)
}

// DeclineRequest deletes a pending request; only the requestee may decline
func (h *ConnectionHandler) DeclineRequest(c echo.Context) error {
	claims := currentClaims(c)

	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid connection ID")
	}

	conn, err := h.connectionRepository.GetByID(connectionID)
	if err != nil {
		return respondError(c, err)
	}
	if conn.RequesteeID != claims.AccountID {
		return respondError(c, repositories.ErrForbidden)
	}
	if conn.Status != models.ConnectionStatusPending {
		return respondError(c, repositories.ErrNotPending)
	}

	if err := h.connectionRepository.Delete(connectionID); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]string{"message": "request declined"})
}

// RemoveConnection deletes an accepted connection. Either party may remove
// and the other party is not notified.
func (h *ConnectionHandler) RemoveConnection(c echo.Context) error {
	claims := currentClaims(c)

	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid connection ID")
	}

	conn, err := h.connectionRepository.GetByID(connectionID)
	if err != nil {
		return respondError(c, err)
	}
	if conn.RequesterID != claims.AccountID && conn.RequesteeID != claims.AccountID {
		return respondError(c, repositories.ErrForbidden)
	}
	if conn.Status != models.ConnectionStatusAccepted {
		return respondError(c, repositories.ErrNotConnected)
	}

	if err := h.connectionRepository.Delete(connectionID); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]string{"message": "connection removed"})
}

// GetConnections lists accepted connections, each flattened to the other
// party's profile
func (h *ConnectionHandler) GetConnections(c echo.Context) error {
	claims := currentClaims(c)

	connections, err := h.connectionRepository.GetAcceptedWithFriends(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, connections)
}

// GetPendingRequests lists incoming pending requests
func (h *ConnectionHandler) GetPendingRequests(c echo.Context) error {
	claims := currentClaims(c)

	requests, err := h.connectionRepository.GetPendingIncoming(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, requests)
}

// GetOutgoingRequests lists pending requests the caller has sent
func (h *ConnectionHandler) GetOutgoingRequests(c echo.Context) error {
	claims := currentClaims(c)

	requests, err := h.connectionRepository.GetPendingOutgoing(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, requests)
}

// GetConnectionCount returns the caller's accepted-connection count and cap
func (h *ConnectionHandler) GetConnectionCount(c echo.Context) error {
	claims := currentClaims(c)

	profile, err := h.userRepository.GetProfileByAccountID(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}
	count, err := h.connectionRepository.CountAccepted(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]interface{}{
		"count":          count,
		"connection_cap": profile.ConnectionCap,
	})
}

func (h *ConnectionHandler) notify(c echo.Context, notificationType string, actorID, recipientID uuid.UUID, message string) {
	notification := &models.Notification{
		Type:        notificationType,
		ActorID:     actorID,
		RecipientID: recipientID,
		Message:     message,
	}
	if err := h.notificationRepo.CreateNotification(notification); err != nil {
		c.Logger().Warnf("create %s notification: %v", notificationType, err)
	}
}
