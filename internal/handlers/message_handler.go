package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/onlyfriends/server/internal/models"
	"github.com/onlyfriends/server/internal/repositories"
)

// MessageHandler handles direct messages between connected accounts
type MessageHandler struct {
	messageRepository    repositories.MessageRepository
	userRepository       repositories.UserRepository
	connectionRepository repositories.ConnectionRepository
	notificationRepo     repositories.NotificationRepository
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(
	messageRepo repositories.MessageRepository,
	userRepo repositories.UserRepository,
	connectionRepo repositories.ConnectionRepository,
	notificationRepo repositories.NotificationRepository,
) *MessageHandler {
	return &MessageHandler{
		messageRepository:    messageRepo,
		userRepository:       userRepo,
		connectionRepository: connectionRepo,
		notificationRepo:     notificationRepo,
	}
}

// RegisterMessageRoutes registers messaging routes
func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.POST("/messages", h.SendMessage)
	g.GET("/messages/:userID", h.GetConversation)
	g.GET("/conversations", h.GetConversations)
}

// SendMessage sends a direct message; sender and recipient must be connected
func (h *MessageHandler) SendMessage(c echo.Context) error {
	claims := currentClaims(c)

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}

	if req.RecipientID == claims.AccountID {
		return respondErrorMsg(c, http.StatusBadRequest, "Cannot message yourself")
	}

	connected, err := h.connectionRepository.IsConnected(claims.AccountID, req.RecipientID)
	if err != nil {
		return respondError(c, err)
	}
	if !connected {
		return respondError(c, repositories.ErrNotConnected)
	}

	message := &models.Message{
		SenderID:    claims.AccountID,
		RecipientID: req.RecipientID,
		Content:     req.Content,
	}
	if err := h.messageRepository.CreateMessage(message); err != nil {
		return respondError(c, err)
	}

	if profile, err := h.userRepository.GetProfileByAccountID(claims.AccountID); err == nil {
		notification := &models.Notification{
			Type:        models.NotificationTypeMessage,
			ActorID:     claims.AccountID,
			RecipientID: req.RecipientID,
			Message:     profile.FirstName + " sent you a message",
		}
		if err := h.notificationRepo.CreateNotification(notification); err != nil {
			c.Logger().Warnf("create message notification: %v", err)
		}
	}

	return respondOK(c, http.StatusCreated, message)
}

// GetConversation returns messages with one counterparty, newest first, and
// marks the incoming ones as read
func (h *MessageHandler) GetConversation(c echo.Context) error {
	claims := currentClaims(c)

	otherID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid user ID")
	}

	// Same gate as sending: once a connection is removed, the history is
	// no longer readable either.
	connected, err := h.connectionRepository.IsConnected(claims.AccountID, otherID)
	if err != nil {
		return respondError(c, err)
	}
	if !connected {
		return respondError(c, repositories.ErrNotConnected)
	}

	page := 1
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 1 {
		page = p
	}

	messages, err := h.messageRepository.GetConversation(claims.AccountID, otherID, page, 50)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.messageRepository.MarkConversationRead(claims.AccountID, otherID); err != nil {
		c.Logger().Warnf("mark conversation read: %v", err)
	}

	return respondOK(c, http.StatusOK, messages)
}

// GetConversations lists one entry per counterparty with the latest message
// and unread count
func (h *MessageHandler) GetConversations(c echo.Context) error {
	claims := currentClaims(c)

	partners, err := h.messageRepository.GetConversationPartners(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}

	profiles, err := h.userRepository.GetProfilesByAccountIDs(partners)
	if err != nil {
		return respondError(c, err)
	}
	byAccount := make(map[uuid.UUID]models.Profile, len(profiles))
	for _, p := range profiles {
		byAccount[p.AccountID] = p
	}

	conversations := make([]models.Conversation, 0, len(partners))
	for _, partnerID := range partners {
		last, err := h.messageRepository.GetLastMessage(claims.AccountID, partnerID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return respondError(c, err)
		}
		unread, err := h.messageRepository.GetUnreadCountFrom(claims.AccountID, partnerID)
		if err != nil {
			return respondError(c, err)
		}
		conversations = append(conversations, models.Conversation{
			User:        byAccount[partnerID],
			LastMessage: last,
			UnreadCount: unread,
		})
	}
	return respondOK(c, http.StatusOK, conversations)
}
