package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/onlyfriends/server/internal/models"
	"github.com/onlyfriends/server/internal/repositories"
)

// StoryHandler handles 24-hour stories
type StoryHandler struct {
	storyRepository      repositories.StoryRepository
	userRepository       repositories.UserRepository
	connectionRepository repositories.ConnectionRepository
}

// NewStoryHandler creates a new StoryHandler
func NewStoryHandler(
	storyRepo repositories.StoryRepository,
	userRepo repositories.UserRepository,
	connectionRepo repositories.ConnectionRepository,
) *StoryHandler {
	return &StoryHandler{
		storyRepository:      storyRepo,
		userRepository:       userRepo,
		connectionRepository: connectionRepo,
	}
}

// RegisterStoryRoutes registers story-related routes
func (h *StoryHandler) RegisterStoryRoutes(g *echo.Group) {
	g.POST("/stories", h.CreateStory)
	g.GET("/stories", h.GetStories)
	g.DELETE("/stories/:id", h.DeleteStory)
}

// CreateStory creates a story; either content or an image is required
func (h *StoryHandler) CreateStory(c echo.Context) error {
	claims := currentClaims(c)

	var req models.CreateStoryRequest
	if err := c.Bind(&req); err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}
	if req.Content == "" && req.ImageURL == "" {
		return respondErrorMsg(c, http.StatusBadRequest, "A story needs content or an image")
	}

	story := &models.Story{
		UserID:          claims.AccountID.String(),
		Content:         req.Content,
		ImageURL:        req.ImageURL,
		BackgroundColor: req.BackgroundColor,
	}
	if err := h.storyRepository.CreateStory(c.Request().Context(), story); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusCreated, story)
}

// GetStories returns unexpired stories by the caller and their connections,
// grouped per author
func (h *StoryHandler) GetStories(c echo.Context) error {
	claims := currentClaims(c)

	connections, err := h.connectionRepository.GetAcceptedWithFriends(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}

	profile, err := h.userRepository.GetProfileByAccountID(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}

	authorIDs := []string{claims.AccountID.String()}
	byAccount := map[string]models.Profile{claims.AccountID.String(): *profile}
	for _, conn := range connections {
		id := conn.Friend.AccountID.String()
		authorIDs = append(authorIDs, id)
		byAccount[id] = conn.Friend
	}

	stories, err := h.storyRepository.GetActiveStoriesByUserIDs(c.Request().Context(), authorIDs)
	if err != nil {
		return respondError(c, err)
	}

	grouped := make(map[string][]models.Story)
	order := make([]string, 0)
	for _, s := range stories {
		if _, seen := grouped[s.UserID]; !seen {
			order = append(order, s.UserID)
		}
		grouped[s.UserID] = append(grouped[s.UserID], s)
	}

	groups := make([]models.StoryGroup, 0, len(order))
	for _, userID := range order {
		groups = append(groups, models.StoryGroup{
			Author:  byAccount[userID],
			Stories: grouped[userID],
		})
	}
	return respondOK(c, http.StatusOK, groups)
}

// DeleteStory deletes a story; owner only
func (h *StoryHandler) DeleteStory(c echo.Context) error {
	claims := currentClaims(c)

	err := h.storyRepository.DeleteStory(c.Request().Context(), c.Param("id"), claims.AccountID.String())
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]string{"message": "story deleted"})
}
