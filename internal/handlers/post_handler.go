package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/onlyfriends/server/internal/models"
	"github.com/onlyfriends/server/internal/repositories"
)

const temporaryPostLifetime = 24 * time.Hour

// PostHandler handles posts and the connection-scoped feed
type PostHandler struct {
	postRepository       repositories.PostRepository
	postViewRepository   repositories.PostViewRepository
	userRepository       repositories.UserRepository
	connectionRepository repositories.ConnectionRepository
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(
	postRepo repositories.PostRepository,
	postViewRepo repositories.PostViewRepository,
	userRepo repositories.UserRepository,
	connectionRepo repositories.ConnectionRepository,
) *PostHandler {
	return &PostHandler{
		postRepository:       postRepo,
		postViewRepository:   postViewRepo,
		userRepository:       userRepo,
		connectionRepository: connectionRepo,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/feed", h.GetFeed)
	g.GET("/posts/:id", h.GetPost)
	g.GET("/users/:id/posts", h.GetUserPosts)
	g.POST("/posts/:id/view", h.MarkViewed)
	g.GET("/posts/:id/viewers", h.GetViewers)
	g.PUT("/posts/:id/archive", h.ArchivePost)
	g.DELETE("/posts/:id", h.DeletePost)
}

// CreatePost creates a new post; temporary posts expire after 24 hours
func (h *PostHandler) CreatePost(c echo.Context) error {
	claims := currentClaims(c)

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}

	post := &models.Post{
		UserID:      claims.AccountID.String(),
		Content:     req.Content,
		ImageURL:    req.ImageURL,
		IsTemporary: req.IsTemporary,
	}
	if req.IsTemporary {
		expiresAt := time.Now().Add(temporaryPostLifetime)
		post.ExpiresAt = &expiresAt
	}

	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusCreated, post)
}

// GetFeed returns unexpired posts by the caller and their connections,
// newest first, with author profiles and viewed flags attached
func (h *PostHandler) GetFeed(c echo.Context) error {
	claims := currentClaims(c)
	ctx := c.Request().Context()

	connections, err := h.connectionRepository.GetAcceptedWithFriends(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}

	authorIDs := []string{claims.AccountID.String()}
	for _, conn := range connections {
		authorIDs = append(authorIDs, conn.Friend.AccountID.String())
	}

	skip, limit := pagination(c)
	posts, err := h.postRepository.GetFeedPosts(ctx, authorIDs, skip, limit)
	if err != nil {
		return respondError(c, err)
	}

	feed, err := h.decorate(c, posts)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, feed)
}

// GetPost returns a single post if the caller may see it
func (h *PostHandler) GetPost(c echo.Context) error {
	claims := currentClaims(c)

	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := h.authorizeView(c, post); err != nil {
		return respondError(c, err)
	}
	if claims.AccountID.String() != post.UserID && post.IsTemporary && post.ExpiresAt != nil && post.ExpiresAt.Before(time.Now()) {
		return respondError(c, repositories.ErrNotFound)
	}
	return respondOK(c, http.StatusOK, post)
}

// GetUserPosts returns one user's posts; visible to the owner and their
// connections
func (h *PostHandler) GetUserPosts(c echo.Context) error {
	claims := currentClaims(c)

	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid user ID")
	}

	if authorID != claims.AccountID {
		connected, err := h.connectionRepository.IsConnected(claims.AccountID, authorID)
		if err != nil {
			return respondError(c, err)
		}
		if !connected {
			return respondError(c, repositories.ErrForbidden)
		}
	}

	skip, limit := pagination(c)
	posts, err := h.postRepository.GetPostsByUserID(c.Request().Context(), authorID.String(), skip, limit)
	if err != nil {
		return respondError(c, err)
	}

	feed, err := h.decorate(c, posts)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, feed)
}

// MarkViewed records that the caller has seen the post, once per viewer
func (h *PostHandler) MarkViewed(c echo.Context) error {
	claims := currentClaims(c)

	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := h.authorizeView(c, post); err != nil {
		return respondError(c, err)
	}

	if err := h.postViewRepository.MarkViewed(post.ID.Hex(), claims.AccountID); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]string{"message": "viewed"})
}

// GetViewers lists profiles of users who viewed the post; owner only
func (h *PostHandler) GetViewers(c echo.Context) error {
	claims := currentClaims(c)

	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if post.UserID != claims.AccountID.String() {
		return respondError(c, repositories.ErrForbidden)
	}

	viewerIDs, err := h.postViewRepository.GetViewers(post.ID.Hex())
	if err != nil {
		return respondError(c, err)
	}
	profiles, err := h.userRepository.GetProfilesByAccountIDs(viewerIDs)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, profiles)
}

// ArchivePost hides a post without deleting it; owner only
func (h *PostHandler) ArchivePost(c echo.Context) error {
	claims := currentClaims(c)

	err := h.postRepository.ArchivePost(c.Request().Context(), c.Param("id"), claims.AccountID.String())
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]string{"message": "post archived"})
}

// DeletePost deletes a post; owner only
func (h *PostHandler) DeletePost(c echo.Context) error {
	claims := currentClaims(c)

	err := h.postRepository.DeletePost(c.Request().Context(), c.Param("id"), claims.AccountID.String())
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]string{"message": "post deleted"})
}

// authorizeView allows the owner and their connections to see a post
func (h *PostHandler) authorizeView(c echo.Context, post *models.Post) error {
	claims := currentClaims(c)
	if post.UserID == claims.AccountID.String() {
		return nil
	}
	authorID, err := parseAccountID(post.UserID)
	if err != nil {
		return err
	}
	connected, err := h.connectionRepository.IsConnected(claims.AccountID, authorID)
	if err != nil {
		return err
	}
	if !connected {
		return repositories.ErrForbidden
	}
	return nil
}

// decorate attaches author profiles and viewed flags to feed posts
func (h *PostHandler) decorate(c echo.Context, posts []models.Post) ([]models.PostWithAuthor, error) {
	claims := currentClaims(c)

	feed := make([]models.PostWithAuthor, 0, len(posts))
	if len(posts) == 0 {
		return feed, nil
	}

	postIDs := make([]string, 0, len(posts))
	authorSet := make(map[string]struct{})
	for _, p := range posts {
		postIDs = append(postIDs, p.ID.Hex())
		authorSet[p.UserID] = struct{}{}
	}

	viewed, err := h.postViewRepository.GetViewedSet(claims.AccountID, postIDs)
	if err != nil {
		return nil, err
	}

	ids, err := accountIDs(authorSet)
	if err != nil {
		return nil, err
	}
	profiles, err := h.userRepository.GetProfilesByAccountIDs(ids)
	if err != nil {
		return nil, err
	}
	byAccount := make(map[string]models.Profile, len(profiles))
	for _, p := range profiles {
		byAccount[p.AccountID.String()] = p
	}

	for _, p := range posts {
		feed = append(feed, models.PostWithAuthor{
			Post:   p,
			Author: byAccount[p.UserID],
			Viewed: viewed[p.ID.Hex()],
		})
	}
	return feed, nil
}

func parseAccountID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, repositories.ErrNotFound
	}
	return id, nil
}

func accountIDs(set map[string]struct{}) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(set))
	for s := range set {
		id, err := parseAccountID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func pagination(c echo.Context) (skip, limit int64) {
	limit = 20
	if l, err := strconv.ParseInt(c.QueryParam("limit"), 10, 64); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if p, err := strconv.ParseInt(c.QueryParam("page"), 10, 64); err == nil && p > 1 {
		skip = (p - 1) * limit
	}
	return skip, limit
}
