package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/onlyfriends/server/internal/auth"
	"github.com/onlyfriends/server/internal/models"
	"github.com/onlyfriends/server/internal/repositories"
	"golang.org/x/crypto/bcrypt"
)

const refreshTokenExpiry = 30 * 24 * time.Hour

// AuthHandler handles phone verification, registration, login and token rotation
type AuthHandler struct {
	userRepository    repositories.UserRepository
	refreshRepository repositories.RefreshRepository
	inviteRepository  repositories.InviteRepository
	notificationRepo  repositories.NotificationRepository
	otpProvider       auth.OtpProvider
	jwtService        *auth.JWTService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	userRepo repositories.UserRepository,
	refreshRepo repositories.RefreshRepository,
	inviteRepo repositories.InviteRepository,
	notificationRepo repositories.NotificationRepository,
	otpProvider auth.OtpProvider,
	jwtService *auth.JWTService,
) *AuthHandler {
	return &AuthHandler{
		userRepository:    userRepo,
		refreshRepository: refreshRepo,
		inviteRepository:  inviteRepo,
		notificationRepo:  notificationRepo,
		otpProvider:       otpProvider,
		jwtService:        jwtService,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/send-code", h.SendCode)
	g.POST("/verify-code", h.VerifyCode)
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
}

// SendCode requests a one-time verification code for a phone number
func (h *AuthHandler) SendCode(c echo.Context) error {
	var req models.SendCodeRequest
	if err := c.Bind(&req); err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}

	phone, err := auth.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, err.Error())
	}

	if err := h.otpProvider.RequestCode(c.Request().Context(), phone); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]string{"phone_number": phone})
}

// VerifyCode submits a one-time code. Existing accounts get a session;
// first-time numbers get a verified-phone claim and must register.
func (h *AuthHandler) VerifyCode(c echo.Context) error {
	var req models.VerifyCodeRequest
	if err := c.Bind(&req); err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}

	phone, err := auth.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if err := h.otpProvider.VerifyCode(ctx, phone, req.Code); err != nil {
		return respondError(c, err)
	}

	account, err := h.userRepository.GetAccountByPhone(phone)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return respondError(c, err)
		}
		// New user: no account or session yet, just the verified phone claim.
		if err := h.otpProvider.MarkVerified(ctx, phone); err != nil {
			return respondError(c, err)
		}
		return respondOK(c, http.StatusOK, models.AuthResponse{
			PhoneNumber: phone,
			IsVerified:  true,
			IsNewUser:   true,
		})
	}

	resp, err := h.issueTokens(account, false)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, resp)
}

// Register completes registration for a phone number that was just verified
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}

	phone, err := auth.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	verified, err := h.otpProvider.ConsumeVerifiedClaim(ctx, phone)
	if err != nil {
		return respondError(c, err)
	}
	if !verified {
		return respondErrorMsg(c, http.StatusForbidden, "Phone number has not been verified")
	}

	if _, err := h.userRepository.GetAccountByPhone(phone); err == nil {
		return respondErrorMsg(c, http.StatusConflict, repositories.ErrPhoneTaken.Error())
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return respondError(c, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, fmt.Errorf("hash password: %w", err))
	}

	account := &models.Account{
		PhoneNumber:  phone,
		PasswordHash: string(hashedPassword),
		IsVerified:   true,
		IsActive:     true,
	}
	profile := &models.Profile{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Username:       req.Username,
		Bio:            req.Bio,
		ConnectionCap:  models.CapForInvites(0),
		NotifyRequests: true,
		NotifyMessages: true,
	}
	if err := h.userRepository.CreateAccountWithProfile(account, profile); err != nil {
		return respondError(c, err)
	}

	if req.InviteCode != "" {
		h.claimInvite(c, req.InviteCode, account, profile)
	}

	resp, err := h.issueTokens(account, true)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusCreated, resp)
}

// claimInvite consumes the invite code and notifies the issuer. A code that
// was claimed by someone else in the meantime does not fail the registration.
func (h *AuthHandler) claimInvite(c echo.Context, code string, account *models.Account, profile *models.Profile) {
	claimed, err := h.inviteRepository.Claim(code, account.ID)
	if err != nil {
		c.Logger().Warnf("invite claim failed for account %s: %v", account.ID, err)
		return
	}
	notification := &models.Notification{
		Type:        models.NotificationTypeInviteJoined,
		ActorID:     account.ID,
		RecipientID: claimed.CreatedByUserID,
		Message:     fmt.Sprintf("%s %s joined with your invite", profile.FirstName, profile.LastName),
	}
	if err := h.notificationRepo.CreateNotification(notification); err != nil {
		c.Logger().Warnf("invite notification failed: %v", err)
	}
}

// Login authenticates with phone number and password
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}

	phone, err := auth.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, err.Error())
	}

	account, err := h.userRepository.GetAccountByPhone(phone)
	if err != nil {
		// Same response as a bad password so the endpoint does not confirm
		// which phone numbers are registered.
		return respondErrorMsg(c, http.StatusUnauthorized, "Invalid phone number or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return respondErrorMsg(c, http.StatusUnauthorized, "Invalid phone number or password")
	}
	if !account.IsActive {
		return respondErrorMsg(c, http.StatusForbidden, "Account is deactivated")
	}

	resp, err := h.issueTokens(account, false)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, resp)
}

// Refresh rotates a refresh token. Presenting an already-rotated token is
// treated as theft and revokes every session of the account.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req models.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}

	tokenHash := auth.HashRefreshToken(req.RefreshToken)
	session, err := h.refreshRepository.FindActiveByTokenHash(tokenHash)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			if stale, lookupErr := h.refreshRepository.FindByTokenHashIncludeRevoked(tokenHash); lookupErr == nil && stale.RevokedAt != nil {
				c.Logger().Warnf("refresh token reuse detected for account %s", stale.AccountID)
				_ = h.refreshRepository.RevokeAllForAccount(stale.AccountID)
			}
			return respondErrorMsg(c, http.StatusUnauthorized, "Invalid refresh token")
		}
		return respondError(c, err)
	}

	account, err := h.userRepository.GetAccountByID(session.AccountID)
	if err != nil {
		return respondErrorMsg(c, http.StatusUnauthorized, "Invalid refresh token")
	}

	newToken, newHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return respondError(c, err)
	}
	newSession, err := h.refreshRepository.Create(account.ID, newHash, time.Now().Add(refreshTokenExpiry))
	if err != nil {
		return respondError(c, err)
	}
	if err := h.refreshRepository.RevokeAndSetReplacedBy(session.ID, newSession.ID); err != nil {
		return respondError(c, err)
	}

	accessToken, err := h.jwtService.SignAccessToken(account.ID, account.PhoneNumber)
	if err != nil {
		return respondError(c, err)
	}

	return respondOK(c, http.StatusOK, models.AuthResponse{
		UserID:       account.ID.String(),
		PhoneNumber:  account.PhoneNumber,
		IsVerified:   account.IsVerified,
		AccessToken:  accessToken,
		RefreshToken: newToken,
		TokenType:    "Bearer",
	})
}

// Logout revokes the presented refresh session
func (h *AuthHandler) Logout(c echo.Context) error {
	var req models.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}

	session, err := h.refreshRepository.FindActiveByTokenHash(auth.HashRefreshToken(req.RefreshToken))
	if err != nil {
		// Logout is idempotent; an unknown token is already logged out.
		return respondOK(c, http.StatusOK, map[string]string{"message": "logged out"})
	}
	if err := h.refreshRepository.Revoke(session.ID); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]string{"message": "logged out"})
}

// issueTokens signs an access token and opens a refresh session for the account
func (h *AuthHandler) issueTokens(account *models.Account, isNewUser bool) (*models.AuthResponse, error) {
	accessToken, err := h.jwtService.SignAccessToken(account.ID, account.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, refreshHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if _, err := h.refreshRepository.Create(account.ID, refreshHash, time.Now().Add(refreshTokenExpiry)); err != nil {
		return nil, fmt.Errorf("store refresh session: %w", err)
	}
	return &models.AuthResponse{
		UserID:       account.ID.String(),
		PhoneNumber:  account.PhoneNumber,
		IsVerified:   account.IsVerified,
		IsNewUser:    isNewUser,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}, nil
}
