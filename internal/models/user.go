package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account represents a registered phone identity. One account per phone
// number; the phone number is immutable after registration.
type Account struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	PhoneNumber  string    `json:"phone_number" gorm:"size:20;uniqueIndex"`
	PasswordHash string    `json:"-"`
	IsVerified   bool      `json:"is_verified" gorm:"default:true"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Profile *Profile `json:"profile,omitempty" gorm:"foreignKey:AccountID"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Profile is the user-editable half of an account. ConnectionCap only ever
// moves up through the invite tiers (15 -> 25 -> 35 -> 50).
type Profile struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	AccountID        uuid.UUID `json:"account_id" gorm:"type:uuid;uniqueIndex"`
	FirstName        string    `json:"first_name" gorm:"size:50"`
	LastName         string    `json:"last_name" gorm:"size:50"`
	Username         string    `json:"username,omitempty" gorm:"size:30;index"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	Bio              string    `json:"bio,omitempty" gorm:"size:150"`
	ConnectionCap    int       `json:"connection_cap" gorm:"default:15"`
	InvitesSentCount int       `json:"invites_sent_count" gorm:"default:0"`
	NotifyRequests   bool      `json:"notify_requests" gorm:"default:true"`
	NotifyMessages   bool      `json:"notify_messages" gorm:"default:true"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// SendCodeRequest defines the request body for requesting a verification code
type SendCodeRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
}

// VerifyCodeRequest defines the request body for submitting a verification code
type VerifyCodeRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
}

// RegisterRequest defines the request body for completing registration after
// the phone number has been verified
type RegisterRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	FirstName   string `json:"first_name" validate:"required,min=1,max=50"`
	LastName    string `json:"last_name" validate:"required,min=1,max=50"`
	Username    string `json:"username,omitempty" validate:"omitempty,min=3,max=30,alphanum"`
	Password    string `json:"password" validate:"required,min=8"`
	Bio         string `json:"bio,omitempty" validate:"omitempty,max=150"`
	InviteCode  string `json:"invite_code,omitempty"`
}

// LoginRequest defines the request body for phone + password login
type LoginRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Password    string `json:"password" validate:"required"`
}

// RefreshRequest defines the request body for rotating a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UpdateProfileRequest defines the request body for editing the caller's profile
type UpdateProfileRequest struct {
	FirstName      *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=50"`
	LastName       *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=50"`
	Username       *string `json:"username,omitempty" validate:"omitempty,min=3,max=30,alphanum"`
	AvatarURL      *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Bio            *string `json:"bio,omitempty" validate:"omitempty,max=150"`
	NotifyRequests *bool   `json:"notify_requests,omitempty"`
	NotifyMessages *bool   `json:"notify_messages,omitempty"`
}

// AuthResponse is returned by verify-code, register, login and refresh.
// UserID and the token pair are empty when a new user still has to register.
type AuthResponse struct {
	UserID       string `json:"user_id,omitempty"`
	PhoneNumber  string `json:"phone_number"`
	IsVerified   bool   `json:"is_verified"`
	IsNewUser    bool   `json:"is_new_user"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	AccountID   uuid.UUID `json:"account_id"`
	PhoneNumber string    `json:"phone_number"`
	jwt.RegisteredClaims
}
