package dto

import (
	"time"

	"github.com/prperemyshlev/account-service/internal/domain"
)

// Envelope wraps every successful response
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorEnvelope wraps every failed response
type ErrorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// UserResponse is the public view of a user. It has no password or refresh token field.
type UserResponse struct {
	ID           string          `json:"_id"`
	Username     string          `json:"username"`
	Email        string          `json:"email"`
	Profile      domain.Profile  `json:"profile"`
	Contact      *domain.Contact `json:"contact,omitempty"`
	Address      *domain.Address `json:"address,omitempty"`
	Status       domain.Status   `json:"status"`
	Role         string          `json:"role,omitempty"`
	WatchHistory []string        `json:"watchHistory"`
	CreatedAt    string          `json:"createdAt"`
	UpdatedAt    string          `json:"updatedAt"`
	LastLoginAt  *string         `json:"lastLoginAt,omitempty"`
}

func NewUserResponse(u *domain.User) UserResponse {
	history := u.WatchHistory
	if history == nil {
		history = []string{}
	}

	resp := UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Profile:      u.Profile,
		Contact:      u.Contact,
		Address:      u.Address,
		Status:       u.Status,
		Role:         u.RoleID,
		WatchHistory: history,
		CreatedAt:    u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    u.UpdatedAt.Format(time.RFC3339),
	}

	if u.LastLoginAt != nil {
		lastLogin := u.LastLoginAt.Format(time.RFC3339)
		resp.LastLoginAt = &lastLogin
	}

	return resp
}

// LoginResponse is returned by login
type LoginResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// TokenResponse is returned by refresh
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
