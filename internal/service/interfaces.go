package service

import (
	"context"
	"io"
	"time"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/dto"
)

// AuthService defines methods for registration and the session lifecycle.
// Every error it returns is a *domain.Error.
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest, avatar *dto.FileUpload) (*domain.User, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*domain.Session, error)
	Logout(ctx context.Context, user *domain.User) error
	RefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
}

// AccountService defines operations on the authenticated user's account and
// the aggregated channel views. Every error it returns is a *domain.Error.
type AccountService interface {
	ChangePassword(ctx context.Context, user *domain.User, req *dto.ChangePasswordRequest) error
	UpdateUsername(ctx context.Context, user *domain.User, req *dto.UpdateUsernameRequest) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User, req *dto.UpdateProfileRequest) (*domain.User, error)
	UpdateContact(ctx context.Context, user *domain.User, req *dto.UpdateContactRequest) (*domain.User, error)
	UpdateAddress(ctx context.Context, user *domain.User, req *dto.UpdateAddressRequest) (*domain.User, error)
	UpdateAvatar(ctx context.Context, user *domain.User, avatar *dto.FileUpload) (*domain.User, error)
	ChannelProfile(ctx context.Context, viewer *domain.User, username string) (*domain.ChannelProfile, error)
	WatchHistory(ctx context.Context, user *domain.User) ([]domain.HistoryEntry, error)
}

// MediaStore stores uploaded files and addresses them by URL
type MediaStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, objectURL string) error
}

// TokenLedger remembers digests of refresh tokens that were replaced or
// revoked, for as long as those tokens would otherwise have been valid.
type TokenLedger interface {
	Supersede(ctx context.Context, digest string, ttl time.Duration) error
	WasSuperseded(ctx context.Context, digest string) (bool, error)
}

// Limiter decides whether another request under key fits in the window
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}
