package repository

import (
	"context"

	"github.com/prperemyshlev/account-service/internal/domain"
)

// UserRepository defines methods for user operations. Refresh token values are
// digests; the repository never sees a raw token.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByLogin(ctx context.Context, username, email string) (*domain.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id string) error

	// SetRefreshToken overwrites the stored digest and returns the previous one.
	SetRefreshToken(ctx context.Context, id, digest string) (string, error)
	// SwapRefreshToken replaces expected with next atomically. It returns
	// ErrRefreshTokenMismatch when the stored digest is not expected.
	SwapRefreshToken(ctx context.Context, id, expected, next string) error
	// ClearRefreshToken removes the stored digest and returns it.
	ClearRefreshToken(ctx context.Context, id string) (string, error)

	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateUsername(ctx context.Context, id, username string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error)
	UpdateContact(ctx context.Context, id string, contact domain.Contact) (*domain.User, error)
	UpdateAddress(ctx context.Context, id string, address domain.Address) (*domain.User, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) (*domain.User, error)
}

// ChannelRepository defines the aggregated read models
type ChannelRepository interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]domain.HistoryEntry, error)
}
