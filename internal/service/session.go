package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/repository"
	"github.com/prperemyshlev/account-service/internal/utils"
	"github.com/prperemyshlev/account-service/pkg/observability"
	"go.uber.org/zap"
)

// SessionManager is the only place refresh tokens are issued, rotated or
// revoked. The user record holds the digest of the single valid refresh token.
type SessionManager struct {
	users   repository.UserRepository
	tokens  *utils.JWTManager
	ledger  TokenLedger
	metrics *observability.AuthMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewSessionManager creates a new session manager
func NewSessionManager(
	users repository.UserRepository,
	tokens *utils.JWTManager,
	ledger TokenLedger,
	metrics *observability.AuthMetrics,
	logger *zap.Logger,
) *SessionManager {
	return &SessionManager{
		users:   users,
		tokens:  tokens,
		ledger:  ledger,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// IssuePair mints a fresh token pair and makes its refresh token the only
// valid one for the user.
func (m *SessionManager) IssuePair(ctx context.Context, user *domain.User) (domain.TokenPair, error) {
	pair, err := m.mint(user)
	if err != nil {
		return domain.TokenPair{}, err
	}

	previous, err := m.users.SetRefreshToken(ctx, user.ID, digest(pair.RefreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.TokenPair{}, domain.NotFound("User does not exist")
		}
		return domain.TokenPair{}, domain.Internal("Something went wrong while generating tokens", err)
	}
	user.RefreshTokenHash = digest(pair.RefreshToken)

	if previous != "" {
		m.supersede(ctx, previous, m.tokens.RefreshTokenExpiry())
	}

	return pair, nil
}

// Rotate exchanges a valid refresh token for a new pair. The presented token
// stops being valid the moment the new one is stored.
func (m *SessionManager) Rotate(ctx context.Context, presented string) (*domain.Session, error) {
	if presented == "" {
		return nil, domain.Unauthorized("Unauthorized request")
	}

	claims, err := m.tokens.ValidateRefreshToken(presented)
	if err != nil {
		m.metrics.Rotation(ctx, "invalid")
		return nil, domain.Unauthorized("Invalid refresh token")
	}

	user, err := m.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			m.metrics.Rotation(ctx, "invalid")
			return nil, domain.Unauthorized("Invalid refresh token")
		}
		return nil, domain.Internal("Something went wrong while refreshing tokens", err)
	}

	if !user.Status.CanSignIn() {
		m.metrics.Rotation(ctx, "inactive")
		return nil, domain.Unauthorized("Account is " + string(user.Status))
	}

	presentedDigest := digest(presented)
	if user.RefreshTokenHash == "" || user.RefreshTokenHash != presentedDigest {
		m.reportMismatch(ctx, user.ID, presentedDigest)
		return nil, domain.Unauthorized("Refresh token is expired or used")
	}

	pair, err := m.mint(user)
	if err != nil {
		return nil, err
	}

	newDigest := digest(pair.RefreshToken)
	if err := m.users.SwapRefreshToken(ctx, user.ID, presentedDigest, newDigest); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenMismatch) || errors.Is(err, repository.ErrNotFound) {
			m.metrics.Rotation(ctx, "lost_race")
			return nil, domain.Unauthorized("Refresh token is expired or used")
		}
		return nil, domain.Internal("Something went wrong while refreshing tokens", err)
	}
	user.RefreshTokenHash = newDigest

	remaining := time.Duration(0)
	if claims.ExpiresAt != nil {
		remaining = claims.ExpiresAt.Sub(m.now())
	}
	m.supersede(ctx, presentedDigest, remaining)
	m.metrics.Rotation(ctx, "rotated")

	return &domain.Session{User: user, Tokens: pair}, nil
}

// Invalidate removes the stored refresh token so the user cannot refresh
// until the next login.
func (m *SessionManager) Invalidate(ctx context.Context, userID string) error {
	previous, err := m.users.ClearRefreshToken(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Unauthorized("Unauthorized request")
		}
		return domain.Internal("Something went wrong while logging out", err)
	}

	if previous != "" {
		m.supersede(ctx, previous, m.tokens.RefreshTokenExpiry())
	}
	return nil
}

func (m *SessionManager) mint(user *domain.User) (domain.TokenPair, error) {
	access, accessExp, err := m.tokens.GenerateAccessToken(user)
	if err != nil {
		return domain.TokenPair{}, domain.Internal("Something went wrong while generating tokens", err)
	}

	refresh, refreshExp, err := m.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return domain.TokenPair{}, domain.Internal("Something went wrong while generating tokens", err)
	}

	return domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// reportMismatch distinguishes replay of a superseded token from an unknown
// token. Neither outcome changes the stored session.
func (m *SessionManager) reportMismatch(ctx context.Context, userID, presentedDigest string) {
	if m.ledger == nil {
		m.metrics.Rotation(ctx, "mismatch")
		return
	}

	reused, err := m.ledger.WasSuperseded(ctx, presentedDigest)
	if err != nil {
		m.logger.Warn("failed to check refresh token ledger", zap.String("user_id", userID), zap.Error(err))
	}
	if reused {
		m.logger.Warn("superseded refresh token presented", zap.String("user_id", userID))
		m.metrics.RefreshReuse(ctx)
		m.metrics.Rotation(ctx, "reused")
		return
	}
	m.metrics.Rotation(ctx, "mismatch")
}

func (m *SessionManager) supersede(ctx context.Context, tokenDigest string, ttl time.Duration) {
	if m.ledger == nil {
		return
	}
	if err := m.ledger.Supersede(ctx, tokenDigest, ttl); err != nil {
		m.logger.Warn("failed to record superseded refresh token", zap.Error(err))
	}
}

// digest hashes a token using SHA256
func digest(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
