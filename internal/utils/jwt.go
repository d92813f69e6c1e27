package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/account-service/internal/domain"
)

var (
	// ErrTokenExpired is returned when a token is well formed but past its expiry
	ErrTokenExpired = errors.New("token is expired")

	// ErrTokenInvalid covers bad signatures, unexpected algorithms, malformed tokens and missing subjects
	ErrTokenInvalid = errors.New("token is invalid")
)

// AccessClaims are carried by short-lived access tokens
type AccessClaims struct {
	UserID    string `json:"_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	jwt.RegisteredClaims
}

// RefreshClaims are carried by long-lived refresh tokens
type RefreshClaims struct {
	UserID string `json:"_id"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies access and refresh tokens. Each kind has its
// own secret, so a token of one kind never verifies as the other.
type JWTManager struct {
	accessSecret       []byte
	refreshSecret      []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	now                func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(accessSecret, refreshSecret string, accessTokenExpiry, refreshTokenExpiry time.Duration) *JWTManager {
	return &JWTManager{
		accessSecret:       []byte(accessSecret),
		refreshSecret:      []byte(refreshSecret),
		accessTokenExpiry:  accessTokenExpiry,
		refreshTokenExpiry: refreshTokenExpiry,
		now:                time.Now,
	}
}

// GenerateAccessToken signs an access token for the user and returns it with its expiry
func (j *JWTManager) GenerateAccessToken(user *domain.User) (string, time.Time, error) {
	now := j.now()
	expiresAt := now.Add(j.accessTokenExpiry)

	claims := &AccessClaims{
		UserID:           user.ID,
		Email:            user.Email,
		Username:         user.Username,
		FirstName:        user.Profile.FirstName,
		RegisteredClaims: j.registered(user.ID, now, expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, expiresAt, nil
}

// GenerateRefreshToken signs a refresh token for the user id and returns it with its expiry
func (j *JWTManager) GenerateRefreshToken(userID string) (string, time.Time, error) {
	now := j.now()
	expiresAt := now.Add(j.refreshTokenExpiry)

	claims := &RefreshClaims{
		UserID:           userID,
		RegisteredClaims: j.registered(userID, now, expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return signed, expiresAt, nil
}

// ValidateAccessToken verifies an access token and returns its claims
func (j *JWTManager) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenString, claims, j.accessSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ValidateRefreshToken verifies a refresh token and returns its claims
func (j *JWTManager) ValidateRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenString, claims, j.refreshSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// RefreshTokenExpiry returns the lifetime of refresh tokens
func (j *JWTManager) RefreshTokenExpiry() time.Duration {
	return j.refreshTokenExpiry
}

func (j *JWTManager) registered(subject string, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (j *JWTManager) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err == nil {
		return nil
	}
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
}
