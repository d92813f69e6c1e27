package service_test

import (
	"testing"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/dto"
	"github.com/prperemyshlev/account-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	h := newHarness(t)

	req := registration("Alice")
	req.Email = "  Alice@Example.com "
	user, err := h.auth.Register(t.Context(), req, avatar(16))
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, domain.StatusActive, user.Status)
	assert.NotEqual(t, "Secret1!", user.PasswordHash)
	assert.Empty(t, user.RefreshTokenHash)
	assert.Contains(t, user.Profile.Avatar, "https://cdn.test/avatars/alice/")
	assert.True(t, h.media.Stored(user.Profile.Avatar))
	assert.Equal(t, 1, h.users.Count())
}

func TestRegisterReportsEveryProblem(t *testing.T) {
	h := newHarness(t)

	req := &dto.RegisterRequest{Email: "not-an-email", Username: "  ", Password: "\t "}
	_, err := h.auth.Register(t.Context(), req, nil)

	derr := requireKind(t, err, domain.KindInvalidInput)
	assert.Equal(t, "All fields are required and must be valid", derr.Message)
	assert.Contains(t, derr.Details, "firstName is required")
	assert.Contains(t, derr.Details, "email must be a valid email")
	assert.Contains(t, derr.Details, "username is required")
	assert.Contains(t, derr.Details, "password is required")
	assert.Contains(t, derr.Details, "avatar file is required")
	assert.Len(t, derr.Details, 5)
	assert.Zero(t, h.users.Count())
	assert.Zero(t, h.media.Len())
}

func TestRegisterAcceptsShortOrPlainCredentials(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		username string
		email    string
		password string
		stored   string
	}{
		{"al", "al@example.com", "Secret1!", "al"},
		{"bobby", "bobby@example.com", "password", "bobby"},
		{"Cy Smith", "cy@example.com", "Secret1!", "cy smith"},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			req := registration(tt.username)
			req.Email = tt.email
			req.Password = tt.password
			user, err := h.auth.Register(t.Context(), req, avatar(16))
			require.NoError(t, err)
			assert.Equal(t, tt.stored, user.Username)

			_, err = h.auth.Login(t.Context(), &dto.LoginRequest{Username: tt.username, Password: tt.password})
			require.NoError(t, err)
		})
	}
}

func TestRegisterRejectsOversizedAvatar(t *testing.T) {
	h := newHarness(t)

	_, err := h.auth.Register(t.Context(), registration("alice"), avatar(testMaxAvatar+1))

	derr := requireKind(t, err, domain.KindInvalidInput)
	assert.Equal(t, []string{"avatar must be at most 1024 bytes"}, derr.Details)
	assert.Zero(t, h.users.Count())
	assert.Zero(t, h.media.Len())
}

func TestRegisterConflict(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")

	sameUsername := registration("alice")
	sameUsername.Email = "other@example.com"
	_, err := h.auth.Register(t.Context(), sameUsername, avatar(16))
	derr := requireKind(t, err, domain.KindConflict)
	assert.Equal(t, "User with email or username already exists", derr.Message)

	sameEmail := registration("bob")
	sameEmail.Email = "ALICE@example.com"
	_, err = h.auth.Register(t.Context(), sameEmail, avatar(16))
	requireKind(t, err, domain.KindConflict)

	assert.Equal(t, 1, h.users.Count())
	assert.Equal(t, 1, h.media.Len())
}

func TestRegisterUploadFailureCreatesNothing(t *testing.T) {
	h := newHarness(t)
	h.media.FailNext = true

	_, err := h.auth.Register(t.Context(), registration("alice"), avatar(16))

	derr := requireKind(t, err, domain.KindInternal)
	assert.Equal(t, "Failed to upload avatar", derr.Message)
	assert.ErrorIs(t, err, testutil.ErrUploadFailed)
	assert.Zero(t, h.users.Count())
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	user, _ := h.register(t, "alice")

	tests := []struct {
		name string
		req  dto.LoginRequest
	}{
		{"by username", dto.LoginRequest{Username: "alice", Password: "Secret1!"}},
		{"by email", dto.LoginRequest{Email: "ALICE@example.com", Password: "Secret1!"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := h.auth.Login(t.Context(), &tt.req)
			require.NoError(t, err)

			assert.Equal(t, user.ID, session.User.ID)
			assert.NotEmpty(t, session.Tokens.AccessToken)
			assert.NotEmpty(t, session.Tokens.RefreshToken)

			claims, err := h.jwt.ValidateAccessToken(session.Tokens.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, user.ID, claims.UserID)
			assert.Equal(t, "alice", claims.Username)
		})
	}
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")

	_, err := h.auth.Login(t.Context(), &dto.LoginRequest{Username: "nobody", Password: "Secret1!"})
	derr := requireKind(t, err, domain.KindNotFound)
	assert.Equal(t, "User does not exist", derr.Message)

	_, err = h.auth.Login(t.Context(), &dto.LoginRequest{Username: "alice", Password: "Wrong1!x"})
	derr = requireKind(t, err, domain.KindUnauthorized)
	assert.Equal(t, "Invalid user credentials", derr.Message)

	_, err = h.auth.Login(t.Context(), &dto.LoginRequest{Password: "Secret1!"})
	requireKind(t, err, domain.KindInvalidInput)
}

func TestLoginRejectsSuspendedAccount(t *testing.T) {
	h := newHarness(t)
	user, _ := h.register(t, "alice")

	stored, err := h.users.GetByID(t.Context(), user.ID)
	require.NoError(t, err)
	stored.Status = domain.StatusSuspended
	h.users.Put(stored)

	_, err = h.auth.Login(t.Context(), &dto.LoginRequest{Username: "alice", Password: "Secret1!"})
	requireKind(t, err, domain.KindUnauthorized)
}

func TestLoginReplacesPreviousSession(t *testing.T) {
	h := newHarness(t)
	_, first := h.register(t, "alice")

	_, err := h.auth.Login(t.Context(), &dto.LoginRequest{Username: "alice", Password: "Secret1!"})
	require.NoError(t, err)

	_, err = h.auth.RefreshToken(t.Context(), first.Tokens.RefreshToken)
	derr := requireKind(t, err, domain.KindUnauthorized)
	assert.Equal(t, "Refresh token is expired or used", derr.Message)
}

func TestRefreshTokenRotation(t *testing.T) {
	h := newHarness(t)
	user, session := h.register(t, "alice")

	rotated, err := h.auth.RefreshToken(t.Context(), session.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, rotated.User.ID)
	assert.NotEqual(t, session.Tokens.RefreshToken, rotated.Tokens.RefreshToken)

	_, err = h.auth.RefreshToken(t.Context(), session.Tokens.RefreshToken)
	requireKind(t, err, domain.KindUnauthorized)

	again, err := h.auth.RefreshToken(t.Context(), rotated.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, again.Tokens.AccessToken)

	assert.GreaterOrEqual(t, h.ledger.Len(), 2)
}

func TestRefreshTokenRejectsGarbage(t *testing.T) {
	h := newHarness(t)
	_, session := h.register(t, "alice")

	for _, token := range []string{"", "   ", "not-a-jwt", session.Tokens.AccessToken} {
		_, err := h.auth.RefreshToken(t.Context(), token)
		requireKind(t, err, domain.KindUnauthorized)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	h := newHarness(t)
	user, session := h.register(t, "alice")

	require.NoError(t, h.auth.Logout(t.Context(), user))

	_, err := h.auth.RefreshToken(t.Context(), session.Tokens.RefreshToken)
	requireKind(t, err, domain.KindUnauthorized)

	stored, err := h.users.GetByID(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshTokenHash)
}

func TestAuthenticate(t *testing.T) {
	h := newHarness(t)
	user, session := h.register(t, "alice")

	got, err := h.auth.Authenticate(t.Context(), session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = h.auth.Authenticate(t.Context(), "")
	requireKind(t, err, domain.KindUnauthorized)

	_, err = h.auth.Authenticate(t.Context(), session.Tokens.RefreshToken)
	derr := requireKind(t, err, domain.KindUnauthorized)
	assert.Equal(t, "Invalid access token", derr.Message)
}
