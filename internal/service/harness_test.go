package service_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/dto"
	"github.com/prperemyshlev/account-service/internal/service"
	"github.com/prperemyshlev/account-service/internal/testutil"
	"github.com/prperemyshlev/account-service/internal/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAccessSecret  = "access-secret-key-that-is-at-least-32-chars"
	testRefreshSecret = "refresh-secret-key-that-is-at-least-32-chars"
	testMaxAvatar     = 1024
)

type harness struct {
	users    *testutil.UserStore
	channels *testutil.ChannelStore
	media    *testutil.MediaStore
	ledger   *testutil.Ledger
	jwt      *utils.JWTManager
	auth     service.AuthService
	account  service.AccountService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		users:    testutil.NewUserStore(),
		channels: testutil.NewChannelStore(),
		media:    testutil.NewMediaStore(),
		ledger:   testutil.NewLedger(),
		jwt:      utils.NewJWTManager(testAccessSecret, testRefreshSecret, 15*time.Minute, 24*time.Hour),
	}

	logger := zap.NewNop()
	sessions := service.NewSessionManager(h.users, h.jwt, h.ledger, nil, logger)
	deps := service.AuthDeps{
		Users:          h.users,
		Channels:       h.channels,
		JWT:            h.jwt,
		Sessions:       sessions,
		Hasher:         utils.NewPasswordHasher(bcrypt.MinCost),
		Validator:      utils.NewValidator(),
		Media:          h.media,
		AvatarPrefix:   "avatars",
		MaxAvatarBytes: testMaxAvatar,
		Logger:         logger,
	}
	h.auth = service.NewAuthService(deps)
	h.account = service.NewAccountService(deps)

	return h
}

func avatar(size int) *dto.FileUpload {
	return &dto.FileUpload{
		Filename:    "me.PNG",
		ContentType: "image/png",
		Size:        int64(size),
		Content:     bytes.NewReader(bytes.Repeat([]byte{0x89}, size)),
	}
}

func registration(username string) *dto.RegisterRequest {
	return &dto.RegisterRequest{
		FirstName: "Alice",
		LastName:  "Liddell",
		Email:     username + "@example.com",
		Username:  username,
		Password:  "Secret1!",
	}
}

// register creates an account and logs it in
func (h *harness) register(t *testing.T, username string) (*domain.User, *domain.Session) {
	t.Helper()

	ctx := t.Context()
	user, err := h.auth.Register(ctx, registration(username), avatar(16))
	require.NoError(t, err)

	session, err := h.auth.Login(ctx, &dto.LoginRequest{Username: username, Password: "Secret1!"})
	require.NoError(t, err)

	return user, session
}

func requireKind(t *testing.T, err error, kind domain.Kind) *domain.Error {
	t.Helper()

	require.Error(t, err)
	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	require.Equal(t, kind, derr.Kind, "error: %v", err)
	return derr
}
