package service

import (
	"context"
	"errors"
	"strings"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/dto"
	"github.com/prperemyshlev/account-service/internal/repository"
	"github.com/prperemyshlev/account-service/internal/utils"
	"github.com/prperemyshlev/account-service/pkg/observability"
	"go.uber.org/zap"
)

// authService implements AuthService interface
type authService struct {
	userRepo   repository.UserRepository
	jwtManager *utils.JWTManager
	sessions   *SessionManager
	hasher     *utils.PasswordHasher
	validator  *utils.Validator
	avatars    *avatarStore
	metrics    *observability.AuthMetrics
	logger     *zap.Logger
}

// AuthDeps groups the collaborators shared by the auth and account services
type AuthDeps struct {
	Users          repository.UserRepository
	Channels       repository.ChannelRepository
	JWT            *utils.JWTManager
	Sessions       *SessionManager
	Hasher         *utils.PasswordHasher
	Validator      *utils.Validator
	Media          MediaStore
	AvatarPrefix   string
	MaxAvatarBytes int64
	Metrics        *observability.AuthMetrics
	Logger         *zap.Logger
}

func (d AuthDeps) avatarStore() *avatarStore {
	return &avatarStore{
		media:    d.Media,
		prefix:   d.AvatarPrefix,
		maxBytes: d.MaxAvatarBytes,
		logger:   d.Logger,
	}
}

// NewAuthService creates a new auth service
func NewAuthService(deps AuthDeps) AuthService {
	return &authService{
		userRepo:   deps.Users,
		jwtManager: deps.JWT,
		sessions:   deps.Sessions,
		hasher:     deps.Hasher,
		validator:  deps.Validator,
		avatars:    deps.avatarStore(),
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// Register creates an account with an avatar. Nothing is stored unless every
// input is valid and the username and email are free.
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest, avatar *dto.FileUpload) (*domain.User, error) {
	in := *req
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = utils.NormalizeIdentifier(in.Email)
	in.Username = utils.NormalizeIdentifier(in.Username)

	if err := s.validateRegistration(&in, avatar); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, domain.Internal("Something went wrong while registering the user", err)
	}
	if exists {
		return nil, domain.Conflict("User with email or username already exists")
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, domain.Internal("Something went wrong while registering the user", err)
	}

	avatarURL, err := s.avatars.upload(ctx, in.Username, avatar)
	if err != nil {
		return nil, domain.Internal("Failed to upload avatar", err)
	}

	user := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: passwordHash,
		Profile: domain.Profile{
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Avatar:    avatarURL,
		},
		Status: domain.StatusActive,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.avatars.discard(ctx, avatarURL)
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, domain.Conflict("User with email or username already exists")
		}
		return nil, domain.Internal("Something went wrong while registering the user", err)
	}

	s.metrics.Registered(ctx)
	s.logger.Info("user registered", zap.String("user_id", user.ID))

	return user, nil
}

func (s *authService) validateRegistration(in *dto.RegisterRequest, avatar *dto.FileUpload) error {
	var details []string

	if err := s.validator.Struct(in); err != nil {
		var derr *domain.Error
		if !errors.As(err, &derr) || derr.Kind != domain.KindInvalidInput {
			return err
		}
		details = append(details, derr.Details...)
	}
	if problem := s.avatars.check(avatar); problem != "" {
		details = append(details, problem)
	}

	if len(details) > 0 {
		return domain.InvalidInput("All fields are required and must be valid", details...)
	}
	return nil
}

// Login authenticates a user by username or email
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*domain.Session, error) {
	in := *req
	in.Username = utils.NormalizeIdentifier(in.Username)
	in.Email = utils.NormalizeIdentifier(in.Email)

	if err := s.validator.Struct(&in); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByLogin(ctx, in.Username, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.Login(ctx, "unknown_user")
			return nil, domain.NotFound("User does not exist")
		}
		return nil, domain.Internal("Something went wrong while logging in", err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.metrics.Login(ctx, "bad_password")
		return nil, domain.Unauthorized("Invalid user credentials")
	}

	if !user.Status.CanSignIn() {
		s.metrics.Login(ctx, "inactive")
		return nil, domain.Unauthorized("Account is " + string(user.Status))
	}

	pair, err := s.sessions.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.metrics.Login(ctx, "success")
	return &domain.Session{User: user, Tokens: pair}, nil
}

// Logout revokes the user's refresh token
func (s *authService) Logout(ctx context.Context, user *domain.User) error {
	return s.sessions.Invalidate(ctx, user.ID)
}

// RefreshToken rotates the refresh token
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return s.sessions.Rotate(ctx, strings.TrimSpace(refreshToken))
}

// Authenticate resolves an access token to the current state of its user
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	if accessToken == "" {
		return nil, domain.Unauthorized("Unauthorized request")
	}

	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return nil, domain.Unauthorized("Access token expired")
		}
		return nil, domain.Unauthorized("Invalid access token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Unauthorized("Invalid access token")
		}
		return nil, domain.Internal("Something went wrong while authenticating", err)
	}

	if !user.Status.CanSignIn() {
		return nil, domain.Unauthorized("Account is " + string(user.Status))
	}

	return user, nil
}
