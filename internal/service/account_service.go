package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/dto"
	"github.com/prperemyshlev/account-service/internal/repository"
	"github.com/prperemyshlev/account-service/internal/utils"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type accountService struct {
	userRepo    repository.UserRepository
	channelRepo repository.ChannelRepository
	hasher      *utils.PasswordHasher
	validator   *utils.Validator
	avatars     *avatarStore
	logger      *zap.Logger
	now         func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(deps AuthDeps) AccountService {
	return &accountService{
		userRepo:    deps.Users,
		channelRepo: deps.Channels,
		hasher:      deps.Hasher,
		validator:   deps.Validator,
		avatars:     deps.avatarStore(),
		logger:      deps.Logger,
		now:         time.Now,
	}
}

func (s *accountService) ChangePassword(ctx context.Context, user *domain.User, req *dto.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	if !s.hasher.Verify(req.OldPassword, user.PasswordHash) {
		return domain.InvalidInput("Invalid old password")
	}

	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return domain.Internal("Something went wrong while changing the password", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return userWriteError(err, "Something went wrong while changing the password")
	}
	return nil
}

func (s *accountService) UpdateUsername(ctx context.Context, user *domain.User, req *dto.UpdateUsernameRequest) (*domain.User, error) {
	in := dto.UpdateUsernameRequest{Username: utils.NormalizeIdentifier(req.Username)}
	if err := s.validator.Struct(&in); err != nil {
		return nil, err
	}

	if in.Username == user.Username {
		return user, nil
	}

	taken, err := s.userRepo.ExistsByUsernameOrEmail(ctx, in.Username, "")
	if err != nil {
		return nil, domain.Internal("Something went wrong while updating the username", err)
	}
	if taken {
		return nil, domain.Conflict("Username is already taken")
	}

	updated, err := s.userRepo.UpdateUsername(ctx, user.ID, in.Username)
	if err != nil {
		return nil, userWriteError(err, "Something went wrong while updating the username")
	}
	return updated, nil
}

func (s *accountService) UpdateProfile(ctx context.Context, user *domain.User, req *dto.UpdateProfileRequest) (*domain.User, error) {
	in := dto.UpdateProfileRequest{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		DOB:       strings.TrimSpace(req.DOB),
		Gender:    strings.TrimSpace(req.Gender),
	}

	var details []string
	if err := s.validator.Struct(&in); err != nil {
		var derr *domain.Error
		if !errors.As(err, &derr) || derr.Kind != domain.KindInvalidInput {
			return nil, err
		}
		details = append(details, derr.Details...)
	}

	dob, problem := s.parseDOB(in.DOB)
	if problem != "" {
		details = append(details, problem)
	}
	if len(details) > 0 {
		return nil, domain.InvalidInput("Invalid profile", details...)
	}

	updated, err := s.userRepo.UpdateProfile(ctx, user.ID, domain.ProfileUpdate{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		DOB:       dob,
		Gender:    domain.Gender(in.Gender),
	})
	if err != nil {
		return nil, userWriteError(err, "Something went wrong while updating the profile")
	}
	return updated, nil
}

// parseDOB accepts YYYY-MM-DD or RFC3339 and rejects dates in the future.
func (s *accountService) parseDOB(v string) (*time.Time, string) {
	if v == "" {
		return nil, ""
	}

	t, err := time.Parse(dateLayout, v)
	if err != nil {
		t, err = time.Parse(time.RFC3339, v)
	}
	if err != nil {
		return nil, "dob must be a date in YYYY-MM-DD format"
	}
	if t.After(s.now()) {
		return nil, "dob must not be in the future"
	}

	t = t.UTC()
	return &t, ""
}

func (s *accountService) UpdateContact(ctx context.Context, user *domain.User, req *dto.UpdateContactRequest) (*domain.User, error) {
	in := dto.UpdateContactRequest{
		CountryCode: strings.TrimPrefix(strings.TrimSpace(req.CountryCode), "+"),
		Number:      strings.TrimSpace(req.Number),
		IsDefault:   req.IsDefault,
	}
	if err := s.validator.Struct(&in); err != nil {
		return nil, err
	}

	contact := domain.Contact{
		CountryCode: in.CountryCode,
		Number:      in.Number,
		IsDefault:   true,
	}
	if in.IsDefault != nil {
		contact.IsDefault = *in.IsDefault
	}

	updated, err := s.userRepo.UpdateContact(ctx, user.ID, contact)
	if err != nil {
		return nil, userWriteError(err, "Something went wrong while updating the contact")
	}
	return updated, nil
}

func (s *accountService) UpdateAddress(ctx context.Context, user *domain.User, req *dto.UpdateAddressRequest) (*domain.User, error) {
	in := dto.UpdateAddressRequest{
		Address:  strings.TrimSpace(req.Address),
		City:     strings.TrimSpace(req.City),
		State:    strings.TrimSpace(req.State),
		Country:  strings.TrimSpace(req.Country),
		Postcode: strings.TrimSpace(req.Postcode),
		Timezone: strings.TrimSpace(req.Timezone),
	}
	if err := s.validator.Struct(&in); err != nil {
		return nil, err
	}

	address := domain.Address(in)
	if address == (domain.Address{}) {
		return nil, domain.InvalidInput("At least one address field is required")
	}

	updated, err := s.userRepo.UpdateAddress(ctx, user.ID, address)
	if err != nil {
		return nil, userWriteError(err, "Something went wrong while updating the address")
	}
	return updated, nil
}

// UpdateAvatar stores the new avatar, points the user at it and then deletes
// the old one. A failed delete leaves an orphaned object but does not fail the update.
func (s *accountService) UpdateAvatar(ctx context.Context, user *domain.User, avatar *dto.FileUpload) (*domain.User, error) {
	if problem := s.avatars.check(avatar); problem != "" {
		return nil, domain.InvalidInput("Invalid avatar", problem)
	}

	newURL, err := s.avatars.upload(ctx, user.ID, avatar)
	if err != nil {
		return nil, domain.Internal("Failed to upload avatar", err)
	}

	updated, err := s.userRepo.UpdateAvatar(ctx, user.ID, newURL)
	if err != nil {
		s.avatars.discard(ctx, newURL)
		return nil, userWriteError(err, "Something went wrong while updating the avatar")
	}

	if old := user.Profile.Avatar; old != newURL {
		s.avatars.discard(ctx, old)
	}

	return updated, nil
}

func (s *accountService) ChannelProfile(ctx context.Context, viewer *domain.User, username string) (*domain.ChannelProfile, error) {
	username = utils.NormalizeIdentifier(username)
	if username == "" {
		return nil, domain.InvalidInput("Username is missing")
	}

	profile, err := s.channelRepo.ChannelProfile(ctx, username, viewer.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("Channel does not exist")
		}
		return nil, domain.Internal("Something went wrong while fetching the channel", err)
	}
	return profile, nil
}

func (s *accountService) WatchHistory(ctx context.Context, user *domain.User) ([]domain.HistoryEntry, error) {
	history, err := s.channelRepo.WatchHistory(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("User does not exist")
		}
		return nil, domain.Internal("Something went wrong while fetching watch history", err)
	}
	return history, nil
}

// userWriteError classifies a repository failure on an update of the current user
func userWriteError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateUser):
		return domain.Conflict("Username or email is already taken")
	case errors.Is(err, repository.ErrNotFound):
		return domain.NotFound("User does not exist")
	default:
		return domain.Internal(message, err)
	}
}
