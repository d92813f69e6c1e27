// Package testutil holds in-memory collaborators for service and handler tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserStore is an in-memory repository.UserRepository with the same
// uniqueness and compare-and-swap rules as the MongoDB one.
type UserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

var _ repository.UserRepository = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*domain.User)}
}

func (s *UserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.takenLocked(user.Username, user.Email, "") {
		return repository.ErrDuplicateUser
	}

	now := time.Now().UTC()
	user.ID = primitive.NewObjectID().Hex()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Status == "" {
		user.Status = domain.StatusActive
	}
	if user.WatchHistory == nil {
		user.WatchHistory = []string{}
	}

	s.users[user.ID] = clone(user)
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (s *UserStore) GetByLogin(_ context.Context, username, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *UserStore) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.takenLocked(username, email, ""), nil
}

func (s *UserStore) UpdateLastLogin(_ context.Context, id string) error {
	return s.mutate(id, func(u *domain.User) error {
		now := time.Now().UTC()
		u.LastLoginAt = &now
		return nil
	})
}

func (s *UserStore) SetRefreshToken(_ context.Context, id, digest string) (string, error) {
	var previous string
	err := s.mutate(id, func(u *domain.User) error {
		previous = u.RefreshTokenHash
		u.RefreshTokenHash = digest
		return nil
	})
	return previous, err
}

func (s *UserStore) SwapRefreshToken(_ context.Context, id, expected, next string) error {
	return s.mutate(id, func(u *domain.User) error {
		if expected == "" || u.RefreshTokenHash != expected {
			return repository.ErrRefreshTokenMismatch
		}
		u.RefreshTokenHash = next
		return nil
	})
}

func (s *UserStore) ClearRefreshToken(_ context.Context, id string) (string, error) {
	var previous string
	err := s.mutate(id, func(u *domain.User) error {
		previous = u.RefreshTokenHash
		u.RefreshTokenHash = ""
		return nil
	})
	return previous, err
}

func (s *UserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return s.mutate(id, func(u *domain.User) error {
		u.PasswordHash = passwordHash
		return nil
	})
}

func (s *UserStore) UpdateUsername(_ context.Context, id, username string) (*domain.User, error) {
	return s.mutateAndGet(id, func(u *domain.User) error {
		if s.takenLocked(username, "", id) {
			return repository.ErrDuplicateUser
		}
		u.Username = username
		return nil
	})
}

func (s *UserStore) UpdateProfile(_ context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	return s.mutateAndGet(id, func(u *domain.User) error {
		u.Profile.FirstName = update.FirstName
		u.Profile.LastName = update.LastName
		u.Profile.DOB = update.DOB
		u.Profile.Gender = update.Gender
		return nil
	})
}

func (s *UserStore) UpdateContact(_ context.Context, id string, contact domain.Contact) (*domain.User, error) {
	return s.mutateAndGet(id, func(u *domain.User) error {
		u.Contact = &contact
		return nil
	})
}

func (s *UserStore) UpdateAddress(_ context.Context, id string, address domain.Address) (*domain.User, error) {
	return s.mutateAndGet(id, func(u *domain.User) error {
		merged := domain.Address{}
		if u.Address != nil {
			merged = *u.Address
		}
		setIfPresent(&merged.Address, address.Address)
		setIfPresent(&merged.City, address.City)
		setIfPresent(&merged.State, address.State)
		setIfPresent(&merged.Country, address.Country)
		setIfPresent(&merged.Postcode, address.Postcode)
		setIfPresent(&merged.Timezone, address.Timezone)
		u.Address = &merged
		return nil
	})
}

func (s *UserStore) UpdateAvatar(_ context.Context, id, avatarURL string) (*domain.User, error) {
	return s.mutateAndGet(id, func(u *domain.User) error {
		u.Profile.Avatar = avatarURL
		return nil
	})
}

// Put stores u as is, for seeding state such as a suspended account.
func (s *UserStore) Put(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = clone(u)
}

// Count returns the number of stored users
func (s *UserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *UserStore) mutate(id string, fn func(u *domain.User) error) error {
	_, err := s.mutateAndGet(id, fn)
	return err
}

func (s *UserStore) mutateAndGet(id string, fn func(u *domain.User) error) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	u := clone(stored)
	if err := fn(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u

	return clone(u), nil
}

func (s *UserStore) takenLocked(username, email, exceptID string) bool {
	for id, u := range s.users {
		if id == exceptID {
			continue
		}
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return true
		}
	}
	return false
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func clone(u *domain.User) *domain.User {
	c := *u
	c.WatchHistory = append([]string(nil), u.WatchHistory...)
	if u.Contact != nil {
		contact := *u.Contact
		c.Contact = &contact
	}
	if u.Address != nil {
		address := *u.Address
		c.Address = &address
	}
	if u.Profile.DOB != nil {
		dob := *u.Profile.DOB
		c.Profile.DOB = &dob
	}
	if u.LastLoginAt != nil {
		last := *u.LastLoginAt
		c.LastLoginAt = &last
	}
	return &c
}
