package repository

import (
	"github.com/prperemyshlev/account-service/pkg/database"
)

const (
	usersCollection         = "users"
	subscriptionsCollection = "subscriptions"
	videosCollection        = "videos"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User    UserRepository
	Channel ChannelRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Mongo) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Channel: NewChannelRepository(db),
	}
}
