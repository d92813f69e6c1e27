package domain

import "time"

// TokenPair is the result of a login or a refresh rotation.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Session is a signed-in user together with the freshly issued tokens.
type Session struct {
	User   *User
	Tokens TokenPair
}
