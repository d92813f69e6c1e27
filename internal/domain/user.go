package domain

import "time"

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// CanSignIn reports whether an account in this state may log in or refresh.
func (s Status) CanSignIn() bool {
	return s == "" || s == StatusActive
}

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Valid reports whether g is one of the accepted genders or empty.
func (g Gender) Valid() bool {
	switch g {
	case "", GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// User represents an account in the system. PasswordHash and RefreshTokenHash
// never leave the service layer.
type User struct {
	ID               string     `json:"_id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	RefreshTokenHash string     `json:"-"`
	Profile          Profile    `json:"profile"`
	Contact          *Contact   `json:"contact,omitempty"`
	Address          *Address   `json:"address,omitempty"`
	Status           Status     `json:"status"`
	RoleID           string     `json:"role,omitempty"`
	WatchHistory     []string   `json:"watchHistory"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
}

type Profile struct {
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName,omitempty"`
	Avatar    string     `json:"avatar"`
	DOB       *time.Time `json:"dob,omitempty"`
	Gender    Gender     `json:"gender,omitempty"`
}

type Contact struct {
	CountryCode string `json:"countryCode"`
	Number      string `json:"number"`
	IsDefault   bool   `json:"isDefault"`
}

type Address struct {
	Address  string `json:"address,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Country  string `json:"country,omitempty"`
	Postcode string `json:"postcode,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// ProfileUpdate carries the profile fields a user may change directly. The
// avatar has its own operation.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	DOB       *time.Time
	Gender    Gender
}
