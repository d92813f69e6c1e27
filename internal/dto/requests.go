package dto

import "io"

// RegisterRequest is bound from a multipart form; the avatar travels separately as a FileUpload
type RegisterRequest struct {
	FirstName string `form:"firstName" json:"firstName" validate:"required,max=50"`
	LastName  string `form:"lastName" json:"lastName" validate:"max=50"`
	Email     string `form:"email" json:"email" validate:"required,email,max=254"`
	Username  string `form:"username" json:"username" validate:"required"`
	Password  string `form:"password" json:"password" validate:"notblank,max=72"`
}

// LoginRequest accepts either a username or an email
type LoginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,max=72"`
}

// RefreshTokenRequest is the body fallback when the refresh cookie is absent
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required,max=72"`
	NewPassword string `json:"newPassword" validate:"notblank,max=72"`
}

type UpdateUsernameRequest struct {
	Username string `json:"username" validate:"required"`
}

// UpdateProfileRequest replaces the editable profile fields. DOB is YYYY-MM-DD or RFC3339.
type UpdateProfileRequest struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"max=50"`
	DOB       string `json:"dob"`
	Gender    string `json:"gender" validate:"omitempty,gender"`
}

type UpdateContactRequest struct {
	CountryCode string `json:"countryCode" validate:"required,digits,min=1,max=4"`
	Number      string `json:"number" validate:"required,min=7,max=14"`
	IsDefault   *bool  `json:"isDefault"`
}

type UpdateAddressRequest struct {
	Address  string `json:"address" validate:"max=200"`
	City     string `json:"city" validate:"max=100"`
	State    string `json:"state" validate:"max=100"`
	Country  string `json:"country" validate:"max=100"`
	Postcode string `json:"postcode" validate:"max=20"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
}

// FileUpload is an uploaded file as seen by the service layer
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}
