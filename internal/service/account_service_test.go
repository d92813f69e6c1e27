package service_test

import (
	"path"
	"testing"
	"time"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	user, _ := h.register(t, "alice")
	ctx := t.Context()

	err := h.account.ChangePassword(ctx, user, &dto.ChangePasswordRequest{OldPassword: "Wrong1!x", NewPassword: "Better2?"})
	derr := requireKind(t, err, domain.KindInvalidInput)
	assert.Equal(t, "Invalid old password", derr.Message)

	err = h.account.ChangePassword(ctx, user, &dto.ChangePasswordRequest{OldPassword: "Secret1!", NewPassword: "   "})
	requireKind(t, err, domain.KindInvalidInput)

	stored, err := h.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, h.account.ChangePassword(ctx, stored, &dto.ChangePasswordRequest{OldPassword: "Secret1!", NewPassword: "Better2?"}))

	_, err = h.auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "Secret1!"})
	requireKind(t, err, domain.KindUnauthorized)

	_, err = h.auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "Better2?"})
	require.NoError(t, err)
}

func TestUpdateUsername(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.register(t, "alice")
	h.register(t, "bob")
	ctx := t.Context()

	_, err := h.account.UpdateUsername(ctx, alice, &dto.UpdateUsernameRequest{Username: "Bob"})
	derr := requireKind(t, err, domain.KindConflict)
	assert.Equal(t, "Username is already taken", derr.Message)

	_, err = h.account.UpdateUsername(ctx, alice, &dto.UpdateUsernameRequest{Username: "   "})
	requireKind(t, err, domain.KindInvalidInput)

	same, err := h.account.UpdateUsername(ctx, alice, &dto.UpdateUsernameRequest{Username: " ALICE "})
	require.NoError(t, err)
	assert.Equal(t, "alice", same.Username)

	updated, err := h.account.UpdateUsername(ctx, alice, &dto.UpdateUsernameRequest{Username: "Alice.L"})
	require.NoError(t, err)
	assert.Equal(t, "alice.l", updated.Username)
	assert.Equal(t, alice.Email, updated.Email)

	_, err = h.auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "Secret1!"})
	derr = requireKind(t, err, domain.KindNotFound)
	assert.Equal(t, "User does not exist", derr.Message)

	session, err := h.auth.Login(ctx, &dto.LoginRequest{Username: "alice.l", Password: "Secret1!"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, session.User.ID)
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	user, _ := h.register(t, "alice")
	ctx := t.Context()

	updated, err := h.account.UpdateProfile(ctx, user, &dto.UpdateProfileRequest{
		FirstName: " Alicia ",
		DOB:       "1990-04-12",
		Gender:    "Female",
	})
	require.NoError(t, err)

	assert.Equal(t, "Alicia", updated.Profile.FirstName)
	assert.Empty(t, updated.Profile.LastName)
	assert.Equal(t, domain.GenderFemale, updated.Profile.Gender)
	require.NotNil(t, updated.Profile.DOB)
	assert.Equal(t, time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC), *updated.Profile.DOB)
	assert.Equal(t, user.Profile.Avatar, updated.Profile.Avatar)
}

func TestUpdateProfileValidation(t *testing.T) {
	h := newHarness(t)
	user, _ := h.register(t, "alice")
	tomorrow := time.Now().AddDate(0, 0, 2).Format("2006-01-02")

	_, err := h.account.UpdateProfile(t.Context(), user, &dto.UpdateProfileRequest{
		DOB:    "12/04/1990",
		Gender: "Robot",
	})
	derr := requireKind(t, err, domain.KindInvalidInput)
	assert.ElementsMatch(t, []string{
		"firstName is required",
		"gender must be one of: Male, Female, Other",
		"dob must be a date in YYYY-MM-DD format",
	}, derr.Details)

	_, err = h.account.UpdateProfile(t.Context(), user, &dto.UpdateProfileRequest{FirstName: "Alice", DOB: tomorrow})
	derr = requireKind(t, err, domain.KindInvalidInput)
	assert.Equal(t, []string{"dob must not be in the future"}, derr.Details)
}

func TestUpdateContact(t *testing.T) {
	h := newHarness(t)
	user, _ := h.register(t, "alice")
	ctx := t.Context()

	updated, err := h.account.UpdateContact(ctx, user, &dto.UpdateContactRequest{CountryCode: "+44", Number: "7700900123"})
	require.NoError(t, err)
	require.NotNil(t, updated.Contact)
	assert.Equal(t, domain.Contact{CountryCode: "44", Number: "7700900123", IsDefault: true}, *updated.Contact)

	updated, err = h.account.UpdateContact(ctx, user, &dto.UpdateContactRequest{CountryCode: "1", Number: "5550100", IsDefault: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, updated.Contact.IsDefault)

	_, err = h.account.UpdateContact(ctx, user, &dto.UpdateContactRequest{CountryCode: "x1", Number: "123"})
	derr := requireKind(t, err, domain.KindInvalidInput)
	assert.Len(t, derr.Details, 2)
}

func TestUpdateAddress(t *testing.T) {
	h := newHarness(t)
	user, _ := h.register(t, "alice")
	ctx := t.Context()

	_, err := h.account.UpdateAddress(ctx, user, &dto.UpdateAddressRequest{City: "   "})
	derr := requireKind(t, err, domain.KindInvalidInput)
	assert.Equal(t, "At least one address field is required", derr.Message)

	_, err = h.account.UpdateAddress(ctx, user, &dto.UpdateAddressRequest{Timezone: "Mars/Olympus"})
	requireKind(t, err, domain.KindInvalidInput)

	_, err = h.account.UpdateAddress(ctx, user, &dto.UpdateAddressRequest{City: "London", Country: "UK"})
	require.NoError(t, err)

	updated, err := h.account.UpdateAddress(ctx, user, &dto.UpdateAddressRequest{Postcode: "SW1A 1AA", Timezone: "Europe/London"})
	require.NoError(t, err)
	assert.Equal(t, domain.Address{
		City:     "London",
		Country:  "UK",
		Postcode: "SW1A 1AA",
		Timezone: "Europe/London",
	}, *updated.Address)
}

func TestUpdateAvatar(t *testing.T) {
	h := newHarness(t)
	user, _ := h.register(t, "alice")
	oldURL := user.Profile.Avatar

	updated, err := h.account.UpdateAvatar(t.Context(), user, avatar(32))
	require.NoError(t, err)

	assert.NotEqual(t, oldURL, updated.Profile.Avatar)
	assert.Contains(t, updated.Profile.Avatar, "https://cdn.test/avatars/"+user.ID+"/")
	assert.True(t, h.media.Stored(updated.Profile.Avatar))
	assert.False(t, h.media.Stored(oldURL))
	assert.Contains(t, h.media.Deleted, oldURL)
}

func TestUpdateAvatarExtension(t *testing.T) {
	h := newHarness(t)
	user, _ := h.register(t, "alice")

	tests := []struct {
		filename string
		wantExt  string
	}{
		{"photo.JPG", ".jpg"},
		{"me.png?x=1#frag", ""},
		{"me.png%2F..", ""},
		{"archive.tar.verylong", ""},
		{"noext", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			upload := avatar(8)
			upload.Filename = tt.filename

			updated, err := h.account.UpdateAvatar(t.Context(), user, upload)
			require.NoError(t, err)
			user = updated

			name := path.Base(updated.Profile.Avatar)
			assert.Equal(t, tt.wantExt, path.Ext(name))
			assert.NotContains(t, updated.Profile.Avatar, "?")
			assert.NotContains(t, updated.Profile.Avatar, "#")
		})
	}
}

func TestUpdateAvatarRejectedLeavesUserUnchanged(t *testing.T) {
	h := newHarness(t)
	user, _ := h.register(t, "alice")

	_, err := h.account.UpdateAvatar(t.Context(), user, avatar(testMaxAvatar+1))
	requireKind(t, err, domain.KindInvalidInput)

	h.media.FailNext = true
	_, err = h.account.UpdateAvatar(t.Context(), user, avatar(8))
	requireKind(t, err, domain.KindInternal)

	stored, err := h.users.GetByID(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Profile.Avatar, stored.Profile.Avatar)
	assert.True(t, h.media.Stored(user.Profile.Avatar))
	assert.Equal(t, 1, h.media.Len())
}

func TestChannelProfile(t *testing.T) {
	h := newHarness(t)
	viewer, _ := h.register(t, "alice")
	h.channels.Profiles["bob"] = &domain.ChannelProfile{Username: "bob", SubscriberCount: 3, IsSubscribed: true}

	profile, err := h.account.ChannelProfile(t.Context(), viewer, " Bob ")
	require.NoError(t, err)
	assert.Equal(t, 3, profile.SubscriberCount)
	assert.True(t, profile.IsSubscribed)

	_, err = h.account.ChannelProfile(t.Context(), viewer, "  ")
	requireKind(t, err, domain.KindInvalidInput)

	_, err = h.account.ChannelProfile(t.Context(), viewer, "carol")
	derr := requireKind(t, err, domain.KindNotFound)
	assert.Equal(t, "Channel does not exist", derr.Message)
}

func TestWatchHistory(t *testing.T) {
	h := newHarness(t)
	user, _ := h.register(t, "alice")

	history, err := h.account.WatchHistory(t.Context(), user)
	require.NoError(t, err)
	assert.Empty(t, history)

	h.channels.History[user.ID] = []domain.HistoryEntry{{ID: "v2"}, {ID: "v1"}}
	history, err = h.account.WatchHistory(t.Context(), user)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "v2", history[0].ID)
}
