package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDocument struct {
	ID           primitive.ObjectID   `bson:"_id"`
	Username     string               `bson:"username"`
	Email        string               `bson:"email"`
	Password     string               `bson:"password"`
	RefreshToken string               `bson:"refreshToken,omitempty"`
	Profile      profileDocument      `bson:"profile"`
	Contact      *contactDocument     `bson:"contact,omitempty"`
	Address      *addressDocument     `bson:"address,omitempty"`
	Status       string               `bson:"status"`
	Role         *primitive.ObjectID  `bson:"role,omitempty"`
	WatchHistory []primitive.ObjectID `bson:"watchHistory"`
	CreatedAt    time.Time            `bson:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"`
	LastLoginAt  *time.Time           `bson:"lastLoginAt,omitempty"`
}

type profileDocument struct {
	FirstName string     `bson:"firstName"`
	LastName  string     `bson:"lastName,omitempty"`
	Avatar    string     `bson:"avatar"`
	DOB       *time.Time `bson:"dob,omitempty"`
	Gender    string     `bson:"gender,omitempty"`
}

type contactDocument struct {
	CountryCode string `bson:"countryCode"`
	Number      string `bson:"number"`
	IsDefault   bool   `bson:"default"`
}

type addressDocument struct {
	Address  string `bson:"address,omitempty"`
	City     string `bson:"city,omitempty"`
	State    string `bson:"state,omitempty"`
	Country  string `bson:"country,omitempty"`
	Postcode string `bson:"postcode,omitempty"`
	Timezone string `bson:"timezone,omitempty"`
}

// userRepository implements UserRepository over the users collection
type userRepository struct {
	c *mongo.Collection
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Mongo) UserRepository {
	return &userRepository{c: db.DB.Collection(usersCollection)}
}

// Create inserts a new user. It assigns the id, timestamps and default status.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	doc := toUserDocument(user)
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = string(domain.StatusActive)
	}
	if doc.WatchHistory == nil {
		doc.WatchHistory = []primitive.ObjectID{}
	}

	if _, err := r.c.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user %s already exists: %w", user.Username, ErrDuplicateUser)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	*user = *doc.toDomain()
	return nil
}

// GetByID retrieves a user by id. A malformed id is reported as not found.
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

// GetByLogin retrieves a user matching the username or the email, whichever is given
func (r *userRepository) GetByLogin(ctx context.Context, username, email string) (*domain.User, error) {
	filter, ok := usernameOrEmail(username, email)
	if !ok {
		return nil, fmt.Errorf("no login identifier: %w", ErrNotFound)
	}
	return r.findOne(ctx, filter)
}

// ExistsByUsernameOrEmail reports whether any user holds the username or the email
func (r *userRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	filter, ok := usernameOrEmail(username, email)
	if !ok {
		return false, nil
	}

	n, err := r.c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return n > 0, nil
}

// UpdateLastLogin updates the last login timestamp for a user
func (r *userRepository) UpdateLastLogin(ctx context.Context, id string) error {
	return r.updateOne(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{{Key: "lastLoginAt", Value: time.Now().UTC()}}},
	})
}

func (r *userRepository) SetRefreshToken(ctx context.Context, id, digest string) (string, error) {
	return r.replaceRefreshToken(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{{Key: "refreshToken", Value: digest}}},
	})
}

func (r *userRepository) ClearRefreshToken(ctx context.Context, id string) (string, error) {
	return r.replaceRefreshToken(ctx, id, bson.D{
		{Key: "$unset", Value: bson.D{{Key: "refreshToken", Value: ""}}},
	})
}

// SwapRefreshToken is a single-document compare-and-swap, so of two rotations
// presenting the same token only one can match.
func (r *userRepository) SwapRefreshToken(ctx context.Context, id, expected, next string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	res, err := r.c.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}, {Key: "refreshToken", Value: expected}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "refreshToken", Value: next},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("failed to swap refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrRefreshTokenMismatch
	}
	return nil
}

// UpdatePassword stores a new password hash
func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updateOne(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password", Value: passwordHash},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}},
	})
}

func (r *userRepository) UpdateUsername(ctx context.Context, id, username string) (*domain.User, error) {
	return r.updateAndReturn(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{{Key: "username", Value: username}}},
	})
}

// UpdateProfile replaces the editable profile fields and leaves the avatar alone
func (r *userRepository) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	set := bson.D{
		{Key: "profile.firstName", Value: update.FirstName},
		{Key: "profile.lastName", Value: update.LastName},
	}
	unset := bson.D{}

	if update.DOB != nil {
		set = append(set, bson.E{Key: "profile.dob", Value: update.DOB.UTC()})
	} else {
		unset = append(unset, bson.E{Key: "profile.dob", Value: ""})
	}
	if update.Gender != "" {
		set = append(set, bson.E{Key: "profile.gender", Value: string(update.Gender)})
	} else {
		unset = append(unset, bson.E{Key: "profile.gender", Value: ""})
	}

	doc := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		doc = append(doc, bson.E{Key: "$unset", Value: unset})
	}
	return r.updateAndReturn(ctx, id, doc)
}

func (r *userRepository) UpdateContact(ctx context.Context, id string, contact domain.Contact) (*domain.User, error) {
	return r.updateAndReturn(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{{Key: "contact", Value: contactDocument{
			CountryCode: contact.CountryCode,
			Number:      contact.Number,
			IsDefault:   contact.IsDefault,
		}}}},
	})
}

// UpdateAddress sets only the address fields that are non-empty
func (r *userRepository) UpdateAddress(ctx context.Context, id string, address domain.Address) (*domain.User, error) {
	set := bson.D{}
	for _, f := range []struct{ key, value string }{
		{"address.address", address.Address},
		{"address.city", address.City},
		{"address.state", address.State},
		{"address.country", address.Country},
		{"address.postcode", address.Postcode},
		{"address.timezone", address.Timezone},
	} {
		if f.value != "" {
			set = append(set, bson.E{Key: f.key, Value: f.value})
		}
	}

	return r.updateAndReturn(ctx, id, bson.D{{Key: "$set", Value: set}})
}

func (r *userRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) (*domain.User, error) {
	return r.updateAndReturn(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{{Key: "profile.avatar", Value: avatarURL}}},
	})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.D) (*domain.User, error) {
	var doc userDocument
	if err := r.c.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *userRepository) updateOne(ctx context.Context, id string, update bson.D) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	res, err := r.c.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}
	return nil
}

// updateAndReturn applies update, stamps updatedAt and returns the new document
func (r *userRepository) updateAndReturn(ctx context.Context, id string, update bson.D) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	update = withUpdatedAt(update, time.Now().UTC())

	var doc userDocument
	err = r.c.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		case mongo.IsDuplicateKeyError(err):
			return nil, fmt.Errorf("failed to update user %s: %w", id, ErrDuplicateUser)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return doc.toDomain(), nil
}

// replaceRefreshToken applies update and returns the digest stored before it
func (r *userRepository) replaceRefreshToken(ctx context.Context, id string, update bson.D) (string, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return "", fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	var before struct {
		RefreshToken string `bson:"refreshToken"`
	}
	err = r.c.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		withUpdatedAt(update, time.Now().UTC()),
		options.FindOneAndUpdate().
			SetReturnDocument(options.Before).
			SetProjection(bson.D{{Key: "refreshToken", Value: 1}}),
	).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return "", fmt.Errorf("failed to update refresh token: %w", err)
	}

	return before.RefreshToken, nil
}

// withUpdatedAt adds updatedAt to the $set stage of update, creating it if needed
func withUpdatedAt(update bson.D, now time.Time) bson.D {
	out := make(bson.D, 0, len(update)+1)
	stamped := false
	for _, op := range update {
		if op.Key == "$set" {
			if set, ok := op.Value.(bson.D); ok {
				op.Value = append(append(bson.D{}, set...), bson.E{Key: "updatedAt", Value: now})
				stamped = true
			}
		}
		out = append(out, op)
	}
	if !stamped {
		out = append(out, bson.E{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: now}}})
	}
	return out
}

func usernameOrEmail(username, email string) (bson.D, bool) {
	or := bson.A{}
	if username != "" {
		or = append(or, bson.D{{Key: "username", Value: username}})
	}
	if email != "" {
		or = append(or, bson.D{{Key: "email", Value: email}})
	}
	if len(or) == 0 {
		return nil, false
	}
	return bson.D{{Key: "$or", Value: or}}, true
}

func toUserDocument(u *domain.User) userDocument {
	doc := userDocument{
		Username:     u.Username,
		Email:        u.Email,
		Password:     u.PasswordHash,
		RefreshToken: u.RefreshTokenHash,
		Profile: profileDocument{
			FirstName: u.Profile.FirstName,
			LastName:  u.Profile.LastName,
			Avatar:    u.Profile.Avatar,
			DOB:       u.Profile.DOB,
			Gender:    string(u.Profile.Gender),
		},
		Status: string(u.Status),
	}

	if u.Contact != nil {
		doc.Contact = &contactDocument{
			CountryCode: u.Contact.CountryCode,
			Number:      u.Contact.Number,
			IsDefault:   u.Contact.IsDefault,
		}
	}
	if u.Address != nil {
		a := addressDocument(*u.Address)
		doc.Address = &a
	}
	if oid, err := primitive.ObjectIDFromHex(u.RoleID); err == nil {
		doc.Role = &oid
	}
	for _, id := range u.WatchHistory {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			doc.WatchHistory = append(doc.WatchHistory, oid)
		}
	}

	return doc
}

func (d *userDocument) toDomain() *domain.User {
	u := &domain.User{
		ID:               d.ID.Hex(),
		Username:         d.Username,
		Email:            d.Email,
		PasswordHash:     d.Password,
		RefreshTokenHash: d.RefreshToken,
		Profile: domain.Profile{
			FirstName: d.Profile.FirstName,
			LastName:  d.Profile.LastName,
			Avatar:    d.Profile.Avatar,
			DOB:       d.Profile.DOB,
			Gender:    domain.Gender(d.Profile.Gender),
		},
		Status:       domain.Status(d.Status),
		WatchHistory: make([]string, 0, len(d.WatchHistory)),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		LastLoginAt:  d.LastLoginAt,
	}

	if d.Contact != nil {
		u.Contact = &domain.Contact{
			CountryCode: d.Contact.CountryCode,
			Number:      d.Contact.Number,
			IsDefault:   d.Contact.IsDefault,
		}
	}
	if d.Address != nil {
		a := domain.Address(*d.Address)
		u.Address = &a
	}
	if d.Role != nil {
		u.RoleID = d.Role.Hex()
	}
	for _, id := range d.WatchHistory {
		u.WatchHistory = append(u.WatchHistory, id.Hex())
	}

	return u
}
