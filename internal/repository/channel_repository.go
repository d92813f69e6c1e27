package repository

import (
	"context"
	"fmt"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type summaryDocument struct {
	FirstName string `bson:"firstName"`
	LastName  string `bson:"lastName,omitempty"`
	Avatar    string `bson:"avatar"`
}

type channelDocument struct {
	ID                primitive.ObjectID `bson:"_id"`
	Username          string             `bson:"username"`
	Email             string             `bson:"email"`
	Profile           summaryDocument    `bson:"profile"`
	SubscriberCount   int                `bson:"subscriberCount"`
	SubscribedToCount int                `bson:"subscribedToCount"`
	IsSubscribed      bool               `bson:"isSubscribed"`
}

type ownerDocument struct {
	ID       primitive.ObjectID `bson:"_id"`
	Username string             `bson:"username"`
	Profile  summaryDocument    `bson:"profile"`
}

type videoDocument struct {
	ID    primitive.ObjectID `bson:"_id"`
	Owner *ownerDocument     `bson:"owner,omitempty"`
	Rest  bson.M             `bson:",inline"`
}

type historyDocument struct {
	Order        []primitive.ObjectID `bson:"order"`
	WatchHistory []videoDocument      `bson:"watchHistory"`
}

// channelRepository builds the channel and history read models with aggregations
type channelRepository struct {
	users *mongo.Collection
}

// NewChannelRepository creates a new channel repository
func NewChannelRepository(db *database.Mongo) ChannelRepository {
	return &channelRepository{users: db.DB.Collection(usersCollection)}
}

// ChannelProfilePlan counts subscribers of the channel and subscriptions it
// holds, and whether viewer is among the subscribers.
func ChannelProfilePlan(username string, viewer primitive.ObjectID) *Plan {
	return NewPlan().
		Match(bson.D{{Key: "username", Value: username}}).
		Lookup(Join{
			From:         subscriptionsCollection,
			LocalField:   "_id",
			ForeignField: "channel",
			As:           "subscribers",
		}).
		Lookup(Join{
			From:         subscriptionsCollection,
			LocalField:   "_id",
			ForeignField: "subscriber",
			As:           "subscribedTo",
		}).
		AddFields(bson.D{
			{Key: "subscriberCount", Value: Size(Ref("subscribers"))},
			{Key: "subscribedToCount", Value: Size(Ref("subscribedTo"))},
			{Key: "isSubscribed", Value: Cond(In(viewer, Ref("subscribers.subscriber")), true, false)},
		}).
		Project(Include(
			"username",
			"email",
			"profile.firstName",
			"profile.lastName",
			"profile.avatar",
			"subscriberCount",
			"subscribedToCount",
			"isSubscribed",
		))
}

// WatchHistoryPlan joins the user's watched videos and replaces each video's
// owner id with the owner's public summary.
func WatchHistoryPlan(userID primitive.ObjectID) *Plan {
	ownerSummary := NewPlan().Project(Include(
		"username",
		"profile.firstName",
		"profile.lastName",
		"profile.avatar",
	))

	videos := NewPlan().
		Lookup(Join{
			From:         usersCollection,
			LocalField:   "owner",
			ForeignField: "_id",
			As:           "owner",
			Pipeline:     ownerSummary,
		}).
		AddFields(bson.D{{Key: "owner", Value: First(Ref("owner"))}})

	return NewPlan().
		Match(bson.D{{Key: "_id", Value: userID}}).
		AddFields(bson.D{{Key: "order", Value: Ref("watchHistory")}}).
		Lookup(Join{
			From:         videosCollection,
			LocalField:   "watchHistory",
			ForeignField: "_id",
			As:           "watchHistory",
			Pipeline:     videos,
		}).
		Project(Include("order", "watchHistory"))
}

func (r *channelRepository) ChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	// An unknown or empty viewer id matches no subscriber.
	viewer, _ := primitive.ObjectIDFromHex(viewerID)

	var docs []channelDocument
	if err := r.aggregate(ctx, ChannelProfilePlan(username, viewer), &docs); err != nil {
		return nil, fmt.Errorf("failed to aggregate channel profile: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("channel %s not found: %w", username, ErrNotFound)
	}

	d := docs[0]
	return &domain.ChannelProfile{
		ID:                d.ID.Hex(),
		Username:          d.Username,
		Email:             d.Email,
		Profile:           domain.ChannelSummary(d.Profile),
		SubscriberCount:   d.SubscriberCount,
		SubscribedToCount: d.SubscribedToCount,
		IsSubscribed:      d.IsSubscribed,
	}, nil
}

// WatchHistory returns the user's watched videos in watch order. A video that
// appears more than once is listed at its first position.
func (r *channelRepository) WatchHistory(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	var docs []historyDocument
	if err := r.aggregate(ctx, WatchHistoryPlan(oid), &docs); err != nil {
		return nil, fmt.Errorf("failed to aggregate watch history: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	return orderHistory(docs[0].Order, docs[0].WatchHistory), nil
}

func (r *channelRepository) aggregate(ctx context.Context, plan *Plan, out any) error {
	cur, err := r.users.Aggregate(ctx, plan.Pipeline())
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

// orderHistory restores watch order, since $lookup returns joined documents in
// collection order.
func orderHistory(order []primitive.ObjectID, videos []videoDocument) []domain.HistoryEntry {
	byID := make(map[primitive.ObjectID]videoDocument, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}

	entries := make([]domain.HistoryEntry, 0, len(videos))
	seen := make(map[primitive.ObjectID]bool, len(order))
	for _, id := range order {
		v, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		entries = append(entries, toHistoryEntry(v))
	}
	return entries
}

func toHistoryEntry(v videoDocument) domain.HistoryEntry {
	entry := domain.HistoryEntry{
		ID:     v.ID.Hex(),
		Fields: make(map[string]any, len(v.Rest)),
	}
	for k, val := range v.Rest {
		entry.Fields[k] = val
	}
	if v.Owner != nil {
		entry.Owner = &domain.Owner{
			ID:       v.Owner.ID.Hex(),
			Username: v.Owner.Username,
			Profile:  domain.ChannelSummary(v.Owner.Profile),
		}
	}
	return entry
}
