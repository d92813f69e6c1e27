package domain

import "encoding/json"

// ChannelProfile is the public view of a user together with subscription counts
// relative to the viewer.
type ChannelProfile struct {
	ID                string         `json:"_id"`
	Username          string         `json:"username"`
	Email             string         `json:"email"`
	Profile           ChannelSummary `json:"profile"`
	SubscriberCount   int            `json:"subscriberCount"`
	SubscribedToCount int            `json:"subscribedToCount"`
	IsSubscribed      bool           `json:"isSubscribed"`
}

type ChannelSummary struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	Avatar    string `json:"avatar"`
}

// Owner is the reduced user summary embedded in watch history entries.
type Owner struct {
	ID       string         `json:"_id"`
	Username string         `json:"username"`
	Profile  ChannelSummary `json:"profile"`
}

// HistoryEntry is a watched video. Video fields other than the id and the
// owner are carried through untouched in Fields.
type HistoryEntry struct {
	ID     string
	Owner  *Owner
	Fields map[string]any
}

// MarshalJSON flattens Fields next to _id and owner.
func (h HistoryEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(h.Fields)+2)
	for k, v := range h.Fields {
		out[k] = v
	}
	out["_id"] = h.ID
	out["owner"] = h.Owner
	return json.Marshal(out)
}
