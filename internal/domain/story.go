package domain

import "time"

// Story is the server-owned record replicated into the local store.
// IDs are assigned by the server and stable across syncs.
type Story struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	PhotoURL    string    `json:"photoUrl" db:"photo_url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	Lat         *float64  `json:"lat,omitempty" db:"lat"`
	Lon         *float64  `json:"lon,omitempty" db:"lon"`
}

// Bookmark snapshots a story at bookmark time. At most one bookmark
// exists per story id.
type Bookmark struct {
	ID           string    `db:"id"`
	StoryID      string    `db:"story_id"`
	Story        Story     `db:"-"`
	BookmarkedAt time.Time `db:"bookmarked_at"`
}

// Like marks a story as liked. At most one active like exists per
// story id; unlike removes every row for that id.
type Like struct {
	ID      string    `db:"id"`
	StoryID string    `db:"story_id"`
	LikedAt time.Time `db:"liked_at"`
}

// StoryStatus reports a story's standing in the local library stores.
type StoryStatus struct {
	IsBookmarked bool
	IsLiked      bool
}

// ListParams are the query parameters accepted by the list endpoints.
type ListParams struct {
	Page     int
	Size     int
	Location int
}

// ListResult is what a fallback-aware list read returns. IsOffline
// signals that Stories came from the local replica, not the network.
type ListResult struct {
	Stories   []Story
	IsOffline bool
}

// NewStory is the payload for submitting a story.
type NewStory struct {
	Description string
	PhotoName   string
	Photo       []byte
	Lat         *float64
	Lon         *float64
}

// ChangeEvent is emitted by the poller when the newest remote story
// changes. Preview is a truncated description.
type ChangeEvent struct {
	StoryID string
	Name    string
	Preview string
	URL     string
}

// Credentials is what a successful login yields.
type Credentials struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Token  string `json:"token"`
}

// PushSubscription mirrors the notification subscribe payload.
type PushSubscription struct {
	Endpoint string               `json:"endpoint"`
	Keys     PushSubscriptionKeys `json:"keys"`
}

type PushSubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}
