package domain

import (
	"time"
)

// Source represents a platform community content is collected from
type Source struct {
	ID         int64  `json:"id" db:"source_id" validate:"required"`
	Name       string `json:"name" db:"name" validate:"required"`
	ScreenName string `json:"screen_name" db:"screen_name"`
	IsClosed   bool   `json:"is_closed" db:"is_closed"`
	Category   string `json:"category,omitempty" db:"category"`
}

// Post is a top-level content item collected from a source's wall
type Post struct {
	ID       int64  `json:"id"`
	SourceID int64  `json:"source_id"`
	Date     int64  `json:"date"`
	Text     string `json:"text"`
}

// Comment is a reply attached to a post; nested replies carry the
// same post id and their own comment id
type Comment struct {
	ID       int64     `json:"id"`
	PostID   int64     `json:"post_id"`
	SourceID int64     `json:"source_id"`
	Date     int64     `json:"date"`
	Text     string    `json:"text"`
	Thread   []Comment `json:"thread,omitempty"`
}

// Run is one pipeline execution recorded in the store
type Run struct {
	ID         int64     `json:"id" db:"id"`
	TargetDate time.Time `json:"target_date" db:"target_date"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// PredictionRecord is the persisted outcome for a single item.
// ContainerID is 0 for a post and the parent post's id for a comment;
// (SourceID, ContainerID, ItemID) is the natural key.
type PredictionRecord struct {
	RunID       int64 `json:"run_id" db:"run_id"`
	SourceID    int64 `json:"source_id" db:"source_id"`
	ContainerID int64 `json:"container_id" db:"container_id"`
	ItemID      int64 `json:"item_id" db:"item_id"`
	Outcome     bool  `json:"outcome" db:"prediction"`
}
