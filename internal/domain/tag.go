package domain

import "time"

// Tag is a free-text label a user attached to a movie.
type Tag struct {
	ID       int64
	UserID   int
	MovieID  int
	Text     string
	TaggedAt time.Time
}
