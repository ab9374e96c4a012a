package domain

import "time"

// Bounds of an accepted rating value, inclusive.
const (
	MinRating = 0.5
	MaxRating = 5.0
)

// Rating represents a single user's rating for a movie.
type Rating struct {
	ID      int64
	UserID  int
	MovieID int
	Value   float32
	RatedAt time.Time
}

// ValidRating reports whether value lies in [MinRating, MaxRating].
func ValidRating(value float64) bool {
	return value >= MinRating && value <= MaxRating
}
