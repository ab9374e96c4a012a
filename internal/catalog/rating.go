package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Clark-Hu/movielens-api/internal/domain"
	"github.com/Clark-Hu/movielens-api/internal/logging"
	"github.com/Clark-Hu/movielens-api/internal/metrics"
	"github.com/Clark-Hu/movielens-api/internal/repository"
)

// RatingValue is a rating as the caller submitted it. Problem is set when the
// input could not be read as a number and is reported as InvalidArgument in
// place of the range check.
type RatingValue struct {
	Value   float64
	Problem string
}

// Score wraps a numeric rating.
func Score(v float64) RatingValue {
	return RatingValue{Value: v}
}

// SubmitRating records the caller's rating of a movie. Checks run in a fixed order:
// the movie must exist, the caller must be identified, the caller must not
// have rated the movie yet, and the value must be a number in [0.5, 5.0]. The store's
// unique (user, movie) constraint settles concurrent submissions, so exactly
// one of them succeeds and the rest fail with Conflict.
func (s *Service) SubmitRating(ctx context.Context, who domain.Identity, movieID int, value RatingValue) (domain.Rating, error) {
	rating, err := s.submitRating(ctx, who, movieID, value)
	metrics.RecordRatingSubmission(submissionOutcome(err))
	if err != nil {
		return domain.Rating{}, err
	}
	logging.Debug().
		Int("user_id", rating.UserID).
		Int("movie_id", rating.MovieID).
		Float32("rating", rating.Value).
		Msg("rating recorded")
	return rating, nil
}

func (s *Service) submitRating(ctx context.Context, who domain.Identity, movieID int, value RatingValue) (domain.Rating, error) {
	if _, err := s.movies.GetByID(ctx, movieID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Rating{}, domain.NotFoundf("movie %d not found", movieID)
		}
		return domain.Rating{}, fmt.Errorf("get movie %d: %w", movieID, err)
	}

	if who.IsAnonymous() {
		return domain.Rating{}, domain.Unauthorizedf("authentication required to rate a movie")
	}

	exists, err := s.ratings.Exists(ctx, who.UserID, movieID)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("check existing rating: %w", err)
	}
	if exists {
		return domain.Rating{}, alreadyRated(who.UserID, movieID)
	}

	if value.Problem != "" {
		return domain.Rating{}, domain.InvalidArgumentf("%s", value.Problem)
	}
	if !domain.ValidRating(value.Value) {
		return domain.Rating{}, domain.InvalidArgumentf("rating must be between %.1f and %.1f", domain.MinRating, domain.MaxRating)
	}

	rating, err := s.ratings.Insert(ctx, repository.RatingInsertParams{
		UserID:  who.UserID,
		MovieID: movieID,
		Value:   float32(value.Value),
	})
	switch {
	case err == nil:
		return rating, nil
	case errors.Is(err, repository.ErrDuplicate):
		return domain.Rating{}, alreadyRated(who.UserID, movieID)
	case errors.Is(err, repository.ErrNotFound):
		return domain.Rating{}, domain.NotFoundf("movie %d not found", movieID)
	default:
		return domain.Rating{}, fmt.Errorf("insert rating: %w", err)
	}
}

func alreadyRated(userID, movieID int) error {
	return domain.Conflictf("user %d has already rated movie %d", userID, movieID)
}

func submissionOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid"
	default:
		return "error"
	}
}
