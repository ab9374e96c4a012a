package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movielens-api/internal/domain"
	"github.com/Clark-Hu/movielens-api/internal/pagination"
)

// RatingsRepository provides helpers for movie ratings.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

// RatingInsertParams captures the payload required to store a rating.
type RatingInsertParams struct {
	UserID  int
	MovieID int
	Value   float32
}

// RatingFilter narrows a ratings listing; zero fields are ignored.
type RatingFilter struct {
	UserID  int
	MovieID int
}

const ratingColumns = `id, user_id, movie_id, rating, rated_at`

// Exists reports whether the user has already rated the movie.
func (r *RatingsRepository) Exists(ctx context.Context, userID, movieID int) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM ratings WHERE user_id = $1 AND movie_id = $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, movieID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Insert stores a new rating. It returns ErrDuplicate when the (user, movie)
// pair is already rated, including when a concurrent insert won the race, and
// ErrNotFound when the movie no longer exists.
func (r *RatingsRepository) Insert(ctx context.Context, params RatingInsertParams) (domain.Rating, error) {
	const query = `
        INSERT INTO ratings (user_id, movie_id, rating)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id, movie_id) DO NOTHING
        RETURNING ` + ratingColumns

	rating, err := scanRating(r.pool.QueryRow(ctx, query, params.UserID, params.MovieID, params.Value))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.Rating{}, ErrDuplicate
		case pgErrorCode(err) == pgForeignKeyViolation:
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}

// GetByID retrieves a rating by its surrogate identifier.
func (r *RatingsRepository) GetByID(ctx context.Context, id int64) (domain.Rating, error) {
	const query = `SELECT ` + ratingColumns + ` FROM ratings WHERE id = $1`
	rating, err := scanRating(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}

// List returns one page of ratings ordered by identifier.
func (r *RatingsRepository) List(ctx context.Context, filter RatingFilter, req pagination.Request) (pagination.Page[domain.Rating], error) {
	q := windowQuery{from: "ratings", cols: ratingColumns, order: "id"}
	if filter.UserID != 0 {
		q.where = append(q.where, "user_id = "+q.arg(filter.UserID))
	}
	if filter.MovieID != 0 {
		q.where = append(q.where, "movie_id = "+q.arg(filter.MovieID))
	}
	return readWindow(ctx, r.pool, q, req, scanRating)
}

func scanRating(row pgx.Row) (domain.Rating, error) {
	var rating domain.Rating
	err := row.Scan(
		&rating.ID,
		&rating.UserID,
		&rating.MovieID,
		&rating.Value,
		&rating.RatedAt,
	)
	if err != nil {
		return domain.Rating{}, err
	}
	return rating, nil
}
