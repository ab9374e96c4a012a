package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MovieRecord is one row of a movies bulk file.
type MovieRecord struct {
	ID     int
	Title  string
	Genres string
}

// RatingRecord is one row of a ratings bulk file.
type RatingRecord struct {
	UserID  int
	MovieID int
	Value   float32
	RatedAt time.Time
}

// TagRecord is one row of a tags bulk file.
type TagRecord struct {
	UserID   int
	MovieID  int
	Text     string
	TaggedAt time.Time
}

// Source yields records until it returns io.EOF.
type Source[T any] interface {
	Next() (T, error)
}

// LoadResult summarises a bulk load.
type LoadResult struct {
	// Staged is the number of rows read from the source.
	Staged int64
	// Loaded is the number of rows written to the live table.
	Loaded int64
}

// Skipped is the number of staged rows that did not reach the live table,
// either because they repeated an earlier key or referenced an unknown movie.
func (r LoadResult) Skipped() int64 {
	return r.Staged - r.Loaded
}

// BulkRepository runs transactional stage-then-swap loads.
type BulkRepository struct {
	pool *pgxpool.Pool
}

// MergeMovies upserts every movie of the source. Movies absent from the source
// are kept, so existing ratings and tags survive a reload. When an id repeats,
// the last row wins.
func (r *BulkRepository) MergeMovies(ctx context.Context, src Source[MovieRecord]) (LoadResult, error) {
	const staging = `
        CREATE TEMP TABLE movies_staging (
            ord      BIGINT NOT NULL,
            movie_id INTEGER NOT NULL,
            title    VARCHAR(255) NOT NULL,
            genres   VARCHAR(255) NOT NULL
        ) ON COMMIT DROP`
	const merge = `
        INSERT INTO movies (movie_id, title, genres)
        SELECT DISTINCT ON (movie_id) movie_id, title, genres
        FROM movies_staging
        ORDER BY movie_id, ord DESC
        ON CONFLICT (movie_id) DO UPDATE
        SET title = EXCLUDED.title,
            genres = EXCLUDED.genres,
            updated_at = now()`

	var ord int64
	rows := func() ([]any, error) {
		rec, err := src.Next()
		if err != nil {
			return nil, err
		}
		ord++
		return []any{ord, rec.ID, rec.Title, rec.Genres}, nil
	}

	return r.swap(ctx, staging, "movies_staging",
		[]string{"ord", "movie_id", "title", "genres"}, rows, "", merge)
}

// ReplaceRatings swaps the whole ratings table for the source contents. Rows
// for unknown movies are skipped; when a (user, movie) pair repeats, the last
// row wins. Any invalid row aborts the load and leaves the table unchanged.
func (r *BulkRepository) ReplaceRatings(ctx context.Context, src Source[RatingRecord]) (LoadResult, error) {
	const staging = `
        CREATE TEMP TABLE ratings_staging (
            ord      BIGINT NOT NULL,
            user_id  INTEGER NOT NULL,
            movie_id INTEGER NOT NULL,
            rating   REAL NOT NULL,
            rated_at TIMESTAMPTZ NOT NULL
        ) ON COMMIT DROP`
	const insert = `
        INSERT INTO ratings (user_id, movie_id, rating, rated_at)
        SELECT DISTINCT ON (s.user_id, s.movie_id) s.user_id, s.movie_id, s.rating, s.rated_at
        FROM ratings_staging s
        JOIN movies m ON m.movie_id = s.movie_id
        ORDER BY s.user_id, s.movie_id, s.ord DESC`

	var ord int64
	rows := func() ([]any, error) {
		rec, err := src.Next()
		if err != nil {
			return nil, err
		}
		ord++
		return []any{ord, rec.UserID, rec.MovieID, rec.Value, rec.RatedAt}, nil
	}

	return r.swap(ctx, staging, "ratings_staging",
		[]string{"ord", "user_id", "movie_id", "rating", "rated_at"}, rows, "DELETE FROM ratings", insert)
}

// ReplaceTags swaps the whole tags table for the source contents, keeping file
// order as id order. Rows for unknown movies are skipped.
func (r *BulkRepository) ReplaceTags(ctx context.Context, src Source[TagRecord]) (LoadResult, error) {
	const staging = `
        CREATE TEMP TABLE tags_staging (
            ord       BIGINT NOT NULL,
            user_id   INTEGER NOT NULL,
            movie_id  INTEGER NOT NULL,
            tag       VARCHAR(255) NOT NULL,
            tagged_at TIMESTAMPTZ NOT NULL
        ) ON COMMIT DROP`
	const insert = `
        INSERT INTO tags (user_id, movie_id, tag, tagged_at)
        SELECT s.user_id, s.movie_id, s.tag, s.tagged_at
        FROM tags_staging s
        JOIN movies m ON m.movie_id = s.movie_id
        ORDER BY s.ord`

	var ord int64
	rows := func() ([]any, error) {
		rec, err := src.Next()
		if err != nil {
			return nil, err
		}
		ord++
		return []any{ord, rec.UserID, rec.MovieID, rec.Text, rec.TaggedAt}, nil
	}

	return r.swap(ctx, staging, "tags_staging",
		[]string{"ord", "user_id", "movie_id", "tag", "tagged_at"}, rows, "DELETE FROM tags", insert)
}

// swap copies the source into a temp staging table and publishes it with
// clearSQL (optional) and publish, all in one transaction.
func (r *BulkRepository) swap(ctx context.Context, staging, table string, columns []string, next func() ([]any, error), clearSQL, publish string) (LoadResult, error) {
	var result LoadResult

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, staging); err != nil {
		return result, fmt.Errorf("create %s: %w", table, err)
	}

	var srcErr error
	copied, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromFunc(func() ([]any, error) {
		row, err := next()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			srcErr = err
		}
		return row, err
	}))
	if srcErr != nil {
		return result, srcErr
	}
	if err != nil {
		return result, fmt.Errorf("copy into %s: %w", table, err)
	}
	result.Staged = copied

	if clearSQL != "" {
		if _, err := tx.Exec(ctx, clearSQL); err != nil {
			return result, fmt.Errorf("clear live table: %w", err)
		}
	}
	tag, err := tx.Exec(ctx, publish)
	if err != nil {
		return result, fmt.Errorf("publish %s: %w", table, err)
	}
	result.Loaded = tag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit load: %w", err)
	}
	return result, nil
}
