package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movielens-api/internal/domain"
	"github.com/Clark-Hu/movielens-api/internal/pagination"
)

// TagsRepository provides read access to user tags.
type TagsRepository struct {
	pool *pgxpool.Pool
}

// TagFilter narrows a tag listing; zero fields are ignored.
type TagFilter struct {
	MovieID int
}

const tagColumns = `id, user_id, movie_id, tag, tagged_at`

// GetByID retrieves a tag by its surrogate identifier.
func (r *TagsRepository) GetByID(ctx context.Context, id int64) (domain.Tag, error) {
	const query = `SELECT ` + tagColumns + ` FROM tags WHERE id = $1`
	tag, err := scanTag(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Tag{}, ErrNotFound
		}
		return domain.Tag{}, err
	}
	return tag, nil
}

// List returns one page of tags ordered by identifier.
func (r *TagsRepository) List(ctx context.Context, filter TagFilter, req pagination.Request) (pagination.Page[domain.Tag], error) {
	q := windowQuery{from: "tags", cols: tagColumns, order: "id"}
	if filter.MovieID != 0 {
		q.where = append(q.where, "movie_id = "+q.arg(filter.MovieID))
	}
	return readWindow(ctx, r.pool, q, req, scanTag)
}

// TextsByMovie returns the tag texts of each requested movie in storage order.
// Movies without tags are absent from the map.
func (r *TagsRepository) TextsByMovie(ctx context.Context, movieIDs []int) (map[int][]string, error) {
	out := make(map[int][]string, len(movieIDs))
	if len(movieIDs) == 0 {
		return out, nil
	}

	const query = `SELECT movie_id, tag FROM tags WHERE movie_id = ANY($1) ORDER BY movie_id, id`
	rows, err := r.pool.Query(ctx, query, movieIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			movieID int
			text    string
		)
		if err := rows.Scan(&movieID, &text); err != nil {
			return nil, err
		}
		out[movieID] = append(out[movieID], text)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanTag(row pgx.Row) (domain.Tag, error) {
	var tag domain.Tag
	err := row.Scan(
		&tag.ID,
		&tag.UserID,
		&tag.MovieID,
		&tag.Text,
		&tag.TaggedAt,
	)
	if err != nil {
		return domain.Tag{}, err
	}
	return tag, nil
}
