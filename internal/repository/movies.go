package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movielens-api/internal/domain"
)

// MoviesRepository provides persistence helpers for movie entities.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieColumns = `
    m.movie_id,
    m.title,
    m.genres,
    m.created_at,
    m.updated_at
`

// MovieOrder selects the sort order of a movie query.
type MovieOrder int

const (
	OrderTitleAsc MovieOrder = iota
	OrderTitleDesc
)

// MovieFilter encapsulates the conjunctive substring predicates of a movie
// query. Blank fields do not constrain the result.
type MovieFilter struct {
	Genre string
	Title string
	Tag   string
	Order MovieOrder
}

// MovieCreateParams bundles the fields required to create a movie.
type MovieCreateParams struct {
	ID     int
	Title  string
	Genres string
}

// MovieUpdateParams carries the mutable fields; nil leaves a field unchanged.
type MovieUpdateParams struct {
	Title  *string
	Genres *string
}

// Create inserts a new movie row and returns the stored entity.
func (r *MoviesRepository) Create(ctx context.Context, params MovieCreateParams) (domain.Movie, error) {
	query := fmt.Sprintf(`
        INSERT INTO movies AS m (movie_id, title, genres)
        VALUES ($1,$2,$3)
        RETURNING %s
    `, movieColumns)

	movie, err := scanMovie(r.pool.QueryRow(ctx, query, params.ID, params.Title, params.Genres))
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return domain.Movie{}, ErrDuplicate
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// GetByID fetches a movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id int) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies m WHERE m.movie_id = $1`, movieColumns)
	movie, err := scanMovie(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// Update changes title and/or genres. The identifier itself is immutable.
func (r *MoviesRepository) Update(ctx context.Context, id int, params MovieUpdateParams) (domain.Movie, error) {
	query := fmt.Sprintf(`
        UPDATE movies AS m
        SET title = COALESCE($2, m.title),
            genres = COALESCE($3, m.genres),
            updated_at = now()
        WHERE m.movie_id = $1
        RETURNING %s
    `, movieColumns)

	movie, err := scanMovie(r.pool.QueryRow(ctx, query, id, params.Title, params.Genres))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// Delete removes a movie. Its tags and ratings go with it (ON DELETE CASCADE).
func (r *MoviesRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM movies WHERE movie_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Query returns every movie matching the filter, in the requested order.
func (r *MoviesRepository) Query(ctx context.Context, filter MovieFilter) ([]domain.Movie, error) {
	query, args := buildMovieQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Each streams all movies ordered by identifier.
func (r *MoviesRepository) Each(ctx context.Context, fn func(domain.Movie) error) error {
	query := fmt.Sprintf(`SELECT %s FROM movies m ORDER BY m.movie_id`, movieColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return err
		}
		if err := fn(movie); err != nil {
			return err
		}
	}
	return rows.Err()
}

func buildMovieQuery(filter MovieFilter) (string, []interface{}) {
	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if genre := strings.TrimSpace(filter.Genre); genre != "" {
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM unnest(string_to_array(m.genres, '%s')) AS g(name) WHERE g.name ILIKE %s)",
			domain.GenreSeparator, arg(containsPattern(genre))))
	}
	if title := strings.TrimSpace(filter.Title); title != "" {
		where = append(where, fmt.Sprintf("m.title ILIKE %s", arg(containsPattern(title))))
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM tags t WHERE t.movie_id = m.movie_id AND t.tag ILIKE %s)",
			arg(containsPattern(tag))))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(movieColumns)
	queryBuilder.WriteString(" FROM movies m")

	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}

	switch filter.Order {
	case OrderTitleDesc:
		queryBuilder.WriteString(` ORDER BY m.title COLLATE "C" DESC, m.movie_id ASC`)
	default:
		queryBuilder.WriteString(` ORDER BY m.title COLLATE "C" ASC, m.movie_id ASC`)
	}

	return queryBuilder.String(), args
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var movie domain.Movie
	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.Genres,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)
	if err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}
