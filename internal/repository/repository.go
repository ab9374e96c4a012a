package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movielens-api/internal/pagination"
	"github.com/Clark-Hu/movielens-api/internal/store"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a unique key is already taken.
	ErrDuplicate = errors.New("repository: duplicate key")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Movies  *MoviesRepository
	Ratings *RatingsRepository
	Tags    *TagsRepository
	Bulk    *BulkRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Movies:  &MoviesRepository{pool: pool},
		Ratings: &RatingsRepository{pool: pool},
		Tags:    &TagsRepository{pool: pool},
		Bulk:    &BulkRepository{pool: pool},
	}
}

// containsPattern turns user input into an ILIKE pattern that matches it
// literally anywhere in the column.
func containsPattern(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(value) + "%"
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// windowQuery describes a count+window read over one table.
type windowQuery struct {
	from  string
	where []string
	args  []interface{}
	order string
	cols  string
}

func (w *windowQuery) arg(value interface{}) string {
	w.args = append(w.args, value)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *windowQuery) whereClause() string {
	if len(w.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.where, " AND ")
}

// readWindow counts the matching rows and reads one page of them inside a
// single repeatable-read transaction, so both numbers come from one snapshot.
func readWindow[T any](ctx context.Context, pool *pgxpool.Pool, q windowQuery, req pagination.Request, scan func(pgx.Row) (T, error)) (pagination.Page[T], error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return pagination.Page[T]{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only

	var total int
	countSQL := "SELECT COUNT(*) FROM " + q.from + q.whereClause()
	if err := tx.QueryRow(ctx, countSQL, q.args...).Scan(&total); err != nil {
		return pagination.Page[T]{}, fmt.Errorf("count %s: %w", q.from, err)
	}

	limit := q.arg(req.Limit())
	offset := q.arg(req.Offset())
	listSQL := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT %s OFFSET %s",
		q.cols, q.from, q.whereClause(), q.order, limit, offset)

	rows, err := tx.Query(ctx, listSQL, q.args...)
	if err != nil {
		return pagination.Page[T]{}, fmt.Errorf("list %s: %w", q.from, err)
	}
	defer rows.Close()

	items := make([]T, 0, req.Limit())
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return pagination.Page[T]{}, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[T]{}, err
	}

	return pagination.FromWindow(items, total, req), nil
}
