package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/Clark-Hu/movielens-api/internal/domain"
)

// ExportHeader is the header row of a movie export.
var ExportHeader = []string{"Movie ID", "Title", "Genres"}

// MovieIterator streams every movie to fn.
type MovieIterator interface {
	Each(ctx context.Context, fn func(domain.Movie) error) error
}

// ExportMovies writes all movies as CSV and returns how many were written.
func ExportMovies(ctx context.Context, movies MovieIterator, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	var n int
	err := movies.Each(ctx, func(m domain.Movie) error {
		n++
		return cw.Write([]string{strconv.Itoa(m.ID), m.Title, m.Genres})
	})
	if err != nil {
		return n, fmt.Errorf("export movies: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("flush export: %w", err)
	}
	return n, nil
}
