package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/Clark-Hu/movielens-api/internal/domain"
	"github.com/Clark-Hu/movielens-api/internal/pagination"
	"github.com/Clark-Hu/movielens-api/internal/repository"
)

// Filter holds the substring predicates of a movie query. They combine with
// AND; blank fields are ignored.
type Filter struct {
	Genre string
	Title string
	Tag   string
}

// Ordering values accepted by ParseOrdering.
const (
	OrderingTitle           = "title"
	OrderingTitleDesc       = "-title"
	OrderingReleaseDate     = "release_date"
	OrderingReleaseDateDesc = "-release_date"
)

// ParseOrdering maps the ordering query parameter onto a sort order. Empty
// selects ascending title order. Release date is reserved for when movies
// carry one.
func ParseOrdering(raw string) (repository.MovieOrder, error) {
	switch strings.TrimSpace(raw) {
	case "", OrderingTitle:
		return repository.OrderTitleAsc, nil
	case OrderingTitleDesc:
		return repository.OrderTitleDesc, nil
	case OrderingReleaseDate, OrderingReleaseDateDesc:
		return 0, domain.InvalidArgumentf("ordering %q is not supported", raw)
	default:
		return 0, domain.InvalidArgumentf("unknown ordering %q, expected one of %s, %s",
			raw, OrderingTitle, OrderingTitleDesc)
	}
}

// Movies runs a filtered, ordered movie query. Unmatched filters yield an
// empty result, never an error.
func (s *Service) Movies(ctx context.Context, filter Filter, order repository.MovieOrder) ([]domain.Movie, error) {
	movies, err := s.movies.Query(ctx, repository.MovieFilter{
		Genre: filter.Genre,
		Title: filter.Title,
		Tag:   filter.Tag,
		Order: order,
	})
	if err != nil {
		return nil, fmt.Errorf("query movies: %w", err)
	}
	return movies, nil
}

// ListMovies returns one page of the query result. Tags are loaded only for
// the movies on the page.
func (s *Service) ListMovies(ctx context.Context, filter Filter, order repository.MovieOrder, page int) (pagination.Page[MovieView], error) {
	movies, err := s.Movies(ctx, filter, order)
	if err != nil {
		return pagination.Page[MovieView]{}, err
	}

	p := pagination.Paginate(movies, page, pagination.DefaultPageSize)
	views, err := s.withTags(ctx, p.Items)
	if err != nil {
		return pagination.Page[MovieView]{}, err
	}
	return pagination.Page[MovieView]{
		Items:        views,
		TotalCount:   p.TotalCount,
		NextPage:     p.NextPage,
		PreviousPage: p.PreviousPage,
	}, nil
}
