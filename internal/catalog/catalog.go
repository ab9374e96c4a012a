// Package catalog holds the movie query engine, the rating workflow and the
// read paths behind the REST resources.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Clark-Hu/movielens-api/internal/domain"
	"github.com/Clark-Hu/movielens-api/internal/pagination"
	"github.com/Clark-Hu/movielens-api/internal/repository"
)

// MovieStore persists movies.
type MovieStore interface {
	Create(ctx context.Context, params repository.MovieCreateParams) (domain.Movie, error)
	GetByID(ctx context.Context, id int) (domain.Movie, error)
	Update(ctx context.Context, id int, params repository.MovieUpdateParams) (domain.Movie, error)
	Query(ctx context.Context, filter repository.MovieFilter) ([]domain.Movie, error)
}

// RatingStore persists ratings.
type RatingStore interface {
	Exists(ctx context.Context, userID, movieID int) (bool, error)
	Insert(ctx context.Context, params repository.RatingInsertParams) (domain.Rating, error)
	GetByID(ctx context.Context, id int64) (domain.Rating, error)
	List(ctx context.Context, filter repository.RatingFilter, req pagination.Request) (pagination.Page[domain.Rating], error)
}

// TagStore reads tags.
type TagStore interface {
	GetByID(ctx context.Context, id int64) (domain.Tag, error)
	List(ctx context.Context, filter repository.TagFilter, req pagination.Request) (pagination.Page[domain.Tag], error)
	TextsByMovie(ctx context.Context, movieIDs []int) (map[int][]string, error)
}

// Service implements the catalog operations on top of the stores.
type Service struct {
	movies  MovieStore
	ratings RatingStore
	tags    TagStore
}

// New wires a Service.
func New(movies MovieStore, ratings RatingStore, tags TagStore) *Service {
	return &Service{movies: movies, ratings: ratings, tags: tags}
}

// NewFromRepository wires a Service to the Postgres repositories.
func NewFromRepository(repo *repository.Repository) *Service {
	return New(repo.Movies, repo.Ratings, repo.Tags)
}

// MovieView is a movie together with the texts of its tags in storage order.
type MovieView struct {
	domain.Movie
	Tags []string
}

// ParsePage turns the page query parameter into a 1-based page number.
// An empty value selects the first page.
func ParsePage(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, domain.InvalidArgumentf("page must be a positive integer, got %q", raw)
	}
	return page, nil
}

// GetMovie returns one movie with its tags.
func (s *Service) GetMovie(ctx context.Context, id int) (MovieView, error) {
	movie, err := s.movies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return MovieView{}, domain.NotFoundf("movie %d not found", id)
		}
		return MovieView{}, fmt.Errorf("get movie %d: %w", id, err)
	}
	views, err := s.withTags(ctx, []domain.Movie{movie})
	if err != nil {
		return MovieView{}, err
	}
	return views[0], nil
}

func (s *Service) withTags(ctx context.Context, movies []domain.Movie) ([]MovieView, error) {
	ids := make([]int, 0, len(movies))
	for _, m := range movies {
		ids = append(ids, m.ID)
	}
	texts, err := s.tags.TextsByMovie(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	views := make([]MovieView, 0, len(movies))
	for _, m := range movies {
		views = append(views, MovieView{Movie: m, Tags: texts[m.ID]})
	}
	return views, nil
}

// MovieInput is the writable part of a movie.
type MovieInput struct {
	ID     int
	Title  string
	Genres []string
}

// MovieChanges lists the fields to overwrite; nil fields are kept.
type MovieChanges struct {
	Title  *string
	Genres []string
	// SetGenres distinguishes an explicit empty genre list from no change.
	SetGenres bool
}

const maxTextLength = 255

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return domain.InvalidArgumentf("title must not be blank")
	}
	if utf8.RuneCountInString(title) > maxTextLength {
		return domain.InvalidArgumentf("title must be at most %d characters", maxTextLength)
	}
	return nil
}

func joinGenres(genres []string) (string, error) {
	for _, g := range genres {
		if strings.TrimSpace(g) == "" {
			return "", domain.InvalidArgumentf("genres must not contain blank entries")
		}
		if strings.Contains(g, domain.GenreSeparator) {
			return "", domain.InvalidArgumentf("genre %q must not contain %q", g, domain.GenreSeparator)
		}
	}
	joined := domain.JoinGenres(genres)
	if utf8.RuneCountInString(joined) > maxTextLength {
		return "", domain.InvalidArgumentf("genres must be at most %d characters once joined", maxTextLength)
	}
	return joined, nil
}

// CreateMovie stores a new movie under its externally assigned id.
func (s *Service) CreateMovie(ctx context.Context, in MovieInput) (MovieView, error) {
	if in.ID < 1 {
		return MovieView{}, domain.InvalidArgumentf("movieId must be a positive integer")
	}
	if err := validateTitle(in.Title); err != nil {
		return MovieView{}, err
	}
	genres, err := joinGenres(in.Genres)
	if err != nil {
		return MovieView{}, err
	}

	movie, err := s.movies.Create(ctx, repository.MovieCreateParams{ID: in.ID, Title: in.Title, Genres: genres})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return MovieView{}, domain.Conflictf("movie %d already exists", in.ID)
		}
		return MovieView{}, fmt.Errorf("create movie %d: %w", in.ID, err)
	}
	return MovieView{Movie: movie}, nil
}

// UpdateMovie overwrites the given fields of an existing movie.
func (s *Service) UpdateMovie(ctx context.Context, id int, changes MovieChanges) (MovieView, error) {
	var params repository.MovieUpdateParams
	if changes.Title != nil {
		if err := validateTitle(*changes.Title); err != nil {
			return MovieView{}, err
		}
		params.Title = changes.Title
	}
	if changes.SetGenres {
		genres, err := joinGenres(changes.Genres)
		if err != nil {
			return MovieView{}, err
		}
		params.Genres = &genres
	}

	movie, err := s.movies.Update(ctx, id, params)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return MovieView{}, domain.NotFoundf("movie %d not found", id)
		}
		return MovieView{}, fmt.Errorf("update movie %d: %w", id, err)
	}
	views, err := s.withTags(ctx, []domain.Movie{movie})
	if err != nil {
		return MovieView{}, err
	}
	return views[0], nil
}

// ListRatings returns one page of ratings.
func (s *Service) ListRatings(ctx context.Context, filter repository.RatingFilter, page int) (pagination.Page[domain.Rating], error) {
	p, err := s.ratings.List(ctx, filter, pagination.Request{Number: page, Size: pagination.DefaultPageSize})
	if err != nil {
		return pagination.Page[domain.Rating]{}, fmt.Errorf("list ratings: %w", err)
	}
	return p, nil
}

// GetRating returns one rating.
func (s *Service) GetRating(ctx context.Context, id int64) (domain.Rating, error) {
	rating, err := s.ratings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Rating{}, domain.NotFoundf("rating %d not found", id)
		}
		return domain.Rating{}, fmt.Errorf("get rating %d: %w", id, err)
	}
	return rating, nil
}

// ListTags returns one page of tags.
func (s *Service) ListTags(ctx context.Context, filter repository.TagFilter, page int) (pagination.Page[domain.Tag], error) {
	p, err := s.tags.List(ctx, filter, pagination.Request{Number: page, Size: pagination.DefaultPageSize})
	if err != nil {
		return pagination.Page[domain.Tag]{}, fmt.Errorf("list tags: %w", err)
	}
	return p, nil
}

// GetTag returns one tag.
func (s *Service) GetTag(ctx context.Context, id int64) (domain.Tag, error) {
	tag, err := s.tags.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Tag{}, domain.NotFoundf("tag %d not found", id)
		}
		return domain.Tag{}, fmt.Errorf("get tag %d: %w", id, err)
	}
	return tag, nil
}
