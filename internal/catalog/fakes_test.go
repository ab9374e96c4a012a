package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Clark-Hu/movielens-api/internal/domain"
	"github.com/Clark-Hu/movielens-api/internal/pagination"
	"github.com/Clark-Hu/movielens-api/internal/repository"
)

type fakeMovies struct {
	mu     sync.Mutex
	movies map[int]domain.Movie
}

func newFakeMovies(movies ...domain.Movie) *fakeMovies {
	f := &fakeMovies{movies: make(map[int]domain.Movie)}
	for _, m := range movies {
		f.movies[m.ID] = m
	}
	return f
}

func (f *fakeMovies) Create(_ context.Context, p repository.MovieCreateParams) (domain.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.movies[p.ID]; ok {
		return domain.Movie{}, repository.ErrDuplicate
	}
	m := domain.Movie{ID: p.ID, Title: p.Title, Genres: p.Genres, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.movies[p.ID] = m
	return m, nil
}

func (f *fakeMovies) GetByID(_ context.Context, id int) (domain.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.movies[id]
	if !ok {
		return domain.Movie{}, repository.ErrNotFound
	}
	return m, nil
}

func (f *fakeMovies) Update(_ context.Context, id int, p repository.MovieUpdateParams) (domain.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.movies[id]
	if !ok {
		return domain.Movie{}, repository.ErrNotFound
	}
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Genres != nil {
		m.Genres = *p.Genres
	}
	f.movies[id] = m
	return m, nil
}

// Query ignores predicates; filtering is covered by the repository tests.
func (f *fakeMovies) Query(_ context.Context, filter repository.MovieFilter) ([]domain.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Movie, 0, len(f.movies))
	for _, m := range f.movies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title == out[j].Title {
			return out[i].ID < out[j].ID
		}
		if filter.Order == repository.OrderTitleDesc {
			return out[i].Title > out[j].Title
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

type ratingKey struct{ user, movie int }

type fakeRatings struct {
	mu     sync.Mutex
	nextID int64
	rows   map[ratingKey]domain.Rating
}

func newFakeRatings() *fakeRatings {
	return &fakeRatings{rows: make(map[ratingKey]domain.Rating)}
}

func (f *fakeRatings) Exists(_ context.Context, userID, movieID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[ratingKey{userID, movieID}]
	return ok, nil
}

func (f *fakeRatings) Insert(_ context.Context, p repository.RatingInsertParams) (domain.Rating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := ratingKey{p.UserID, p.MovieID}
	if _, ok := f.rows[key]; ok {
		return domain.Rating{}, repository.ErrDuplicate
	}
	f.nextID++
	r := domain.Rating{ID: f.nextID, UserID: p.UserID, MovieID: p.MovieID, Value: p.Value, RatedAt: time.Now()}
	f.rows[key] = r
	return r, nil
}

func (f *fakeRatings) GetByID(_ context.Context, id int64) (domain.Rating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Rating{}, repository.ErrNotFound
}

func (f *fakeRatings) List(_ context.Context, filter repository.RatingFilter, req pagination.Request) (pagination.Page[domain.Rating], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Rating, 0, len(f.rows))
	for _, r := range f.rows {
		if filter.MovieID != 0 && r.MovieID != filter.MovieID {
			continue
		}
		if filter.UserID != 0 && r.UserID != filter.UserID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return pagination.Paginate(out, req.Number, req.Size), nil
}

func (f *fakeRatings) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeTags struct {
	tags []domain.Tag
}

func (f *fakeTags) GetByID(_ context.Context, id int64) (domain.Tag, error) {
	for _, t := range f.tags {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Tag{}, repository.ErrNotFound
}

func (f *fakeTags) List(_ context.Context, filter repository.TagFilter, req pagination.Request) (pagination.Page[domain.Tag], error) {
	out := make([]domain.Tag, 0, len(f.tags))
	for _, t := range f.tags {
		if filter.MovieID == 0 || t.MovieID == filter.MovieID {
			out = append(out, t)
		}
	}
	return pagination.Paginate(out, req.Number, req.Size), nil
}

func (f *fakeTags) TextsByMovie(_ context.Context, ids []int) (map[int][]string, error) {
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[int][]string)
	for _, t := range f.tags {
		if want[t.MovieID] {
			out[t.MovieID] = append(out[t.MovieID], t.Text)
		}
	}
	return out, nil
}
