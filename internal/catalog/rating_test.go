package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Clark-Hu/movielens-api/internal/domain"
	"github.com/Clark-Hu/movielens-api/internal/metrics"
)

func newRatingService() (*Service, *fakeRatings) {
	ratings := newFakeRatings()
	svc := New(newFakeMovies(domain.Movie{ID: 1, Title: "Toy Story (1995)", Genres: "Animation"}), ratings, &fakeTags{})
	return svc, ratings
}

func TestSubmitRating_ValidValuesSucceedOnce(t *testing.T) {
	for v := domain.MinRating; v <= domain.MaxRating; v += 0.5 {
		svc, ratings := newRatingService()
		user := domain.Identity{UserID: 7}

		rating, err := svc.SubmitRating(context.Background(), user, 1, Score(v))
		if err != nil {
			t.Fatalf("SubmitRating(%v): %v", v, err)
		}
		if rating.UserID != 7 || rating.MovieID != 1 || float64(rating.Value) != v {
			t.Fatalf("unexpected rating %+v", rating)
		}

		_, err = svc.SubmitRating(context.Background(), user, 1, Score(v))
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("second SubmitRating(%v) err = %v, want Conflict", v, err)
		}
		if ratings.count() != 1 {
			t.Fatalf("stored %d ratings, want 1", ratings.count())
		}
	}
}

func TestSubmitRating_OutOfRangePersistsNothing(t *testing.T) {
	for _, v := range []float64{0, 0.49, 5.01, 5.5, -1} {
		svc, ratings := newRatingService()
		_, err := svc.SubmitRating(context.Background(), domain.Identity{UserID: 7}, 1, Score(v))
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("SubmitRating(%v) err = %v, want InvalidArgument", v, err)
		}
		if ratings.count() != 0 {
			t.Fatalf("SubmitRating(%v) persisted a rating", v)
		}
	}
}

func TestSubmitRating_CheckOrder(t *testing.T) {
	tests := []struct {
		name    string
		who     domain.Identity
		movieID int
		value   RatingValue
		seed    bool
		want    error
	}{
		{name: "missing movie before anonymity", who: domain.Anonymous, movieID: 404, value: Score(9), want: domain.ErrNotFound},
		{name: "anonymity before duplicate", who: domain.Anonymous, movieID: 1, value: Score(3), seed: true, want: domain.ErrUnauthorized},
		{name: "anonymity before value", who: domain.Anonymous, movieID: 1, value: Score(9), want: domain.ErrUnauthorized},
		{name: "duplicate before value", who: domain.Identity{UserID: 7}, movieID: 1, value: Score(9), seed: true, want: domain.ErrConflict},
		{name: "value", who: domain.Identity{UserID: 7}, movieID: 1, value: Score(9), want: domain.ErrInvalidArgument},
		{name: "unreadable value after anonymity", who: domain.Anonymous, movieID: 1, value: RatingValue{Problem: "rating is required"}, want: domain.ErrUnauthorized},
		{name: "unreadable value after missing movie", who: domain.Identity{UserID: 7}, movieID: 404, value: RatingValue{Problem: "rating is required"}, want: domain.ErrNotFound},
		{name: "unreadable value after duplicate", who: domain.Identity{UserID: 7}, movieID: 1, value: RatingValue{Problem: "rating is required"}, seed: true, want: domain.ErrConflict},
		{name: "unreadable value", who: domain.Identity{UserID: 7}, movieID: 1, value: RatingValue{Value: 4, Problem: "rating must be a number"}, want: domain.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, ratings := newRatingService()
			if tt.seed {
				if _, err := svc.SubmitRating(context.Background(), domain.Identity{UserID: 7}, 1, Score(4)); err != nil {
					t.Fatalf("seed rating: %v", err)
				}
			}
			before := ratings.count()

			_, err := svc.SubmitRating(context.Background(), tt.who, tt.movieID, tt.value)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if ratings.count() != before {
				t.Fatalf("failed submission changed the store")
			}
		})
	}
}

func TestSubmitRating_ConcurrentSamePair(t *testing.T) {
	svc, ratings := newRatingService()

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitRating(context.Background(), domain.Identity{UserID: 3}, 1, Score(2.5))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Fatalf("successes=%d conflicts=%d", successes, conflicts)
	}
	if ratings.count() != 1 {
		t.Fatalf("stored %d ratings, want 1", ratings.count())
	}
}

func TestSubmitRating_RecordsOutcome(t *testing.T) {
	svc, _ := newRatingService()
	created := metrics.RatingSubmissions.WithLabelValues("created")
	unauthorized := metrics.RatingSubmissions.WithLabelValues("unauthorized")
	createdBefore := testutil.ToFloat64(created)
	unauthorizedBefore := testutil.ToFloat64(unauthorized)

	if _, err := svc.SubmitRating(context.Background(), domain.Identity{UserID: 1}, 1, Score(4)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, _ = svc.SubmitRating(context.Background(), domain.Anonymous, 1, Score(4))

	if got := testutil.ToFloat64(created) - createdBefore; got != 1 {
		t.Fatalf("created outcome delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(unauthorized) - unauthorizedBefore; got != 1 {
		t.Fatalf("unauthorized outcome delta = %v, want 1", got)
	}
}
