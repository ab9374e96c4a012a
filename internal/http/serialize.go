package httpserver

import (
	"strings"
	"time"

	"github.com/Clark-Hu/movielens-api/internal/catalog"
	"github.com/Clark-Hu/movielens-api/internal/domain"
	"github.com/Clark-Hu/movielens-api/internal/pagination"
)

// tagSeparator joins a movie's tag texts in its representation.
const tagSeparator = ", "

type pageResponse[T any] struct {
	Items        []T  `json:"items"`
	TotalCount   int  `json:"totalCount"`
	NextPage     *int `json:"nextPage"`
	PreviousPage *int `json:"previousPage"`
}

type movieResponse struct {
	MovieID int      `json:"movieId"`
	Title   string   `json:"title"`
	Genres  []string `json:"genres"`
	Tags    string   `json:"tags"`
}

type ratingResponse struct {
	ID        int64     `json:"id"`
	UserID    int       `json:"userId"`
	MovieID   int       `json:"movieId"`
	Rating    float32   `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

type tagResponse struct {
	ID        int64     `json:"id"`
	UserID    int       `json:"userId"`
	MovieID   int       `json:"movieId"`
	Tag       string    `json:"tag"`
	Timestamp time.Time `json:"timestamp"`
}

func toPageResponse[T, R any](page pagination.Page[T], convert func(T) R) pageResponse[R] {
	items := make([]R, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, convert(item))
	}
	return pageResponse[R]{
		Items:        items,
		TotalCount:   page.TotalCount,
		NextPage:     page.NextPage,
		PreviousPage: page.PreviousPage,
	}
}

func toMovieResponse(view catalog.MovieView) movieResponse {
	return movieResponse{
		MovieID: view.ID,
		Title:   view.Title,
		Genres:  view.GenreList(),
		Tags:    strings.Join(view.Tags, tagSeparator),
	}
}

func toRatingResponse(rating domain.Rating) ratingResponse {
	return ratingResponse{
		ID:        rating.ID,
		UserID:    rating.UserID,
		MovieID:   rating.MovieID,
		Rating:    rating.Value,
		Timestamp: rating.RatedAt.UTC(),
	}
}

func toTagResponse(tag domain.Tag) tagResponse {
	return tagResponse{
		ID:        tag.ID,
		UserID:    tag.UserID,
		MovieID:   tag.MovieID,
		Tag:       tag.Text,
		Timestamp: tag.TaggedAt.UTC(),
	}
}
