package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/Clark-Hu/movielens-api/internal/auth"
	"github.com/Clark-Hu/movielens-api/internal/catalog"
)

// movieCreateRequest is the body of POST /movies. tags is part of the
// representation but read-only, so it is accepted and ignored.
type movieCreateRequest struct {
	MovieID *int     `json:"movieId" validate:"required,gt=0"`
	Title   *string  `json:"title" validate:"required,max=255"`
	Genres  []string `json:"genres" validate:"required,dive,max=255"`
	Tags    *string  `json:"tags"`
}

// movieReplaceRequest is the body of PUT /movies/{movieId}. movieId may be
// echoed back but cannot change.
type movieReplaceRequest struct {
	MovieID *int     `json:"movieId"`
	Title   *string  `json:"title" validate:"required,max=255"`
	Genres  []string `json:"genres" validate:"required,dive,max=255"`
	Tags    *string  `json:"tags"`
}

type moviePatchRequest struct {
	MovieID *int      `json:"movieId"`
	Title   *string   `json:"title" validate:"omitempty,max=255"`
	Genres  *[]string `json:"genres" validate:"omitempty,dive,max=255"`
	Tags    *string   `json:"tags"`
}

// rateRequest is the body of POST /movies/{movieId}/rate. The rating is kept
// raw so a missing or non-numeric value is judged by the workflow, after the
// movie and caller have been checked.
type rateRequest struct {
	Rating json.RawMessage `json:"rating"`
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, err := catalog.ParsePage(query.Get("page"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	order, err := catalog.ParseOrdering(query.Get("ordering"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	result, err := s.catalog.ListMovies(r.Context(), movieFilterFromQuery(query), order, page)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toPageResponse(result, toMovieResponse))
}

func movieFilterFromQuery(query url.Values) catalog.Filter {
	return catalog.Filter{
		Genre: query.Get("genre"),
		Title: query.Get("title"),
		Tag:   query.Get("tag"),
	}
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := movieIDParam(w, r)
	if !ok {
		return
	}
	movie, err := s.catalog.GetMovie(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var req movieCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	if msg := validateRequest(&req); msg != "" {
		respondError(w, http.StatusBadRequest, codeValidation, msg)
		return
	}

	movie, err := s.catalog.CreateMovie(r.Context(), catalog.MovieInput{
		ID:     *req.MovieID,
		Title:  *req.Title,
		Genres: req.Genres,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/movies/%d/", APIPrefix, movie.ID))
	respondJSON(w, http.StatusCreated, toMovieResponse(movie))
}

func (s *Server) handleReplaceMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := movieIDParam(w, r)
	if !ok {
		return
	}

	var req movieReplaceRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	if msg := validateRequest(&req); msg != "" {
		respondError(w, http.StatusBadRequest, codeValidation, msg)
		return
	}
	if !sameMovieID(w, req.MovieID, id) {
		return
	}

	movie, err := s.catalog.UpdateMovie(r.Context(), id, catalog.MovieChanges{
		Title:     req.Title,
		Genres:    req.Genres,
		SetGenres: true,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handlePatchMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := movieIDParam(w, r)
	if !ok {
		return
	}

	var req moviePatchRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	if msg := validateRequest(&req); msg != "" {
		respondError(w, http.StatusBadRequest, codeValidation, msg)
		return
	}
	if !sameMovieID(w, req.MovieID, id) {
		return
	}

	changes := catalog.MovieChanges{Title: req.Title}
	if req.Genres != nil {
		changes.Genres = *req.Genres
		changes.SetGenres = true
	}
	movie, err := s.catalog.UpdateMovie(r.Context(), id, changes)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleRateMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := movieIDParam(w, r)
	if !ok {
		return
	}

	value, ok := readRatingBody(w, r)
	if !ok {
		return
	}

	who := auth.IdentityFrom(r.Context())
	if _, err := s.catalog.SubmitRating(r.Context(), who, id, value); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, detailResponse{Detail: "Rating added successfully."})
}

// movieIDParam parses the {movieId} path segment. Anything that is not an
// integer cannot name a movie, so it is reported as not found.
func movieIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "movieId")
	id, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("movie %q not found", raw))
		return 0, false
	}
	return id, true
}

func sameMovieID(w http.ResponseWriter, bodyID *int, pathID int) bool {
	if bodyID != nil && *bodyID != pathID {
		respondError(w, http.StatusBadRequest, codeValidation,
			fmt.Sprintf("movieId is immutable: body has %d, path has %d", *bodyID, pathID))
		return false
	}
	return true
}
