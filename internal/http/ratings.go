package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/Clark-Hu/movielens-api/internal/auth"
	"github.com/Clark-Hu/movielens-api/internal/catalog"
	"github.com/Clark-Hu/movielens-api/internal/repository"
)

type ratingCreateRequest struct {
	MovieID *int            `json:"movieId" validate:"required"`
	Rating  json.RawMessage `json:"rating"`
}

func (s *Server) handleListRatings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, err := catalog.ParsePage(query.Get("page"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	userID, err := optionalIntParam(query, "userId")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	movieID, err := optionalIntParam(query, "movieId")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	result, err := s.catalog.ListRatings(r.Context(), repository.RatingFilter{UserID: userID, MovieID: movieID}, page)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toPageResponse(result, toRatingResponse))
}

func (s *Server) handleGetRating(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "ratingId", "rating")
	if !ok {
		return
	}
	rating, err := s.catalog.GetRating(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toRatingResponse(rating))
}

// handleCreateRating is the collection-level twin of POST /movies/{id}/rate.
// It goes through the same workflow and answers with the stored rating.
func (s *Server) handleCreateRating(w http.ResponseWriter, r *http.Request) {
	var req ratingCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	if msg := validateRequest(&req); msg != "" {
		respondError(w, http.StatusBadRequest, codeValidation, msg)
		return
	}

	rating, err := s.catalog.SubmitRating(r.Context(), auth.IdentityFrom(r.Context()), *req.MovieID, ratingValue(req.Rating))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("%s/ratings/%d/", APIPrefix, rating.ID))
	respondJSON(w, http.StatusCreated, toRatingResponse(rating))
}

// readRatingBody decodes a rate submission. Only an oversized body is rejected
// here; any other body problem travels with the returned value and is reported
// by the workflow as an invalid rating.
func readRatingBody(w http.ResponseWriter, r *http.Request) (catalog.RatingValue, bool) {
	var req rateRequest
	err := decodeJSONBody(w, r, &req)
	if err == nil {
		return ratingValue(req.Rating), true
	}
	var reqErr *requestError
	if errors.As(err, &reqErr) && reqErr.status == http.StatusBadRequest {
		return catalog.RatingValue{Problem: reqErr.message}, true
	}
	respondDecodeError(w, err)
	return catalog.RatingValue{}, false
}

// ratingValue reads the submitted rating; null or absent counts as missing.
func ratingValue(raw json.RawMessage) catalog.RatingValue {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return catalog.RatingValue{Problem: "rating is required"}
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return catalog.RatingValue{Problem: "rating must be a number"}
	}
	return catalog.Score(value)
}

// optionalIntParam parses an optional integer filter; absent means 0.
func optionalIntParam(query url.Values, key string) (int, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return value, nil
}

func int64Param(w http.ResponseWriter, r *http.Request, param, resource string) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondError(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("%s %q not found", resource, raw))
		return 0, false
	}
	return id, true
}
