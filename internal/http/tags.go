package httpserver

import (
	"net/http"

	"github.com/Clark-Hu/movielens-api/internal/catalog"
	"github.com/Clark-Hu/movielens-api/internal/repository"
)

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, err := catalog.ParsePage(query.Get("page"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	movieID, err := optionalIntParam(query, "movieId")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	result, err := s.catalog.ListTags(r.Context(), repository.TagFilter{MovieID: movieID}, page)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toPageResponse(result, toTagResponse))
}

func (s *Server) handleGetTag(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "tagId", "tag")
	if !ok {
		return
	}
	tag, err := s.catalog.GetTag(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toTagResponse(tag))
}
