package httpserver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Clark-Hu/movielens-api/internal/auth"
	"github.com/Clark-Hu/movielens-api/internal/catalog"
	"github.com/Clark-Hu/movielens-api/internal/config"
	"github.com/Clark-Hu/movielens-api/internal/domain"
)

func newBareServer(t *testing.T) *Server {
	t.Helper()
	authMgr, err := auth.NewManager("bare-server-secret-0123", time.Hour)
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}
	cfg := config.Config{RateLimitRequests: 2, RateLimitWindowSecs: 60}
	return New(cfg, nil, catalog.New(nil, nil, nil), authMgr)
}

func TestHealthzWithoutStore(t *testing.T) {
	srv := newBareServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("healthz = %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newBareServer(t)
	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "movielens_api_requests_total") {
		t.Fatalf("metrics endpoint missing request counter: %d", rec.Code)
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	srv := newBareServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/directors/", nil))
	expectErrorCode(t, rec, http.StatusNotFound, codeNotFound)
}

func TestMutatingRoutesRateLimited(t *testing.T) {
	srv := newBareServer(t)
	var last int
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/movies/x/rate/", strings.NewReader(`{}`))
		req.RemoteAddr = "203.0.113.7:1234"
		srv.Handler().ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", last)
	}
}

func TestRespondDomainError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.NotFoundf("movie 1 not found"), http.StatusNotFound, codeNotFound},
		{domain.InvalidArgumentf("bad"), http.StatusBadRequest, codeValidation},
		{domain.Conflictf("dup"), http.StatusConflict, codeConflict},
		{domain.Unauthorizedf("who"), http.StatusUnauthorized, codeUnauthorized},
		{errors.New("connection reset"), http.StatusInternalServerError, codeInternal},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		respondDomainError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
		expectErrorCode(t, rec, tt.status, tt.code)
		if tt.status == http.StatusInternalServerError && strings.Contains(rec.Body.String(), "connection reset") {
			t.Fatalf("internal error leaked: %s", rec.Body.String())
		}
	}
}

func TestToMovieResponse(t *testing.T) {
	view := catalog.MovieView{
		Movie: domain.Movie{ID: 1, Title: "Toy Story (1995)", Genres: "Action|Adventure"},
		Tags:  []string{"pixar", "fun"},
	}
	got := toMovieResponse(view)
	if len(got.Genres) != 2 || got.Genres[0] != "Action" || got.Genres[1] != "Adventure" {
		t.Fatalf("genres = %v", got.Genres)
	}
	if got.Tags != "pixar, fun" {
		t.Fatalf("tags = %q", got.Tags)
	}

	empty := toMovieResponse(catalog.MovieView{Movie: domain.Movie{ID: 2}})
	if empty.Genres == nil || len(empty.Genres) != 0 || empty.Tags != "" {
		t.Fatalf("empty movie = %+v", empty)
	}
}
