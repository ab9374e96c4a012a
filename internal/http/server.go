package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Clark-Hu/movielens-api/internal/auth"
	"github.com/Clark-Hu/movielens-api/internal/catalog"
	"github.com/Clark-Hu/movielens-api/internal/config"
	"github.com/Clark-Hu/movielens-api/internal/logging"
	"github.com/Clark-Hu/movielens-api/internal/store"
)

// APIPrefix is the root of every resource route.
const APIPrefix = "/api/v1"

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg     config.Config
	store   *store.Store
	catalog *catalog.Service
	auth    *auth.Manager
	router  chi.Router
	httpSrv *http.Server
}

// New constructs the HTTP server with base middleware and routes. st may be
// nil, in which case /healthz only reports the process as up.
func New(cfg config.Config, st *store.Store, svc *catalog.Service, authMgr *auth.Manager) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		catalog: svc,
		auth:    authMgr,
		router:  chi.NewRouter(),
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(instrument)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.StripSlashes)
	if len(cfg.CORSAllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"Location"},
			MaxAge:         300,
		}))
	}
	s.router.Use(authMgr.Identify)
	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	limit := s.rateLimit()

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route(APIPrefix, func(r chi.Router) {
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusNotFound, codeNotFound, "Resource not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		})

		r.Route("/movies", func(r chi.Router) {
			r.Get("/", s.handleListMovies)
			r.With(requireIdentity, limit).Post("/", s.handleCreateMovie)
			r.Route("/{movieId}", func(r chi.Router) {
				r.Get("/", s.handleGetMovie)
				r.With(requireIdentity, limit).Put("/", s.handleReplaceMovie)
				r.With(requireIdentity, limit).Patch("/", s.handlePatchMovie)
				// The rating workflow reports a missing movie before an
				// anonymous caller, so identity is checked there.
				r.With(limit).Post("/rate", s.handleRateMovie)
			})
		})

		r.Route("/ratings", func(r chi.Router) {
			r.Get("/", s.handleListRatings)
			r.With(requireIdentity, limit).Post("/", s.handleCreateRating)
			r.Get("/{ratingId}", s.handleGetRating)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.handleListTags)
			r.Get("/{tagId}", s.handleGetTag)
		})
	})
}

// Start boots the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

type healthResponse struct {
	Status string     `json:"status"`
	Pool   *poolStats `json:"pool,omitempty"`
}

type poolStats struct {
	TotalConns    int32 `json:"totalConns"`
	IdleConns     int32 `json:"idleConns"`
	AcquiredConns int32 `json:"acquiredConns"`
	MaxConns      int32 `json:"maxConns"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		requestLogger(r).Warn().Err(err).Msg("health check failed")
		respondJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}

	stat := s.store.Stats()
	respondJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Pool: &poolStats{
			TotalConns:    stat.TotalConns(),
			IdleConns:     stat.IdleConns(),
			AcquiredConns: stat.AcquiredConns(),
			MaxConns:      stat.MaxConns(),
		},
	})
}
