// Package server exposes the optimizer actions over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/homely-rentals/homely/pkg/metrics"
	"github.com/homely-rentals/homely/pkg/models"
)

// ErrUnknownAction is returned for an action name with no handler.
var ErrUnknownAction = errors.New("Unknown action")

const maxBodyBytes = 1 << 20

// Searcher answers optimize-search.
type Searcher interface {
	Search(ctx context.Context, filters models.SearchFilters) (models.SearchResult, error)
}

// Warmer answers cache-popular.
type Warmer interface {
	Popular(ctx context.Context) (models.PopularCounts, error)
}

// ImageSource loads listing images for preload-images.
type ImageSource interface {
	ImagesFor(ctx context.Context, listingIDs []string) (map[string][]models.ListingImage, error)
}

// ImageGrouper derives variant URLs for preload-images.
type ImageGrouper interface {
	Group(ids []string, images map[string][]models.ListingImage) (map[string]models.ImageVariants, error)
}

// Maintainer answers optimize-db.
type Maintainer interface {
	Run(ctx context.Context) []models.OperationResult
}

// Reporter answers performance-report.
type Reporter interface {
	Report(ctx context.Context) (models.PerformanceReport, error)
}

// Clearer answers clear-cache.
type Clearer interface {
	Clear(pattern string) int
}

// Pinger backs the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the HTTP settings.
type Config struct {
	Listen      string
	BasePath    string
	MetricsPath string
}

// Deps are the components behind each action. Metrics may be nil.
type Deps struct {
	Search      Searcher
	Warmup      Warmer
	Images      ImageSource
	Variants    ImageGrouper
	Maintenance Maintainer
	Report      Reporter
	Cache       Clearer
	Health      Pinger
	Metrics     *metrics.Metrics
	Log         logrus.FieldLogger
	Now         func() time.Time
}

type handlerFunc func(r *http.Request) (any, error)

// Server routes action requests to their handlers.
type Server struct {
	cfg      Config
	deps     Deps
	log      logrus.FieldLogger
	now      func() time.Time
	validate *validator.Validate
	actions  map[string]handlerFunc
	mux      *chi.Mux
}

// New creates a Server with all routes registered.
func New(cfg Config, deps Deps) *Server {
	if cfg.BasePath == "" {
		cfg.BasePath = "/performance-optimizer"
	}
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		log:      deps.Log,
		now:      deps.Now,
		validate: validator.New(),
		mux:      chi.NewRouter(),
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.actions = map[string]handlerFunc{
		"optimize-search":    s.handleOptimizeSearch,
		"cache-popular":      s.handleCachePopular,
		"preload-images":     s.handlePreloadImages,
		"optimize-db":        s.handleOptimizeDB,
		"performance-report": s.handlePerformanceReport,
		"clear-cache":        s.handleClearCache,
	}

	s.mux.Use(chimiddleware.RealIP)
	s.mux.Use(s.requestID)
	s.mux.Use(s.accessLog)
	s.mux.Use(chimiddleware.Recoverer)
	s.mux.Use(cors)

	s.mux.Get("/healthz", s.handleHealth)
	if deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle(cfg.MetricsPath, deps.Metrics.Handler())
	}
	s.mux.Route(cfg.BasePath, func(r chi.Router) {
		r.HandleFunc("/", s.dispatch)
		r.HandleFunc("/{action}", s.dispatch)
	})
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server and shuts it down gracefully when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithFields(logrus.Fields{
			"listen":    s.cfg.Listen,
			"base_path": s.cfg.BasePath,
		}).Info("homely optimizer listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

// dispatch runs the handler named by the trailing path segment and converts
// any failure, including a panic, into a uniform 500 response.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	start := s.now()

	body, err := s.invoke(action, r)

	label := action
	if _, ok := s.actions[action]; !ok {
		label = "unknown"
	}
	s.deps.Metrics.ObserveAction(label, err == nil, s.now().Sub(start))

	if err != nil {
		s.log.WithFields(logrus.Fields{
			"action":     action,
			"request_id": RequestIDFrom(r.Context()),
		}).WithError(err).Warn("action failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) invoke(action string, r *http.Request) (body any, err error) {
	h, ok := s.actions[action]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("internal error: %v", p)
		}
	}()
	return h(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// decodeBody reads an optional JSON body into v and validates it.
// An empty body leaves v untouched.
func (s *Server) decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, errorResponse{Success: false, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
