package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/homely-rentals/homely/pkg/images"
	"github.com/homely-rentals/homely/pkg/models"
)

var errNotConfigured = errors.New("action not configured")

type searchRequest struct {
	Query    string                `json:"query"`
	Filters  *models.SearchFilters `json:"filters"`
	Location *models.GeoPoint      `json:"location"`
	Radius   *float64              `json:"radius" validate:"omitempty,gt=0"`
}

// filters merges the top-level query, location and radius into the filter object.
func (req searchRequest) filters() models.SearchFilters {
	var f models.SearchFilters
	if req.Filters != nil {
		f = *req.Filters
	}
	if req.Query != "" {
		f.Text = req.Query
	}
	if req.Location != nil {
		f.Location = req.Location
	}
	if req.Radius != nil {
		f.RadiusKm = req.Radius
	}
	return f
}

type searchResponse struct {
	Success      bool                      `json:"success"`
	Results      []models.OptimizedListing `json:"results"`
	Cached       bool                      `json:"cached"`
	ResponseTime int64                     `json:"responseTime"`
	ResultCount  int                       `json:"resultCount"`
}

func (s *Server) handleOptimizeSearch(r *http.Request) (any, error) {
	if s.deps.Search == nil {
		return nil, errNotConfigured
	}
	var req searchRequest
	if err := s.decodeBody(r, &req); err != nil {
		return nil, err
	}
	res, err := s.deps.Search.Search(r.Context(), req.filters())
	if err != nil {
		return nil, err
	}
	return searchResponse{
		Success:      true,
		Results:      res.Results,
		Cached:       res.Cached,
		ResponseTime: res.LatencyMs,
		ResultCount:  len(res.Results),
	}, nil
}

type cachePopularResponse struct {
	Success bool                 `json:"success"`
	Cached  models.PopularCounts `json:"cached"`
}

func (s *Server) handleCachePopular(r *http.Request) (any, error) {
	if s.deps.Warmup == nil {
		return nil, errNotConfigured
	}
	counts, err := s.deps.Warmup.Popular(r.Context())
	if err != nil {
		return nil, err
	}
	return cachePopularResponse{Success: true, Cached: counts}, nil
}

type preloadRequest struct {
	ApartmentIDs []string `json:"apartmentIds" validate:"required,max=100,dive,required"`
}

type preloadResponse struct {
	Success       bool                            `json:"success"`
	Images        map[string]models.ImageVariants `json:"images"`
	PreloadScript string                          `json:"preloadScript"`
}

func (s *Server) handlePreloadImages(r *http.Request) (any, error) {
	if s.deps.Images == nil || s.deps.Variants == nil {
		return nil, errNotConfigured
	}
	var req preloadRequest
	if err := s.decodeBody(r, &req); err != nil {
		return nil, err
	}
	imgs, err := s.deps.Images.ImagesFor(r.Context(), req.ApartmentIDs)
	if err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	groups, err := s.deps.Variants.Group(req.ApartmentIDs, imgs)
	if err != nil {
		return nil, err
	}
	return preloadResponse{
		Success:       true,
		Images:        groups,
		PreloadScript: images.PreloadScript(groups),
	}, nil
}

type optimizeDBResponse struct {
	Success       bool                     `json:"success"`
	Optimizations []models.OperationResult `json:"optimizations"`
	Timestamp     time.Time                `json:"timestamp"`
}

func (s *Server) handleOptimizeDB(r *http.Request) (any, error) {
	if s.deps.Maintenance == nil {
		return nil, errNotConfigured
	}
	results := s.deps.Maintenance.Run(r.Context())
	return optimizeDBResponse{
		Success:       true,
		Optimizations: results,
		Timestamp:     s.now().UTC(),
	}, nil
}

type reportResponse struct {
	Success bool `json:"success"`
	models.PerformanceReport
}

func (s *Server) handlePerformanceReport(r *http.Request) (any, error) {
	if s.deps.Report == nil {
		return nil, errNotConfigured
	}
	rep, err := s.deps.Report.Report(r.Context())
	if err != nil {
		return nil, err
	}
	return reportResponse{Success: true, PerformanceReport: rep}, nil
}

type clearCacheResponse struct {
	Success bool   `json:"success"`
	Cleared int    `json:"cleared"`
	Pattern string `json:"pattern"`
}

func (s *Server) handleClearCache(r *http.Request) (any, error) {
	if s.deps.Cache == nil {
		return nil, errNotConfigured
	}
	pattern := r.URL.Query().Get("pattern")
	cleared := s.deps.Cache.Clear(pattern)

	label := pattern
	if label == "" {
		label = "all"
	}
	return clearCacheResponse{Success: true, Cleared: cleared, Pattern: label}, nil
}
