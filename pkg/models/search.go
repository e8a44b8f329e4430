package models

// SearchFilters are the immutable per-request search parameters.
// Optional fields are pointers so that an unset filter is distinguishable from a zero value.
type SearchFilters struct {
	Text      string    `json:"text,omitempty"`
	MinPrice  *float64  `json:"minPrice,omitempty" validate:"omitempty,gte=0"`
	MaxPrice  *float64  `json:"maxPrice,omitempty" validate:"omitempty,gte=0"`
	Rooms     *int      `json:"rooms,omitempty" validate:"omitempty,gte=0"`
	Furnished *bool     `json:"furnished,omitempty"`
	City      string    `json:"city,omitempty"`
	Location  *GeoPoint `json:"location,omitempty"`
	RadiusKm  *float64  `json:"radiusKm,omitempty" validate:"omitempty,gt=0"`
}

// HasRadius reports whether the filters request a radius lookup.
func (f SearchFilters) HasRadius() bool {
	return f.Location != nil && f.RadiusKm != nil && *f.RadiusKm > 0
}

// SearchResult is the outcome of an optimized search.
type SearchResult struct {
	Results   []OptimizedListing `json:"results"`
	Cached    bool               `json:"cached"`
	LatencyMs int64              `json:"latencyMs"`
}
