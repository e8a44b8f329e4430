package models

// ImageVariants groups the derived URLs of one listing's images.
type ImageVariants struct {
	Thumbnail []string `json:"thumbnail"`
	Medium    []string `json:"medium"`
	Large     []string `json:"large"`
	Original  []string `json:"original"`
}

// CityCount is the number of available listings in a city.
type CityCount struct {
	City  string `json:"city"`
	Count int64  `json:"count"`
}

// PriceStats summarizes rents for a city.
type PriceStats struct {
	City  string  `json:"city"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int64   `json:"count"`
}

// TrendingSearch is a frequently issued free-text query.
type TrendingSearch struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// PopularCounts reports how many items of each popular dataset were cached.
type PopularCounts struct {
	PopularApartments int `json:"popularApartments"`
	Cities            int `json:"cities"`
	PriceStats        int `json:"priceStats"`
	TrendingSearches  int `json:"trendingSearches"`
}
