package models

import "time"

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" yaml:"lng" validate:"gte=-180,lte=180"`
}

// ListingImage is an image attached to a listing.
type ListingImage struct {
	ID        string `json:"id" yaml:"id"`
	ListingID string `json:"listing_id" yaml:"-"`
	URL       string `json:"url" yaml:"url"`
	IsPrimary bool   `json:"is_primary" yaml:"is_primary"`
	Position  int    `json:"position" yaml:"position"`
}

// ListingAnalytics holds engagement counters for a listing.
type ListingAnalytics struct {
	Views int64 `json:"views" yaml:"views"`
	Likes int64 `json:"likes" yaml:"likes"`
}

// Listing is a full backing-store record with its nested collections.
type Listing struct {
	ID          string           `json:"id" yaml:"id"`
	Title       string           `json:"title" yaml:"title" validate:"required"`
	Description string           `json:"description" yaml:"description"`
	Address     string           `json:"address" yaml:"address"`
	City        string           `json:"city" yaml:"city"`
	Rent        float64          `json:"rent" yaml:"rent" validate:"gte=0"`
	Rooms       int              `json:"rooms" yaml:"rooms" validate:"gte=0"`
	Size        float64          `json:"size" yaml:"size" validate:"gte=0"`
	Furnished   bool             `json:"furnished" yaml:"furnished"`
	Location    *GeoPoint        `json:"location,omitempty" yaml:"location"`
	Available   bool             `json:"available" yaml:"available"`
	CreatedAt   time.Time        `json:"created_at" yaml:"created_at"`
	Images      []ListingImage   `json:"images" yaml:"images"`
	Analytics   ListingAnalytics `json:"analytics" yaml:"analytics"`
}

// OptimizedListing is the slim projection returned by search.
type OptimizedListing struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Address         string    `json:"address"`
	Rent            float64   `json:"rent"`
	Rooms           int       `json:"rooms"`
	Size            float64   `json:"size"`
	Furnished       bool      `json:"furnished"`
	City            string    `json:"city"`
	CreatedAt       time.Time `json:"created_at"`
	PrimaryImageURL string    `json:"primary_image_url"`
	TotalViews      int64     `json:"total_views"`
	TotalLikes      int64     `json:"total_likes"`
}
