package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/homely-rentals/homely/pkg/models"
)

const listingColumns = `l.id, l.title, l.description, l.address, l.city, l.rent, l.rooms, l.size,
	l.furnished, l.lat, l.lng, l.available, l.created_at,
	COALESCE(a.views, 0), COALESCE(a.likes, 0)`

const listingFrom = ` FROM listings l LEFT JOIN listing_analytics a ON a.listing_id = l.id`

// ExecutePlan runs a plan ordered by recency descending and returns the
// matching listings with their images and analytics attached.
func (s *Store) ExecutePlan(ctx context.Context, p Plan) ([]models.Listing, error) {
	where, args, err := p.where()
	if err != nil {
		return nil, fmt.Errorf("build plan: %w", err)
	}

	query := `SELECT ` + listingColumns + listingFrom + ` WHERE ` + where +
		` ORDER BY l.created_at DESC, l.id`
	if p.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, p.Limit)
	}

	return s.queryListings(ctx, query, args...)
}

// PopularListings returns the n available listings with the most views.
func (s *Store) PopularListings(ctx context.Context, n int) ([]models.Listing, error) {
	query := `SELECT ` + listingColumns + listingFrom +
		` WHERE l.available = 1 ORDER BY COALESCE(a.views, 0) DESC, l.created_at DESC LIMIT ?`
	return s.queryListings(ctx, query, n)
}

// GetListing returns one listing by ID.
func (s *Store) GetListing(ctx context.Context, id string) (models.Listing, error) {
	query := `SELECT ` + listingColumns + listingFrom + ` WHERE l.id = ?`
	listings, err := s.queryListings(ctx, query, id)
	if err != nil {
		return models.Listing{}, err
	}
	if len(listings) == 0 {
		return models.Listing{}, ErrNotFound
	}
	return listings[0], nil
}

func (s *Store) queryListings(ctx context.Context, query string, args ...any) ([]models.Listing, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		var lat, lng sql.NullFloat64
		if err := rows.Scan(&l.ID, &l.Title, &l.Description, &l.Address, &l.City, &l.Rent, &l.Rooms, &l.Size,
			&l.Furnished, &lat, &lng, &l.Available, &l.CreatedAt,
			&l.Analytics.Views, &l.Analytics.Likes); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		if lat.Valid && lng.Valid {
			l.Location = &models.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	if len(listings) == 0 {
		return listings, nil
	}

	ids := make([]string, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
	}
	images, err := s.ImagesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range listings {
		listings[i].Images = images[listings[i].ID]
	}
	return listings, nil
}

// ImagesFor returns the images of each listing, ordered by position.
// Listings without images are absent from the map.
func (s *Store) ImagesFor(ctx context.Context, listingIDs []string) (map[string][]models.ListingImage, error) {
	out := make(map[string][]models.ListingImage)
	if len(listingIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(listingIDs))
	for i, id := range listingIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, listing_id, url, is_primary, position FROM listing_images
		 WHERE listing_id IN (`+placeholders(len(listingIDs))+`) ORDER BY listing_id, position, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img models.ListingImage
		if err := rows.Scan(&img.ID, &img.ListingID, &img.URL, &img.IsPrimary, &img.Position); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		out[img.ListingID] = append(out[img.ListingID], img)
	}
	return out, rows.Err()
}

const earthRadiusKm = 6371.0

// IDsWithinRadius returns the IDs of available listings within radiusKm of center.
// A bounding box narrows candidates in SQL; the great-circle distance decides.
func (s *Store) IDsWithinRadius(ctx context.Context, center models.GeoPoint, radiusKm float64) ([]string, error) {
	if radiusKm <= 0 {
		return nil, nil
	}

	latDelta := radiusKm / 111.32
	lngDelta := 180.0
	if c := math.Cos(center.Lat * math.Pi / 180); c > 1e-6 {
		lngDelta = math.Min(180, radiusKm/(111.32*c))
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lat, lng FROM listings
		 WHERE available = 1 AND lat IS NOT NULL AND lng IS NOT NULL
		   AND lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?`,
		center.Lat-latDelta, center.Lat+latDelta, center.Lng-lngDelta, center.Lng+lngDelta,
	)
	if err != nil {
		return nil, fmt.Errorf("radius lookup: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		var p models.GeoPoint
		if err := rows.Scan(&id, &p.Lat, &p.Lng); err != nil {
			return nil, fmt.Errorf("scan radius row: %w", err)
		}
		if Haversine(center, p) <= radiusKm {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b models.GeoPoint) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(math.Min(1, h)))
}

// UpsertListing inserts or replaces a listing together with its images and analytics.
func (s *Store) UpsertListing(ctx context.Context, l models.Listing) (err error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lat, lng sql.NullFloat64
	if l.Location != nil {
		lat = sql.NullFloat64{Float64: l.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: l.Location.Lng, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO listings (id, title, description, address, city, rent, rooms, size, furnished, lat, lng, available, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, description = excluded.description, address = excluded.address,
			city = excluded.city, rent = excluded.rent, rooms = excluded.rooms, size = excluded.size,
			furnished = excluded.furnished, lat = excluded.lat, lng = excluded.lng,
			available = excluded.available, created_at = excluded.created_at`,
		l.ID, l.Title, l.Description, l.Address, l.City, l.Rent, l.Rooms, l.Size, l.Furnished,
		lat, lng, l.Available, l.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert listing: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM listing_images WHERE listing_id = ?`, l.ID); err != nil {
		return fmt.Errorf("reset images: %w", err)
	}
	positioned := false
	for _, img := range l.Images {
		if img.Position != 0 {
			positioned = true
			break
		}
	}
	for i, img := range l.Images {
		if img.ID == "" {
			img.ID = uuid.NewString()
		}
		pos := img.Position
		if !positioned {
			pos = i
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO listing_images (id, listing_id, url, is_primary, position) VALUES (?, ?, ?, ?, ?)`,
			img.ID, l.ID, img.URL, img.IsPrimary, pos,
		); err != nil {
			return fmt.Errorf("insert image: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO listing_analytics (listing_id, views, likes) VALUES (?, ?, ?)
		 ON CONFLICT(listing_id) DO UPDATE SET views = excluded.views, likes = excluded.likes`,
		l.ID, l.Analytics.Views, l.Analytics.Likes,
	)
	if err != nil {
		return fmt.Errorf("upsert analytics: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// timeOrNow is used by callers that accept an optional timestamp.
func (s *Store) timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return s.now().UTC()
	}
	return t.UTC()
}
