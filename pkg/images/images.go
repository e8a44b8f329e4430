// Package images derives resized image URLs for listings.
package images

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/homely-rentals/homely/pkg/models"
)

// Size names a fixed image variant.
type Size string

const (
	Thumbnail Size = "thumbnail"
	Medium    Size = "medium"
	Large     Size = "large"
)

const (
	DefaultQuality = 85
	DefaultFormat  = "webp"
)

var dimensions = map[Size]string{
	Thumbnail: "150x150",
	Medium:    "400x300",
	Large:     "800x600",
}

// variantParams are replaced on every variant URL, in this order.
var variantParams = []string{"resize", "quality", "format"}

// Optimizer builds variant URLs with a fixed quality and output format.
type Optimizer struct {
	quality int
	format  string
}

// New creates an Optimizer. Zero values fall back to DefaultQuality and DefaultFormat.
func New(quality int, format string) *Optimizer {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	if format == "" {
		format = DefaultFormat
	}
	return &Optimizer{quality: quality, format: format}
}

var defaultOptimizer = New(DefaultQuality, DefaultFormat)

// BuildVariant builds a variant URL with the default quality and format.
func BuildVariant(rawURL string, size Size) (string, error) {
	return defaultOptimizer.BuildVariant(rawURL, size)
}

// BuildVariant merges resize, quality and format parameters into rawURL's
// query string. Existing values for those parameters are replaced; all other
// parameters keep their original order.
func (o *Optimizer) BuildVariant(rawURL string, size Size) (string, error) {
	dim, ok := dimensions[size]
	if !ok {
		return "", fmt.Errorf("unknown image size %q", size)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse image url: %w", err)
	}

	var kept []string
	if u.RawQuery != "" {
		for _, part := range strings.Split(u.RawQuery, "&") {
			if part == "" {
				continue
			}
			name := part
			if i := strings.IndexByte(part, '='); i >= 0 {
				name = part[:i]
			}
			if isVariantParam(name) {
				continue
			}
			kept = append(kept, part)
		}
	}

	values := []string{dim, strconv.Itoa(o.quality), o.format}
	for i, name := range variantParams {
		kept = append(kept, name+"="+url.QueryEscape(values[i]))
	}
	u.RawQuery = strings.Join(kept, "&")
	return u.String(), nil
}

func isVariantParam(name string) bool {
	for _, p := range variantParams {
		if name == p {
			return true
		}
	}
	return false
}

// Group builds the variant sets for each listing in ids. Images are ordered
// primary first, then by position. Listings without images get empty sets.
func (o *Optimizer) Group(ids []string, images map[string][]models.ListingImage) (map[string]models.ImageVariants, error) {
	out := make(map[string]models.ImageVariants, len(ids))
	for _, id := range ids {
		imgs := append([]models.ListingImage(nil), images[id]...)
		sort.SliceStable(imgs, func(i, j int) bool {
			if imgs[i].IsPrimary != imgs[j].IsPrimary {
				return imgs[i].IsPrimary
			}
			return imgs[i].Position < imgs[j].Position
		})

		v := models.ImageVariants{
			Thumbnail: make([]string, 0, len(imgs)),
			Medium:    make([]string, 0, len(imgs)),
			Large:     make([]string, 0, len(imgs)),
			Original:  make([]string, 0, len(imgs)),
		}
		for _, img := range imgs {
			thumb, err := o.BuildVariant(img.URL, Thumbnail)
			if err != nil {
				return nil, fmt.Errorf("listing %s: %w", id, err)
			}
			medium, err := o.BuildVariant(img.URL, Medium)
			if err != nil {
				return nil, fmt.Errorf("listing %s: %w", id, err)
			}
			large, err := o.BuildVariant(img.URL, Large)
			if err != nil {
				return nil, fmt.Errorf("listing %s: %w", id, err)
			}
			v.Thumbnail = append(v.Thumbnail, thumb)
			v.Medium = append(v.Medium, medium)
			v.Large = append(v.Large, large)
			v.Original = append(v.Original, img.URL)
		}
		out[id] = v
	}
	return out, nil
}

// PreloadScript returns a browser snippet that preloads every thumbnail in
// groups. Listings are visited in ID order so the output is stable.
func PreloadScript(groups map[string]models.ImageVariants) string {
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	urls := []string{}
	for _, id := range ids {
		urls = append(urls, groups[id].Thumbnail...)
	}
	// json.Marshal escapes <, > and & so the list is safe inside a script tag.
	list, _ := json.Marshal(urls)

	return `(function(){var urls=` + string(list) + `;` +
		`urls.forEach(function(u){var l=document.createElement("link");` +
		`l.rel="preload";l.as="image";l.href=u;document.head.appendChild(l);});})();`
}
