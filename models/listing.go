package models

import (
	"fmt"
	"strings"
	"time"
)

// DefaultRegion is the state code used when a source omits one.
const DefaultRegion = "CA"

// inactiveMarkers are status substrings that take a listing out of the feed.
var inactiveMarkers = []string{"sold", "closed", "pending", "withdrawn", "expired", "cancelled"}

// Listing is the canonical, reconciled record for one property.
// It is mutated while sources are merged and treated as read-only afterwards.
type Listing struct {
	URL          string    `json:"url"`
	SiteID       string    `json:"site_id"`
	MLSID        string    `json:"mls_id"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postal_code"`
	Price        float64   `json:"price"`
	Bedrooms     int       `json:"bedrooms"`
	Bathrooms    int       `json:"bathrooms"`
	Sqft         int       `json:"sqft"`
	PropertyType string    `json:"property_type"`
	Status       string    `json:"status"`
	ImageURL     string    `json:"image_url"`
	Description  string    `json:"description"`
	Subdivision  string    `json:"subdivision"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// NewListing returns a Listing for url stamped with the current UTC time.
func NewListing(url string) *Listing {
	return &Listing{
		URL:       url,
		State:     DefaultRegion,
		ScrapedAt: time.Now().UTC(),
	}
}

// IsActive reports whether the listing is still on the market.
func (l *Listing) IsActive() bool {
	s := strings.ToLower(l.Status)
	if s == "" {
		return false
	}
	for _, marker := range inactiveMarkers {
		if strings.Contains(s, marker) {
			return false
		}
	}
	return true
}

// ShortCity returns the city without any trailing ", ST 12345" part.
func (l *Listing) ShortCity() string {
	city, _, _ := strings.Cut(l.City, ",")
	return strings.TrimSpace(city)
}

// DisplayName builds "3BR Condo in Palm Desert" style names. The result is
// not length-limited; callers apply the feed's name ceiling.
func (l *Listing) DisplayName() string {
	var parts []string
	if l.Bedrooms > 0 {
		parts = append(parts, fmt.Sprintf("%dBR", l.Bedrooms))
	}
	if l.PropertyType != "" {
		parts = append(parts, l.PropertyType)
	}
	if city := l.ShortCity(); city != "" {
		parts = append(parts, "in "+city)
	}
	if len(parts) == 0 {
		return l.Address
	}
	return strings.Join(parts, " ")
}

// StateEntry is the persisted per-URL scrape record used for staleness checks.
type StateEntry struct {
	URL         string    `json:"url"`
	MLSID       string    `json:"mls_id"`
	LastScraped time.Time `json:"last_scraped"`
	LastPrice   float64   `json:"last_price"`
	Status      string    `json:"status"`
}
