package services

import (
	"fmt"
	"strings"

	"listing-feed/models"
	"listing-feed/storage"
	"listing-feed/utils"
)

// FeedEmitter turns the run's listings into feed rows and hands them to a writer.
type FeedEmitter struct {
	writer storage.FeedWriter
	region string
	logger *utils.Logger
}

// NewFeedEmitter creates a FeedEmitter writing through w.
func NewFeedEmitter(w storage.FeedWriter, region string, logger *utils.Logger) *FeedEmitter {
	if region == "" {
		region = models.DefaultRegion
	}
	return &FeedEmitter{writer: w, region: region, logger: logger}
}

// Emit writes every active listing with an MLS id and returns the row count.
// With nothing to write it logs a warning, returns 0 and leaves the previous
// feed in place.
func (e *FeedEmitter) Emit(listings []*models.Listing) (int, error) {
	active := FeedEligible(listings)
	if len(active) == 0 {
		e.logger.Warn("[feed] No active listings to write (%d scraped)", len(listings))
		return 0, nil
	}

	rows := make([]models.FeedRow, 0, len(active))
	for _, l := range active {
		rows = append(rows, ToFeedRow(l, e.region))
	}

	if err := e.writer.WriteFeed(rows); err != nil {
		return 0, fmt.Errorf("feed: write: %w", err)
	}

	e.logger.Info("[feed] Wrote %d rows (%d listings dropped as inactive or without MLS id)",
		len(rows), len(listings)-len(rows))
	return len(rows), nil
}

// FeedEligible returns the listings that belong in the feed, in input order.
func FeedEligible(listings []*models.Listing) []*models.Listing {
	out := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if l == nil || strings.TrimSpace(l.MLSID) == "" || !l.IsActive() {
			continue
		}
		out = append(out, l)
	}
	return out
}

// ToFeedRow projects a listing into the feed schema.
func ToFeedRow(l *models.Listing, region string) models.FeedRow {
	var keywords []string
	if l.Subdivision != "" {
		keywords = append(keywords, l.Subdivision)
	}
	if l.Sqft > 0 {
		keywords = append(keywords, fmt.Sprintf("%d sqft", l.Sqft))
	}

	state := l.State
	if state == "" {
		state = region
	}
	city := l.ShortCity()

	return models.FeedRow{
		ListingID:          l.MLSID,
		ListingName:        TruncateName(l.DisplayName()),
		FinalURL:           l.URL,
		ImageURL:           l.ImageURL,
		Price:              FormatPrice(l.Price),
		CityName:           Truncate(city, NameLimit),
		PropertyType:       l.PropertyType,
		ListingType:        models.DefaultListingType,
		Address:            CompleteAddress(l.Address, city, state),
		Description:        NormalizeDescription(l.Description),
		ContextualKeywords: FixKeywords(strings.Join(keywords, ","), ",", KeywordSeparator),
	}
}
