package services

import (
	"time"

	"listing-feed/models"
	"listing-feed/utils"
)

// IsStaleEntry reports whether a listing last recorded as entry needs a new
// scrape at now. A missing entry is always stale.
func IsStaleEntry(entry *models.StateEntry, now time.Time, window time.Duration) bool {
	if entry == nil {
		return true
	}
	return entry.LastScraped.Before(now.Add(-window))
}

// StalenessTracker holds the per-URL scrape records of one run. It is loaded
// once at start, updated in place, and handed back for persistence at the end.
// It is not safe for concurrent use.
type StalenessTracker struct {
	window  time.Duration
	now     func() time.Time
	entries map[string]models.StateEntry
	logger  *utils.Logger
}

// NewStalenessTracker wraps previously persisted entries. A nil map starts empty.
func NewStalenessTracker(window time.Duration, entries map[string]models.StateEntry, logger *utils.Logger) *StalenessTracker {
	if entries == nil {
		entries = make(map[string]models.StateEntry)
	}
	return &StalenessTracker{
		window:  window,
		now:     func() time.Time { return time.Now().UTC() },
		entries: entries,
		logger:  logger,
	}
}

// SetClock replaces the time source. Used by tests.
func (t *StalenessTracker) SetClock(now func() time.Time) {
	t.now = now
}

// Entry returns the recorded entry for url, if any.
func (t *StalenessTracker) Entry(url string) (models.StateEntry, bool) {
	e, ok := t.entries[url]
	return e, ok
}

// IsStale reports whether url needs re-scraping.
func (t *StalenessTracker) IsStale(url string) bool {
	e, ok := t.entries[url]
	if !ok {
		return true
	}
	return IsStaleEntry(&e, t.now(), t.window)
}

// FilterStale returns the URLs that need scraping, in input order.
func (t *StalenessTracker) FilterStale(urls []string) []string {
	stale := make([]string, 0, len(urls))
	for _, u := range urls {
		if t.IsStale(u) {
			stale = append(stale, u)
		}
	}
	t.logger.Info("[state] %d/%d URLs need scraping", len(stale), len(urls))
	return stale
}

// Update records a successful scrape, overwriting any previous entry.
func (t *StalenessTracker) Update(l *models.Listing) {
	scraped := l.ScrapedAt
	if scraped.IsZero() {
		scraped = t.now()
	}
	t.entries[l.URL] = models.StateEntry{
		URL:         l.URL,
		MLSID:       l.MLSID,
		LastScraped: scraped.UTC(),
		LastPrice:   l.Price,
		Status:      l.Status,
	}
}

// Record updates the entry of every listing that has an MLS id and returns
// how many were recorded. Listings still missing one keep their previous
// entry so the next run retries them.
func (t *StalenessTracker) Record(listings []*models.Listing) int {
	recorded := 0
	for _, l := range listings {
		if l == nil || l.MLSID == "" {
			continue
		}
		t.Update(l)
		recorded++
	}
	if skipped := len(listings) - recorded; skipped > 0 {
		t.logger.Debug("[state] %d listings without MLS id left unrecorded", skipped)
	}
	return recorded
}

// Entries returns the full collection for persistence.
func (t *StalenessTracker) Entries() map[string]models.StateEntry {
	return t.entries
}

// Len returns the number of tracked URLs.
func (t *StalenessTracker) Len() int {
	return len(t.entries)
}
