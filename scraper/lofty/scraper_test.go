package lofty

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-feed/models"
	"listing-feed/services"
	"listing-feed/utils"
)

// fakeFactory hands out the discovery browser first and detail browsers after.
type fakeFactory struct {
	mu       sync.Mutex
	discover *fakeBrowser
	html     map[string]string
	opened   []*fakeBrowser
	err      error
}

func (f *fakeFactory) open(_ context.Context) (Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var b *fakeBrowser
	if len(f.opened) == 0 {
		b = f.discover
	} else {
		b = newFakeBrowser()
		b.html = f.html
	}
	f.opened = append(f.opened, b)
	return b, nil
}

func (f *fakeFactory) navigations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, b := range f.opened[1:] {
		out = append(out, b.navigateTo...)
	}
	return out
}

func newTestScraper(f *fakeFactory, entries map[string]models.StateEntry) *Scraper {
	logger := utils.NewDiscardLogger()
	tracker := services.NewStalenessTracker(12*time.Hour, entries, logger)
	s := New(testConfig(), f.open, tracker, logger)
	s.SetPacer(utils.NewPacer(0))
	return s
}

func TestScrapeWithoutGapsSkipsDetailPages(t *testing.T) {
	d := newFakeBrowser()
	d.pages[1] = searchItems(1, 5)
	f := &fakeFactory{discover: d}

	got, err := newTestScraper(f, nil).Scrape(context.Background())
	require.NoError(t, err)

	assert.Len(t, got, 5)
	assert.Len(t, f.opened, 1)
	assert.True(t, d.closed)
}

func TestScrapeEnrichesListingsMissingMLSID(t *testing.T) {
	items := searchItems(1, 3)
	items[1].MLSListingID = ""
	items[2] = items[1]

	d := newFakeBrowser()
	d.pages[1] = items
	f := &fakeFactory{
		discover: d,
		html:     map[string]string{"https://realtor.example/listing-detail/2": detailPage()},
	}

	got, err := newTestScraper(f, nil).Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "MLS1", got[0].MLSID)
	assert.Equal(t, "219100000", got[1].MLSID)
	assert.Equal(t, "219100000", got[2].MLSID)
	assert.Equal(t, "2", got[1].SiteID)
	assert.Equal(t, []string{"https://realtor.example/listing-detail/2"}, f.navigations())
}

func TestScrapeReusesFreshStateInsteadOfExtracting(t *testing.T) {
	items := searchItems(1, 2)
	items[0].MLSListingID = ""

	d := newFakeBrowser()
	d.pages[1] = items
	f := &fakeFactory{discover: d}

	u := "https://realtor.example/listing-detail/1"
	entries := map[string]models.StateEntry{
		u: {URL: u, MLSID: "FROMSTATE", LastScraped: time.Now().UTC().Add(-time.Hour)},
	}

	got, err := newTestScraper(f, entries).Scrape(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "FROMSTATE", got[0].MLSID)
	assert.Empty(t, f.navigations())
}

func TestScrapeKeepsListingWhenExtractionFails(t *testing.T) {
	items := searchItems(1, 1)
	items[0].PreviewPicture = ""

	d := newFakeBrowser()
	d.pages[1] = items
	f := &fakeFactory{discover: d, html: map[string]string{}}

	got, err := newTestScraper(f, nil).Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "MLS1", got[0].MLSID)
	assert.Empty(t, got[0].ImageURL)
}

func TestScrapeRetriesFailedDetailPageNextRun(t *testing.T) {
	items := searchItems(1, 1)
	items[0].MLSListingID = ""
	u := "https://realtor.example/listing-detail/1"

	logger := utils.NewDiscardLogger()
	tracker := services.NewStalenessTracker(12*time.Hour, nil, logger)
	scrape := func(html map[string]string) ([]*models.Listing, *fakeFactory) {
		d := newFakeBrowser()
		d.pages[1] = items
		f := &fakeFactory{discover: d, html: html}
		s := New(testConfig(), f.open, tracker, logger)
		s.SetPacer(utils.NewPacer(0))
		got, err := s.Scrape(context.Background())
		require.NoError(t, err)
		tracker.Record(got)
		return got, f
	}

	first, f1 := scrape(map[string]string{})
	assert.Empty(t, first[0].MLSID)
	assert.Equal(t, []string{u}, f1.navigations())

	second, f2 := scrape(map[string]string{u: detailPage()})
	assert.Equal(t, []string{u}, f2.navigations())
	assert.Equal(t, "219100000", second[0].MLSID)
}

func TestScrapeRereadsPageWhenStateHasNoMLSID(t *testing.T) {
	items := searchItems(1, 1)
	items[0].MLSListingID = ""
	u := "https://realtor.example/listing-detail/1"

	d := newFakeBrowser()
	d.pages[1] = items
	f := &fakeFactory{discover: d, html: map[string]string{u: detailPage()}}
	entries := map[string]models.StateEntry{
		u: {URL: u, MLSID: "", LastScraped: time.Now().UTC().Add(-time.Hour)},
	}

	got, err := newTestScraper(f, entries).Scrape(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "219100000", got[0].MLSID)
	assert.Equal(t, []string{u}, f.navigations())
}

func TestScrapeSessionFailure(t *testing.T) {
	f := &fakeFactory{err: errors.New("chrome not found")}

	got, err := newTestScraper(f, nil).Scrape(context.Background())
	assert.ErrorIs(t, err, ErrSessionFailed)
	assert.Empty(t, got)
}

func TestExtractOne(t *testing.T) {
	d := newFakeBrowser()
	d.html[detailURL] = detailPage()
	f := &fakeFactory{discover: d}

	l, err := newTestScraper(f, nil).ExtractOne(context.Background(), detailURL)
	require.NoError(t, err)
	assert.Equal(t, "219100000", l.MLSID)
	assert.True(t, d.closed)
}
