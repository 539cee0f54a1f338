package lofty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"listing-feed/config"
	"listing-feed/models"
)

// fakeBrowser serves canned search pages and detail HTML.
type fakeBrowser struct {
	mu sync.Mutex

	// pages maps page number to items; a missing page fails the fetch.
	pages      map[int][]models.SearchItem
	counts     string
	html       map[string]string
	waitErr    map[string]error
	navigateTo []string
	fetched    []string
	headers    map[string]string
	current    string
	closed     bool
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		pages:   make(map[int][]models.SearchItem),
		html:    make(map[string]string),
		waitErr: make(map[string]error),
		counts:  "0",
	}
}

func (b *fakeBrowser) Navigate(_ context.Context, u string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.navigateTo = append(b.navigateTo, u)
	b.current = u
	return nil
}

func (b *fakeBrowser) WaitFor(_ context.Context, selector string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.waitErr[selector]
}

func (b *fakeBrowser) Evaluate(_ context.Context, _ string, _ any) error {
	return nil
}

func (b *fakeBrowser) FetchJSON(_ context.Context, path string, headers map[string]string, out any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetched = append(b.fetched, path)
	b.headers = headers

	u, err := url.Parse(path)
	if err != nil {
		return err
	}
	page, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil {
		return err
	}
	items, ok := b.pages[page]
	if !ok {
		return fmt.Errorf("fetch %s: status 500", path)
	}
	body, err := json.Marshal(map[string]any{"listings": items, "counts": json.RawMessage(b.counts)})
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (b *fakeBrowser) HTML(_ context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.html[b.current]
	if !ok {
		return "", errors.New("no document")
	}
	return h, nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBrowser) fetchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.fetched)
}

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:        "https://realtor.example",
		SiteID:         "128008",
		Region:         "CA",
		PageSize:       100,
		Concurrency:    2,
		MaxRetries:     1,
		SessionTimeout: time.Second,
		PageTimeout:    time.Second,
	}
}

// searchItems returns n items with ids starting at first.
func searchItems(first, n int) []models.SearchItem {
	items := make([]models.SearchItem, n)
	for i := range items {
		id := first + i
		items[i] = models.SearchItem{
			ID:             models.FlexString(strconv.Itoa(id)),
			MLSListingID:   models.FlexString(fmt.Sprintf("MLS%d", id)),
			Price:          500000,
			City:           "Palm Desert",
			State:          "CA",
			StreetAddress:  fmt.Sprintf("%d Main St", id),
			PreviewPicture: fmt.Sprintf("https://cdn.example/%d.jpg", id),
			DetailURL:      fmt.Sprintf("/listing-detail/%d", id),
		}
	}
	return items
}
