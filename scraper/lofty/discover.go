package lofty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"listing-feed/config"
	"listing-feed/models"
	"listing-feed/services"
	"listing-feed/utils"
)

const (
	sessionPath    = "/featured-listing"
	searchPath     = "/api-site/search/realTimeListings"
	detailPath     = "/listing-detail/"
	sessionMarker  = "a[href*='/listing-detail/']"
	searchSort     = "MLS_LIST_DATE_L_DESC"
	defaultStatus  = "Active"
	searchTimezone = "GMT+0000"
	sessionWait    = 30 * time.Second
)

// ErrSessionFailed is returned when the landing page never produced listing links.
var ErrSessionFailed = errors.New("discover: session not established")

// Cities covered by the site's search.
var Cities = []string{
	"Palm Springs, CA",
	"Palm Desert, CA",
	"La Quinta, CA",
	"Indian Wells, CA",
	"Rancho Mirage, CA",
	"Indio, CA",
	"Bermuda Dunes, CA",
	"Desert Hot Springs, CA",
	"Coachella, CA",
	"Cathedral City, CA",
	"Thermal, CA",
	"Thousand Palms, CA",
}

// DefaultCondition selects every active for-sale listing in Cities.
func DefaultCondition() models.SearchCondition {
	return models.SearchCondition{
		Location:      models.SearchLocation{City: Cities},
		ListingStatus: []string{"Active"},
		PurchaseType:  []string{"For Sale"},
		PropertyType: []string{
			"Single Family Home",
			"Multi-Family",
			"Condo",
			"Townhouse",
			"Manufactured Home",
			"Land",
			"Commercial",
			"Farm",
		},
	}
}

// DiscoveryState tracks a Discoverer's progress.
type DiscoveryState int

const (
	AwaitingSession DiscoveryState = iota
	Paginating
	Done
	Failed
)

func (s DiscoveryState) String() string {
	switch s {
	case AwaitingSession:
		return "awaiting-session"
	case Paginating:
		return "paginating"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Discoverer pages through the search API on a single browser session.
// It is single-use: call Discover once.
type Discoverer struct {
	cfg       *config.Config
	browser   Browser
	pacer     *utils.Pacer
	logger    *utils.Logger
	condition models.SearchCondition

	state DiscoveryState
	page  int
}

// NewDiscoverer creates a Discoverer using the default search condition.
func NewDiscoverer(cfg *config.Config, browser Browser, pacer *utils.Pacer, logger *utils.Logger) *Discoverer {
	return &Discoverer{
		cfg:       cfg,
		browser:   browser,
		pacer:     pacer,
		logger:    logger,
		condition: DefaultCondition(),
		state:     AwaitingSession,
	}
}

// State returns the current state.
func (d *Discoverer) State() DiscoveryState {
	return d.state
}

// Discover establishes the session and collects listings page by page. A
// failed page ends pagination but keeps what was accumulated. Only a failed
// session yields an error, wrapping ErrSessionFailed.
func (d *Discoverer) Discover(ctx context.Context) ([]*models.Listing, error) {
	if err := d.establishSession(ctx); err != nil {
		d.state = Failed
		d.logger.Error("[discover] Failed to establish session: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}

	d.state = Paginating
	d.page = 1
	d.logger.Info("[discover] Querying search API (pageSize=%d)", d.cfg.PageSize)

	var all []*models.Listing
	for d.state == Paginating {
		items, err := d.fetchPage(ctx, d.page)
		if err != nil {
			d.logger.Error("[discover] Page %d failed: %v", d.page, err)
			d.state = Done
			break
		}

		for _, item := range items {
			if l := ToListing(item, d.cfg.BaseURL, d.cfg.Region); l != nil {
				all = append(all, l)
			}
		}
		d.logger.Info("[discover] Page %d: got %d listings (total: %d)", d.page, len(items), len(all))

		reachedMax := d.cfg.MaxListings > 0 && len(all) >= d.cfg.MaxListings
		if reachedMax {
			all = all[:d.cfg.MaxListings]
		}

		switch {
		case len(items) < d.cfg.PageSize, reachedMax:
			d.state = Done
		default:
			if err := d.pacer.Wait(ctx, 0.5); err != nil {
				d.logger.Warn("[discover] Pagination interrupted: %v", err)
				d.state = Done
				break
			}
			d.page++
		}
	}

	d.logger.Info("[discover] Discovered %d total listings", len(all))
	return all, nil
}

func (d *Discoverer) establishSession(ctx context.Context) error {
	d.logger.Info("[discover] Establishing browser session via %s", sessionPath)
	if err := d.browser.Navigate(ctx, d.cfg.BaseURL+sessionPath); err != nil {
		return err
	}
	wait := d.cfg.SessionTimeout
	if wait <= 0 {
		wait = sessionWait
	}
	if err := d.browser.WaitFor(ctx, sessionMarker, wait); err != nil {
		return err
	}
	return d.pacer.Wait(ctx, 1.0)
}

func (d *Discoverer) fetchPage(ctx context.Context, page int) ([]models.SearchItem, error) {
	path, err := SearchURL(models.SearchRequest{
		Condition: d.condition,
		PageSize:  d.cfg.PageSize,
		Page:      page,
		Sort:      searchSort,
	})
	if err != nil {
		return nil, err
	}

	var resp models.SearchPage
	if err := d.browser.FetchJSON(ctx, path, d.searchHeaders(), &resp); err != nil {
		return nil, err
	}
	if page == 1 {
		if total := resp.Total(); total >= 0 {
			d.logger.Info("[discover] Total listings available: %d", total)
		} else {
			d.logger.Info("[discover] Total listings available: ?")
		}
	}
	return resp.Listings, nil
}

func (d *Discoverer) searchHeaders() map[string]string {
	return map[string]string{
		"accept":               "application/json",
		"currentsiteid":        d.cfg.SiteID,
		"site-search-listings": "true",
	}
}

// SearchURL builds the relative search API path for req.
func SearchURL(req models.SearchRequest) (string, error) {
	condition, err := json.Marshal(req.Condition)
	if err != nil {
		return "", fmt.Errorf("discover: encode condition: %w", err)
	}
	q := url.Values{}
	q.Set("condition", string(condition))
	q.Set("cache", "false")
	q.Set("timezone", searchTimezone)
	q.Set("pageSize", strconv.Itoa(req.PageSize))
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("listingSort", req.Sort)
	return searchPath + "?" + q.Encode(), nil
}

// ToListing converts one search item into a Listing. It returns nil for
// items without an id.
func ToListing(item models.SearchItem, baseURL, region string) *models.Listing {
	id := strings.TrimSpace(string(item.ID))
	if id == "" {
		return nil
	}

	state := strings.TrimSpace(item.State)
	if state == "" {
		state = region
	}
	if state == "" {
		state = models.DefaultRegion
	}

	status := firstNonEmpty(item.Flag, item.OpenHouseDesc, defaultStatus)

	l := models.NewListing(absoluteURL(baseURL, item.DetailURL, id))
	l.SiteID = id
	l.MLSID = strings.TrimSpace(string(item.MLSListingID))
	l.Address = services.NormaliseText(item.StreetAddress)
	l.State = state
	l.PostalCode = strings.TrimSpace(string(item.ZipCode))
	if city := strings.TrimSpace(item.City); city != "" {
		l.City = strings.TrimSpace(fmt.Sprintf("%s, %s %s", city, state, l.PostalCode))
	}
	l.Price = item.Price
	l.Bedrooms = int(item.Bedrooms)
	l.Bathrooms = int(item.Bathrooms)
	l.Sqft = int(item.Sqft)
	l.PropertyType = services.NormaliseText(item.PropertyType)
	l.Status = services.NormaliseText(status)
	l.ImageURL = services.DecodeImageURL(strings.TrimSpace(item.PreviewPicture))
	l.Description = services.CleanDescription(item.DetailsDescribe, services.DescriptionLimit)
	l.Subdivision = services.NormaliseText(firstNonEmpty(item.SubDivisionName, item.NeighborhoodName))
	return l
}

func absoluteURL(baseURL, detailURL, id string) string {
	u := strings.TrimSpace(detailURL)
	if u == "" {
		u = detailPath + id
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return strings.TrimRight(baseURL, "/") + u
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
