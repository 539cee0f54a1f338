package lofty

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"listing-feed/config"
	"listing-feed/models"
	"listing-feed/services"
	"listing-feed/utils"
)

// Scraper drives discovery on one session and then fills gaps in the
// discovered listings from their detail pages on a bounded pool of sessions.
type Scraper struct {
	cfg        *config.Config
	logger     *utils.Logger
	newSession SessionFactory
	tracker    *services.StalenessTracker
	pacer      *utils.Pacer
	extractor  *Extractor
	claimed    *utils.URLSet
	retry      *utils.RetryConfig
}

// New creates a ready-to-use Scraper.
func New(cfg *config.Config, factory SessionFactory, tracker *services.StalenessTracker, logger *utils.Logger) *Scraper {
	pacer := utils.NewPacer(cfg.Delay())
	return &Scraper{
		cfg:        cfg,
		logger:     logger,
		newSession: factory,
		tracker:    tracker,
		pacer:      pacer,
		extractor:  NewExtractor(cfg, services.NewReconciler(cfg.Region, logger), pacer, logger),
		claimed:    utils.NewURLSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// SetPacer replaces the pacing source for discovery and extraction.
func (s *Scraper) SetPacer(p *utils.Pacer) {
	s.pacer = p
	s.extractor.pacer = p
}

// Scrape discovers every listing and enriches the ones missing an MLS id or
// image. It returns an error wrapping ErrSessionFailed when no session could
// be established.
func (s *Scraper) Scrape(ctx context.Context) ([]*models.Listing, error) {
	s.logger.Info("[lofty] Starting scrape of %s", s.cfg.BaseURL)

	session, err := s.newSession(ctx)
	if err != nil {
		s.logger.Error("[lofty] Could not open browser session: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	listings, err := NewDiscoverer(s.cfg, session, s.pacer, s.logger).Discover(ctx)
	session.Close()
	if err != nil {
		return nil, err
	}

	s.enrichListings(ctx, listings)
	s.logger.Info("[lofty] Scrape complete — total listings: %d", len(listings))
	return listings, nil
}

// ExtractOne opens a fresh session and extracts a single detail page.
func (s *Scraper) ExtractOne(ctx context.Context, pageURL string) (*models.Listing, error) {
	session, err := s.newSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	defer session.Close()
	return s.extractor.Extract(ctx, session, pageURL)
}

// enrichListings overlays detail-page data onto listings that came back from
// search without an MLS id or image. Fresh URLs reuse the MLS id from state
// instead of being visited again. Duplicates of a URL share one extraction.
func (s *Scraper) enrichListings(ctx context.Context, listings []*models.Listing) {
	byURL := make(map[string][]int)
	var urls []string
	for i, l := range listings {
		if l.MLSID != "" && l.ImageURL != "" {
			continue
		}
		if _, seen := byURL[l.URL]; !seen {
			urls = append(urls, l.URL)
		}
		byURL[l.URL] = append(byURL[l.URL], i)
	}
	if len(urls) == 0 {
		return
	}

	s.logger.Info("[lofty] %d listings need detail extraction", len(urls))
	stale := s.tracker.FilterStale(urls)
	staleSet := make(map[string]bool, len(stale))
	for _, u := range stale {
		staleSet[u] = true
	}
	for _, u := range urls {
		if staleSet[u] {
			continue
		}
		entry, _ := s.tracker.Entry(u)
		if entry.MLSID == "" && missingMLSID(listings, byURL[u]) {
			// State cannot supply the id, so the page is read again.
			stale = append(stale, u)
			continue
		}
		for _, i := range byURL[u] {
			if listings[i].MLSID == "" {
				listings[i].MLSID = entry.MLSID
				// Keep the earlier scrape time so the entry still ages out.
				listings[i].ScrapedAt = entry.LastScraped
			}
		}
	}
	if len(stale) == 0 {
		return
	}

	pool := utils.NewWorkerPool(s.cfg.Concurrency, 0)
	sessions := newSessionPool(s.newSession, pool.Size())
	defer sessions.closeAll()

	var mu sync.Mutex
	var extracted, failed int
	for _, u := range stale {
		if ctx.Err() != nil {
			break
		}
		pageURL := u
		pool.Submit(func() {
			if !s.claimed.Add(pageURL) {
				return
			}
			defer s.claimed.Remove(pageURL)

			detail, err := s.extractWithRetry(ctx, sessions, pageURL)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				return
			}
			extracted++
			for _, i := range byURL[pageURL] {
				listings[i] = services.Overlay(listings[i], detail)
			}
		})
	}
	pool.Wait()
	s.logger.Info("[lofty] Detail extraction done — %d enriched, %d failed", extracted, failed)
}

func missingMLSID(listings []*models.Listing, idx []int) bool {
	for _, i := range idx {
		if listings[i].MLSID == "" {
			return true
		}
	}
	return false
}

func (s *Scraper) extractWithRetry(ctx context.Context, sessions *sessionPool, pageURL string) (*models.Listing, error) {
	var detail *models.Listing
	var dropped error

	err := s.retry.Do(ctx, "extract "+pageURL, func() error {
		browser, err := sessions.acquire(ctx)
		if err != nil {
			return err
		}
		l, err := s.extractor.Extract(ctx, browser, pageURL)
		if errors.Is(err, services.ErrNoMLSID) {
			sessions.release(browser)
			dropped = err
			return nil
		}
		if err != nil {
			// A failed page may leave the session wedged; start clean next time.
			browser.Close()
			return err
		}
		sessions.release(browser)
		detail = l
		return nil
	})
	if err != nil {
		s.logger.Warn("[lofty] %v", err)
		return nil, err
	}
	if dropped != nil {
		return nil, dropped
	}
	return detail, nil
}

// sessionPool lends browser sessions to workers, opening new ones lazily.
// At most size sessions are idle at once.
type sessionPool struct {
	factory SessionFactory
	idle    chan Browser
}

func newSessionPool(factory SessionFactory, size int) *sessionPool {
	return &sessionPool{factory: factory, idle: make(chan Browser, size)}
}

func (p *sessionPool) acquire(ctx context.Context) (Browser, error) {
	select {
	case b := <-p.idle:
		return b, nil
	default:
		return p.factory(ctx)
	}
}

func (p *sessionPool) release(b Browser) {
	select {
	case p.idle <- b:
	default:
		b.Close()
	}
}

func (p *sessionPool) closeAll() {
	for {
		select {
		case b := <-p.idle:
			b.Close()
		default:
			return
		}
	}
}
