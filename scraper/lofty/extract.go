package lofty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listing-feed/config"
	"listing-feed/models"
	"listing-feed/services"
	"listing-feed/utils"
)

const (
	selAddressHeading = "h1.address-container .street"
	addressWait       = 10 * time.Second
)

// dismissModalScript closes the registration modal if one is showing.
const dismissModalScript = `(() => {
	const btn = document.querySelector('[class*="modal"] [class*="close"], .modal-close, [aria-label="Close"]');
	if (btn) { btn.click(); return true; }
	return false;
})()`

// Extractor reads one detail page per call and reconciles it into a Listing.
type Extractor struct {
	cfg        *config.Config
	reconciler *services.Reconciler
	pacer      *utils.Pacer
	logger     *utils.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(cfg *config.Config, reconciler *services.Reconciler, pacer *utils.Pacer, logger *utils.Logger) *Extractor {
	return &Extractor{cfg: cfg, reconciler: reconciler, pacer: pacer, logger: logger}
}

// Extract loads pageURL in browser and returns the reconciled listing. It
// returns services.ErrNoMLSID when the page has no MLS id.
func (e *Extractor) Extract(ctx context.Context, browser Browser, pageURL string) (*models.Listing, error) {
	if err := browser.Navigate(ctx, pageURL); err != nil {
		return nil, fmt.Errorf("extract: load %s: %w", pageURL, err)
	}
	// The price is attached before overlays finish rendering.
	if err := browser.WaitFor(ctx, selPrice, e.cfg.PageTimeout); err != nil {
		return nil, fmt.Errorf("extract: load %s: %w", pageURL, err)
	}

	var dismissed bool
	if err := browser.Evaluate(ctx, dismissModalScript, &dismissed); err != nil {
		e.logger.Debug("[extract] Modal dismissal failed on %s: %v", pageURL, err)
	}
	if err := e.pacer.Wait(ctx, 0.5); err != nil {
		return nil, err
	}

	if err := browser.WaitFor(ctx, selAddressHeading, addressWait); err != nil {
		e.logger.Debug("[extract] Address heading not rendered on %s: %v", pageURL, err)
	}

	html, err := browser.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract: read %s: %w", pageURL, err)
	}
	sources, err := ParseDetailPage(pageURL, html)
	if err != nil {
		return nil, err
	}

	listing, err := e.reconciler.Reconcile(sources)
	if errors.Is(err, services.ErrNoMLSID) {
		e.logger.Warn("[extract] No MLS ID found for %s", pageURL)
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("extract: %s: %w", pageURL, err)
	}

	e.logger.Debug("[extract] Extracted: %s | %s | %s", listing.MLSID, services.FormatPrice(listing.Price), listing.Status)
	return listing, nil
}
