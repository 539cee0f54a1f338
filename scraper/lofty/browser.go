package lofty

import (
	"context"
	"time"
)

// Browser is the narrow capability the scraper needs from a browsing
// session. Implementations own one isolated session (cookies, viewport,
// identity) and are not safe for concurrent use.
type Browser interface {
	// Navigate loads url in the session's page.
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until selector is attached to the DOM or timeout passes.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// Evaluate runs script in the page and decodes its result into out.
	Evaluate(ctx context.Context, script string, out any) error
	// FetchJSON issues a same-origin GET from inside the page and decodes the JSON body into out.
	FetchJSON(ctx context.Context, path string, headers map[string]string, out any) error
	// HTML returns the current document's markup in one read.
	HTML(ctx context.Context) (string, error)
	Close() error
}

// SessionFactory opens a new, independent browser session.
type SessionFactory func(ctx context.Context) (Browser, error)
