package storage

import (
	"context"

	"listing-feed/models"
)

// FeedWriter is the interface any feed destination must satisfy.
type FeedWriter interface {
	WriteFeed(rows []models.FeedRow) error
}

// StateStore loads and saves the per-URL scrape state. Save replaces the
// whole collection atomically.
type StateStore interface {
	Load(ctx context.Context) (map[string]models.StateEntry, error)
	Save(ctx context.Context, entries map[string]models.StateEntry) error
	Close() error
}

// SnapshotWriter records the listings a run emitted.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, runID string, listings []*models.Listing) error
}
