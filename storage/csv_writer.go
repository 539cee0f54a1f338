package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"sync"

	"listing-feed/models"
)

// CSVWriter writes the ads feed as a CSV file. Each WriteFeed replaces the
// file atomically. It is safe for concurrent use.
type CSVWriter struct {
	mu   sync.Mutex
	path string
}

// NewCSVWriter creates a writer for the feed file at path. Intermediate
// directories are created on first write.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// Path returns the feed file location.
func (c *CSVWriter) Path() string {
	return c.path
}

// WriteFeed writes the header and rows, replacing any previous feed.
func (c *CSVWriter) WriteFeed(rows []models.FeedRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := writeFileAtomic(c.path, func(w io.Writer) error {
		return EncodeFeed(w, rows)
	})
	if err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	return nil
}

// EncodeFeed writes the feed header and rows to w.
func EncodeFeed(w io.Writer, rows []models.FeedRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(models.FeedColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return fmt.Errorf("write row %s: %w", r.ListingID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
