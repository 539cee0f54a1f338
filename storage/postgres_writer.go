package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"listing-feed/models"
)

const batchSize = 50

// PostgresWriter stores scrape state and per-run listing snapshots in PostgreSQL.
// It satisfies both StateStore and SnapshotWriter.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scrape_state (
			url          TEXT          PRIMARY KEY,
			mls_id       TEXT          NOT NULL DEFAULT '',
			last_scraped TIMESTAMPTZ   NOT NULL,
			last_price   NUMERIC(14,2) NOT NULL DEFAULT 0,
			status       TEXT          NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS listing_snapshots (
			id            SERIAL PRIMARY KEY,
			run_id        TEXT          NOT NULL,
			mls_id        TEXT          NOT NULL,
			url           TEXT          NOT NULL,
			price         NUMERIC(14,2) NOT NULL DEFAULT 0,
			status        TEXT          NOT NULL DEFAULT '',
			city          TEXT          NOT NULL DEFAULT '',
			property_type TEXT          NOT NULL DEFAULT '',
			scraped_at    TIMESTAMPTZ   NOT NULL,
			created_at    TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_run    ON listing_snapshots(run_id);
		CREATE INDEX IF NOT EXISTS idx_snapshots_mls_id ON listing_snapshots(mls_id);
	`)
	return err
}

// Load returns every persisted state entry keyed by URL.
func (pw *PostgresWriter) Load(ctx context.Context) (map[string]models.StateEntry, error) {
	rows, err := pw.db.QueryContext(ctx, `
		SELECT url, mls_id, last_scraped, last_price, status
		FROM scrape_state
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load state: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]models.StateEntry)
	for rows.Next() {
		var e models.StateEntry
		if err := rows.Scan(&e.URL, &e.MLSID, &e.LastScraped, &e.LastPrice, &e.Status); err != nil {
			return nil, fmt.Errorf("postgres: scan state row: %w", err)
		}
		e.LastScraped = e.LastScraped.UTC()
		entries[e.URL] = e
	}
	return entries, rows.Err()
}

// Save replaces the whole state table inside one transaction.
func (pw *PostgresWriter) Save(ctx context.Context, entries map[string]models.StateEntry) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM scrape_state"); err != nil {
		return fmt.Errorf("postgres: clear state: %w", err)
	}

	batch := make([]models.StateEntry, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		args := make([]interface{}, 0, len(batch)*5)
		for _, e := range batch {
			args = append(args, e.URL, e.MLSID, e.LastScraped, e.LastPrice, e.Status)
		}
		query := fmt.Sprintf(`
			INSERT INTO scrape_state (url, mls_id, last_scraped, last_price, status)
			VALUES %s
		`, valuePlaceholders(len(batch), 5))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: insert state: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for _, e := range entries {
		batch = append(batch, e)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit state: %w", err)
	}
	return nil
}

// WriteSnapshot batch-inserts the listings emitted by one run.
func (pw *PostgresWriter) WriteSnapshot(ctx context.Context, runID string, listings []*models.Listing) error {
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := pw.insertSnapshotBatch(ctx, runID, listings[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertSnapshotBatch(ctx context.Context, runID string, batch []*models.Listing) error {
	args := make([]interface{}, 0, len(batch)*8)
	for _, l := range batch {
		args = append(args,
			runID, l.MLSID, l.URL, l.Price, l.Status, l.City, l.PropertyType, l.ScrapedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO listing_snapshots (run_id, mls_id, url, price, status, city, property_type, scraped_at)
		VALUES %s
	`, valuePlaceholders(len(batch), 8))

	if _, err := pw.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: insert snapshot: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// valuePlaceholders renders "($1,$2),($3,$4)" for rows x cols parameters.
func valuePlaceholders(rows, cols int) string {
	groups := make([]string, 0, rows)
	for r := 0; r < rows; r++ {
		ph := make([]string, cols)
		for c := 0; c < cols; c++ {
			ph[c] = fmt.Sprintf("$%d", r*cols+c+1)
		}
		groups = append(groups, "("+strings.Join(ph, ",")+")")
	}
	return strings.Join(groups, ",")
}
