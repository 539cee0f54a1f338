package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"listing-feed/config"
	"listing-feed/scraper/lofty"
	"listing-feed/services"
	"listing-feed/storage"
	"listing-feed/utils"
)

// errNoListings fails the run when discovery produced nothing.
var errNoListings = errors.New("no listings found")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: discovery, enrichment and feed generation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runPipeline(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	logger.Info("=== Listing feed run starting ===")
	logger.Info("Config — site: %s | pageSize: %d | max: %d | concurrency: %d | state: %s",
		cfg.BaseURL, cfg.PageSize, cfg.MaxListings, cfg.Concurrency, cfg.StateBackend)

	store, snapshots, err := openStateStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open state store: %v", err)
		return err
	}
	defer store.Close()

	entries, err := store.Load(ctx)
	if err != nil {
		logger.Warn("Failed to load state, starting fresh: %v", err)
	}
	logger.Info("Loaded state for %d listings", len(entries))
	tracker := services.NewStalenessTracker(cfg.StaleWindow(), entries, logger)

	listings, err := lofty.New(cfg, sessionFactory(cfg), tracker, logger).Scrape(ctx)
	if err != nil {
		logger.Error("Scrape failed: %v", err)
	}
	if len(listings) == 0 {
		logger.Error("No listings were scraped. Exiting.")
		return errNoListings
	}

	recorded := tracker.Record(listings)
	logger.Info("Recorded %d/%d listings in state", recorded, len(listings))

	feed := storage.NewCSVWriter(cfg.FeedPath)
	rows, err := services.NewFeedEmitter(feed, cfg.Region, logger).Emit(listings)
	if err != nil {
		logger.Error("Feed write failed: %v", err)
	} else {
		logger.Info("Feed generated with %d active listings at %s", rows, feed.Path())
	}

	if snapshots != nil {
		if err := snapshots.WriteSnapshot(ctx, runID, services.FeedEligible(listings)); err != nil {
			logger.Error("Snapshot write failed: %v", err)
		} else {
			logger.Info("Run snapshot stored in PostgreSQL (table: listing_snapshots)")
		}
	}

	// State is written once per run, after the feed.
	if err := store.Save(context.WithoutCancel(ctx), tracker.Entries()); err != nil {
		logger.Error("State save failed: %v", err)
		return err
	}
	logger.Info("Saved state for %d listings", tracker.Len())

	insights := services.NewInsightService(logger)
	report := insights.Generate(listings)
	report.RunID = runID
	report.FeedRows = rows
	insights.Print(os.Stdout, report)

	logger.Info("=== Run complete ===")
	return nil
}
