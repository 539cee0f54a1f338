// Package commands implements the CLI commands for listing-feed.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"listing-feed/config"
	"listing-feed/scraper/lofty"
	"listing-feed/storage"
	"listing-feed/utils"
)

var rootCmd = &cobra.Command{
	Use:   "listing-feed",
	Short: "Scrape realtor listings into a Google Ads real estate feed",
	Long: `listing-feed discovers every active listing on the realtor site through
its search API, fills gaps from the listing detail pages and writes a
CSV feed for Google Ads dynamic real estate assets.

Examples:
  # Full run with the defaults from .env
  listing-feed run

  # Quick run against the first 50 listings with a visible browser
  listing-feed run --max-listings 50 --headless=false

  # Check what one detail page extracts to
  listing-feed extract https://bradschmett.com/listing-detail/123456

  # List URLs due for a re-scrape
  listing-feed stale`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Int("max-listings", 0, "max listings to scrape (0 = all)")
	rootCmd.PersistentFlags().Bool("headless", true, "run the browser headless")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads configuration, applies flag overrides and validates the result.
func setup(cmd *cobra.Command) (*config.Config, *utils.Logger, error) {
	cfg := config.Load()
	flags := cmd.Flags()
	if flags.Changed("max-listings") {
		cfg.MaxListings, _ = flags.GetInt("max-listings")
	}
	if flags.Changed("headless") {
		cfg.Headless, _ = flags.GetBool("headless")
	}

	logger := utils.NewLogger(cfg.LogLevel)
	if debug, _ := flags.GetBool("debug"); debug {
		logger.SetDebug(true)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openStateStore returns the configured state backend. The snapshot writer
// is nil unless state lives in PostgreSQL.
func openStateStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (storage.StateStore, storage.SnapshotWriter, error) {
	switch cfg.StateBackend {
	case config.StateBackendPostgres:
		pg, err := storage.NewPostgresWriter(ctx, cfg.DSN())
		if err != nil {
			logger.Error("Make sure PostgreSQL is reachable at %s:%s", cfg.PostgresHost, cfg.PostgresPort)
			return nil, nil, err
		}
		return pg, pg, nil
	case config.StateBackendFile, "":
		return storage.NewFileStateStore(cfg.StatePath), nil, nil
	}
	return nil, nil, fmt.Errorf("config: unknown state backend %q", cfg.StateBackend)
}

func sessionFactory(cfg *config.Config) lofty.SessionFactory {
	return lofty.NewChromeSessionFactory(lofty.ChromeOptions{
		Headless:    cfg.Headless,
		ChromeBin:   cfg.ChromeBin,
		PageTimeout: cfg.PageTimeout,
	})
}
