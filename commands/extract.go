package commands

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"listing-feed/scraper/lofty"
	"listing-feed/services"
)

var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Extract a single listing detail page and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		tracker := services.NewStalenessTracker(cfg.StaleWindow(), nil, logger)
		listing, err := lofty.New(cfg, sessionFactory(cfg), tracker, logger).ExtractOne(cmd.Context(), args[0])
		if err != nil {
			logger.Error("Extraction failed: %v", err)
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
