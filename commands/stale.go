package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"listing-feed/services"
)

var staleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List tracked listing URLs that are due for a re-scrape",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		store, _, err := openStateStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}

		urls := make([]string, 0, len(entries))
		for u := range entries {
			urls = append(urls, u)
		}
		sort.Strings(urls)

		tracker := services.NewStalenessTracker(cfg.StaleWindow(), entries, logger)
		out := cmd.OutOrStdout()
		for _, u := range tracker.FilterStale(urls) {
			fmt.Fprintln(out, u)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(staleCmd)
}
