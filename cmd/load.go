package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"car-sales/services"
	"car-sales/storage"
)

var loadCmd = &cobra.Command{
	Use:   "load [file]",
	Short: "Load a CSV or JSON file into the store",
	Long: `Read a previously scraped CSV (default CSV_PATH) or a JSON array of rank
entries, normalise and deduplicate it, and replace the contents of car_sales.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLoad,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Recompute missing min/max prices from the stored price text",
	Args:  cobra.NoArgs,
	RunE:  runBackfill,
}

func init() {
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(backfillCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := cfg.CSVPath
	if len(args) == 1 {
		path = args[0]
	}

	raw, err := storage.ReadListingsFile(path)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	listings, err := services.NewIngestor(logger).Ingest(ctx, raw, store)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d series from %s into %s\n", len(listings), path, store.Name())
	return nil
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	n, err := store.BackfillPrices(ctx)
	if err != nil {
		return err
	}
	logger.Info("[backfill] Updated %d rows", n)
	fmt.Fprintf(cmd.OutOrStdout(), "Back-filled prices for %d rows\n", n)
	return nil
}
