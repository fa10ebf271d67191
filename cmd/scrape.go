package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"car-sales/models"
	"car-sales/scraper/dongchedi"
	"car-sales/services"
	"car-sales/storage"
)

var scrapePages int

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape the sales ranking into the CSV file",
	Long: `Fetch every configured rank page, normalise and deduplicate the entries,
and write one row per series to CSV_PATH (UTF-8 with BOM).`,
	RunE: runScrape,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Scrape the sales ranking into the CSV file and the store",
	RunE:  runIngest,
}

func init() {
	for _, c := range []*cobra.Command{scrapeCmd, ingestCmd} {
		c.Flags().IntVarP(&scrapePages, "pages", "p", 0, "number of rank pages (overrides PAGES_TO_SCRAPE)")
		rootCmd.AddCommand(c)
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// scrapeRaw runs the rank scraper with the configured transport.
func scrapeRaw(ctx context.Context) ([]*models.RawListing, error) {
	if scrapePages > 0 {
		cfg.PagesToScrape = scrapePages
	}

	fetcher, err := dongchedi.NewFetcher(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer fetcher.Close()

	raw, err := dongchedi.New(cfg, fetcher, logger).Scrape(ctx)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no listings were scraped")
	}
	return raw, nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	raw, err := scrapeRaw(ctx)
	if err != nil {
		return err
	}

	csvWriter, err := storage.NewCSVWriter(cfg.CSVPath)
	if err != nil {
		return err
	}
	defer csvWriter.Close()

	listings, err := services.NewIngestor(logger).Ingest(ctx, raw, csvWriter)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d series to %s\n", len(listings), csvWriter.Path())
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	raw, err := scrapeRaw(ctx)
	if err != nil {
		return err
	}

	csvWriter, err := storage.NewCSVWriter(cfg.CSVPath)
	if err != nil {
		return err
	}
	defer csvWriter.Close()

	listings, err := services.NewIngestor(logger).Ingest(ctx, raw, csvWriter, store)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d series to %s and %s\n", len(listings), csvWriter.Path(), store.Name())
	return nil
}
