package dongchedi

import (
	"context"
	"fmt"
	"time"

	"car-sales/config"
	"car-sales/models"
	"car-sales/utils"
)

const (
	salesPageURL = "https://www.dongchedi.com/sales"
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// PageFetcher returns the raw JSON body of one rank page (0-based).
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) ([]byte, error)
	Close() error
}

// Scraper walks the rank pages one at a time.
type Scraper struct {
	fetcher PageFetcher
	pages   int
	pacer   *utils.Pacer
	logger  *utils.Logger
}

// New creates a Scraper over fetcher using the page count and delay from cfg.
func New(cfg *config.Config, fetcher PageFetcher, logger *utils.Logger) *Scraper {
	return &Scraper{
		fetcher: fetcher,
		pages:   cfg.PagesToScrape,
		pacer:   utils.NewPacer(cfg.PageDelay()),
		logger:  logger,
	}
}

// NewFetcher builds the transport selected by cfg.FetchMode.
func NewFetcher(ctx context.Context, cfg *config.Config, logger *utils.Logger) (PageFetcher, error) {
	switch cfg.FetchMode {
	case config.FetchBrowser:
		return NewBrowserFetcher(ctx, cfg.RankURL, cfg.RankType, cfg.ChromeBin, logger)
	case config.FetchHTTP, "":
		return NewHTTPFetcher(cfg.RankURL, cfg.RankType), nil
	}
	return nil, fmt.Errorf("dongchedi: unknown fetch mode %q", cfg.FetchMode)
}

// Scrape fetches every configured page. A page that fails to load or parse
// is logged and skipped; only cancellation aborts the run.
func (s *Scraper) Scrape(ctx context.Context) ([]*models.RawListing, error) {
	s.logger.Info("[dongchedi] Starting scrape — target: %d pages", s.pages)

	var listings []*models.RawListing
	failed := 0
	for page := 0; page < s.pages; page++ {
		if err := s.pacer.Wait(ctx); err != nil {
			return listings, fmt.Errorf("dongchedi: %w", err)
		}

		s.logger.Info("[dongchedi] Fetching page %d/%d", page+1, s.pages)
		body, err := s.fetcher.FetchPage(ctx, page)
		if err != nil {
			failed++
			s.logger.Error("[dongchedi] Page %d failed: %v", page+1, err)
			continue
		}

		items, err := ParsePage(body, time.Now())
		if err != nil {
			failed++
			s.logger.Error("[dongchedi] Page %d unreadable: %v", page+1, err)
			continue
		}
		if len(items) == 0 {
			s.logger.Warn("[dongchedi] Page %d returned 0 entries", page+1)
		}

		listings = append(listings, items...)
		s.logger.Info("[dongchedi] Page %d done — collected %d entries so far", page+1, len(listings))
	}

	s.logger.Info("[dongchedi] Scrape complete — %d raw entries, %d failed pages", len(listings), failed)
	return listings, nil
}
