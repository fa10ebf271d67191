package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"car-sales/metrics"
	"car-sales/models"
	"car-sales/storage"
	"car-sales/utils"
)

// Ingestor runs normalisation and deduplication and hands the result to writers.
type Ingestor struct {
	normalizer *Normalizer
	logger     *utils.Logger
}

// NewIngestor creates an Ingestor.
func NewIngestor(logger *utils.Logger) *Ingestor {
	return &Ingestor{normalizer: NewNormalizer(logger), logger: logger}
}

// Prepare normalises raw entries and keeps the best-selling entry per series.
func (i *Ingestor) Prepare(raw []*models.RawListing) []*models.Listing {
	if at := SnapshotTime(raw); !at.IsZero() {
		i.logger.Info("[ingest] Snapshot scraped at %s", at.Format(time.DateTime))
	}
	listings := i.normalizer.Normalize(raw)
	deduped := Deduplicate(listings)
	i.logger.Info("[ingest] %d raw entries → %d series after deduplication", len(raw), len(deduped))
	return deduped
}

// SnapshotTime is the latest scrape time among raw, or zero when none is known
// (entries loaded from a file carry no scrape time).
func SnapshotTime(raw []*models.RawListing) time.Time {
	var latest time.Time
	for _, r := range raw {
		if r.ScrapedAt.After(latest) {
			latest = r.ScrapedAt
		}
	}
	return latest
}

// Ingest prepares raw and writes the result to every writer in order,
// stopping at the first failure. It returns the prepared listings.
func (i *Ingestor) Ingest(ctx context.Context, raw []*models.RawListing, writers ...storage.ListingWriter) ([]*models.Listing, error) {
	runID := uuid.NewString()
	log := i.logger.With("run_id", runID)

	listings := i.Prepare(raw)
	for _, w := range writers {
		if err := w.Write(ctx, listings); err != nil {
			log.Error("[ingest] Write failed: %v", err)
			return listings, fmt.Errorf("ingest %s: %w", runID, err)
		}
	}

	metrics.ListingsIngested.Add(float64(len(listings)))
	log.Info("[ingest] Stored %d listings", len(listings))
	return listings, nil
}
