package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"car-sales/models"
)

// utf8BOM lets spreadsheet tools detect the encoding of the Chinese headers.
const utf8BOM = "\ufeff"

// CSVHeader is the column order of the intermediate sales file.
var CSVHeader = []string{"排名", "品牌", "车系", "价格区间", "当月销量", "车型分类"}

// CSVWriter writes deduplicated listings to the intermediate CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the BOM and header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	if _, err := f.WriteString(utf8BOM); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write bom: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(CSVHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{path: path, file: f, writer: w}, nil
}

// Path returns the file being written.
func (c *CSVWriter) Path() string { return c.path }

// Write appends one row per listing.
func (c *CSVWriter) Write(_ context.Context, listings []*models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		rank, sales := "", ""
		if l.Rank != nil {
			rank = strconv.Itoa(*l.Rank)
		}
		if l.MonthlySales != nil {
			sales = strconv.FormatInt(*l.MonthlySales, 10)
		}
		row := []string{rank, l.Brand, l.Series, l.PriceRange, sales, l.Category}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
