package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"car-sales/models"
)

// fieldAliases maps accepted header names onto logical fields.
var fieldAliases = map[string]string{
	"排名": "rank", "rank": "rank", "rank_num": "rank",
	"品牌": "brand", "brand": "brand", "brand_name": "brand",
	"车系": "series", "series": "series", "series_name": "series",
	"价格区间": "price", "price_range": "price", "price": "price",
	"当月销量": "sales", "monthly_sales": "sales", "count": "sales",
	"车型分类": "category", "category": "category",
}

// ReadListingsFile loads raw listings from a CSV or JSON file, chosen by extension.
func ReadListingsFile(path string) ([]*models.RawListing, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("file %q: %w: %v", path, ErrUnavailable, err)
		}
		return nil, fmt.Errorf("file: open %q: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ReadJSON(f)
	}
	return ReadCSV(f)
}

// ReadCSV parses the intermediate CSV. Unknown columns are ignored and the
// category column becomes the single category candidate.
func ReadCSV(r io.Reader) ([]*models.RawListing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))
		if field, ok := fieldAliases[strings.ToLower(h)]; ok {
			index[field] = i
		}
	}

	var out []*models.RawListing
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row %d: %w", len(out)+1, err)
		}
		get := func(field string) string {
			if i, ok := index[field]; ok && i < len(rec) {
				return rec[i]
			}
			return ""
		}
		out = append(out, rawFromFields(get))
	}
	return out, nil
}

// ReadJSON parses an array of objects keyed like the CSV header.
func ReadJSON(r io.Reader) ([]*models.RawListing, error) {
	var rows []map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("json: decode: %w", err)
	}

	out := make([]*models.RawListing, 0, len(rows))
	for _, row := range rows {
		fields := make(map[string]string, len(row))
		for k, v := range row {
			if field, ok := fieldAliases[strings.ToLower(strings.TrimSpace(k))]; ok {
				fields[field] = jsonText(v)
			}
		}
		out = append(out, rawFromFields(func(field string) string { return fields[field] }))
	}
	return out, nil
}

func rawFromFields(get func(string) string) *models.RawListing {
	return &models.RawListing{
		Rank:               get("rank"),
		BrandName:          get("brand"),
		SeriesName:         get("series"),
		PriceText:          get("price"),
		MonthlySales:       get("sales"),
		CategoryCandidates: []string{get("category")},
	}
}

func jsonText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
