package dongchedi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"car-sales/models"
)

// unpricedText stands in for entries that publish neither price field.
const unpricedText = "暂无价格"

// categoryFields are tried in order when resolving a series category.
var categoryFields = []string{"sub_board_name", "series_type_name", "upper_name"}

type rankPage struct {
	Data struct {
		List []map[string]any `json:"list"`
	} `json:"data"`
}

// ParsePage decodes a rank_data response body into raw listings.
func ParsePage(body []byte, scrapedAt time.Time) ([]*models.RawListing, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var page rankPage
	if err := dec.Decode(&page); err != nil {
		return nil, fmt.Errorf("decode rank page: %w", err)
	}

	out := make([]*models.RawListing, 0, len(page.Data.List))
	for _, item := range page.Data.List {
		price := field(item, "price_range")
		if strings.TrimSpace(price) == "" {
			price = field(item, "price")
		}
		if strings.TrimSpace(price) == "" {
			price = unpricedText
		}

		candidates := make([]string, len(categoryFields))
		for i, name := range categoryFields {
			candidates[i] = field(item, name)
		}

		out = append(out, &models.RawListing{
			Rank:               field(item, "rank"),
			BrandName:          field(item, "brand_name"),
			SeriesName:         field(item, "series_name"),
			PriceText:          price,
			MonthlySales:       field(item, "count"),
			CategoryCandidates: candidates,
			ScrapedAt:          scrapedAt,
		})
	}
	return out, nil
}

// field renders an arbitrary JSON value as text; absent and null become "".
func field(item map[string]any, key string) string {
	switch v := item[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
