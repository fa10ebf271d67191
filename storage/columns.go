package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"car-sales/models"
	"car-sales/normalize"
)

// scanByName reads rows of unknown shape, mapping recognised car_sales column
// names onto Listing fields and ignoring the rest.
func scanByName(rows *sql.Rows) ([]*models.Listing, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var listings []*models.Listing
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		l := &models.Listing{}
		for i, col := range cols {
			assignColumn(l, strings.ToLower(col), values[i])
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func assignColumn(l *models.Listing, col string, v any) {
	switch col {
	case "id":
		if n := asInt(v); n != nil {
			l.ID = *n
		}
	case "rank_num", "rank":
		if n := asInt(v); n != nil {
			r := int(*n)
			l.Rank = &r
		}
	case "brand":
		l.Brand = asString(v)
	case "series":
		l.Series = asString(v)
	case "price_range":
		l.PriceRange = asString(v)
	case "min_price":
		l.MinPrice = asFloat(v)
	case "max_price":
		l.MaxPrice = asFloat(v)
	case "monthly_sales", "sales":
		l.MonthlySales = asInt(v)
	case "category":
		l.Category = asString(v)
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

func asFloat(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int64:
		f = float64(t)
	case []byte, string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(asString(t)), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func asInt(v any) *int64 {
	var n int64
	switch t := v.(type) {
	case int64:
		n = t
	case int32:
		n = int64(t)
	case float64:
		v, ok := normalize.Integral(t)
		if !ok {
			return nil
		}
		n = v
	case []byte, string:
		s := strings.TrimSpace(asString(t))
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil {
				return nil
			}
			v, ok := normalize.Integral(f)
			if !ok {
				return nil
			}
			parsed = v
		}
		n = parsed
	default:
		return nil
	}
	return &n
}
