package storage

import (
	"fmt"
	"strings"

	"car-sales/models"
)

// listingColumns is the column list every structured query selects.
const listingColumns = "id, rank_num, brand, series, price_range, min_price, max_price, monthly_sales, category"

// BuildFilter returns the WHERE predicate (without the keyword) and its bind
// parameters. Bounds are inclusive and not validated: min > max simply matches
// nothing. The keyword matches category OR series as a substring.
func BuildFilter(f models.Filter, placeholder func(int) string) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if !f.AnyPrice {
		clauses = append(clauses, fmt.Sprintf("min_price BETWEEN %s AND %s",
			placeholder(len(args)+1), placeholder(len(args)+2)))
		args = append(args, f.MinPrice, f.MaxPrice)
	}

	if kw := f.CategoryKeyword(); kw != "" {
		clauses = append(clauses, fmt.Sprintf("(category LIKE %s OR series LIKE %s)",
			placeholder(len(args)+1), placeholder(len(args)+2)))
		pattern := "%" + kw + "%"
		args = append(args, pattern, pattern)
	}

	return strings.Join(clauses, " AND "), args
}

// FilterQuery assembles the full SELECT for a structured filter.
func FilterQuery(f models.Filter, placeholder func(int) string) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(listingColumns)
	b.WriteString(" FROM car_sales")

	where, args := BuildFilter(f, placeholder)
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	b.WriteString(" ORDER BY monthly_sales DESC NULLS LAST")
	if f.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", f.Limit)
	}
	return b.String(), args
}
