package report

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"car-sales/models"
)

// WriteTable prints listings as an aligned text table.
func WriteTable(w io.Writer, listings []*models.Listing) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\t品牌\t车系\t起售价(万)\t价格区间\t当月销量\t车型分类")
	for i, l := range listings {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1, l.Brand, l.Series, price(l.MinPrice), l.PriceRange, sales(l.MonthlySales), l.Category)
	}
	return tw.Flush()
}

func price(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func sales(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}
