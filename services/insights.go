package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"car-sales/models"
	"car-sales/utils"
)

const (
	topSellerLabel = "销量冠军"
	bestValueLabel = "性价比之王"
	topN           = 5
	maxBarWidth    = 30
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(listings []*models.Listing) *models.InsightReport {
	report := &models.InsightReport{
		SalesByCategory: make(map[string]int64),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalSeries = len(listings)

	var priced []*models.Listing
	var sold []*models.Listing
	var bestRatio float64

	for _, l := range listings {
		if l.MonthlySales != nil {
			report.TotalSales += *l.MonthlySales
			report.SalesByCategory[l.Category] += *l.MonthlySales
			sold = append(sold, l)
			if report.TopSeller == nil || *l.MonthlySales > *report.TopSeller.MonthlySales {
				report.TopSeller = l
			}
		}
		if l.MinPrice != nil && *l.MinPrice > 0 {
			priced = append(priced, l)
			if l.MonthlySales != nil {
				if ratio := float64(*l.MonthlySales) / *l.MinPrice; report.BestValue == nil || ratio > bestRatio {
					report.BestValue, bestRatio = l, ratio
				}
			}
		}
	}

	// Starting price stats (only listings with a published price)
	if len(priced) > 0 {
		report.LowestMinPrice = *priced[0].MinPrice
		report.HighestMinPrice = *priced[0].MinPrice
		var total float64
		for _, l := range priced {
			p := *l.MinPrice
			total += p
			if p < report.LowestMinPrice {
				report.LowestMinPrice = p
			}
			if p > report.HighestMinPrice {
				report.HighestMinPrice = p
			}
		}
		report.AverageMinPrice = round2(total / float64(len(priced)))
	}

	models.SortBySales(sold)
	if len(sold) > topN {
		sold = sold[:topN]
	}
	report.TopSellers = sold

	s.logger.Debug("[insights] %d series, %d priced, %d with sales", report.TotalSeries, len(priced), len(sold))
	return report
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	title := color.New(color.FgMagenta, color.Bold)
	heading := color.New(color.FgYellow, color.Bold)
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	title.Fprintf(w, "\n%s\n", sep)
	title.Fprintf(w, "  📊 汽车销量洞察\n")
	title.Fprintf(w, "%s\n\n", sep)

	// Overview
	heading.Fprintf(w, "  概览\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  车系数量 : %s\n", bold.Sprintf("%d", r.TotalSeries))
	fmt.Fprintf(w, "  月销量合计 : %s\n", bold.Sprintf("%d 台", r.TotalSales))
	fmt.Fprintln(w)

	// Price Stats
	heading.Fprintf(w, "  起售价统计 (万)\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AverageMinPrice > 0 {
		fmt.Fprintf(w, "  平均 : %s\n", green.Sprintf("%.2f", r.AverageMinPrice))
		fmt.Fprintf(w, "  最低 : %s\n", green.Sprintf("%.2f", r.LowestMinPrice))
		fmt.Fprintf(w, "  最高 : %s\n", green.Sprintf("%.2f", r.HighestMinPrice))
	} else {
		fmt.Fprintf(w, "  暂无价格数据\n")
	}
	fmt.Fprintln(w)

	if r.TopSeller != nil {
		heading.Fprintf(w, "  %s\n", topSellerLabel)
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s %s  %s\n", r.TopSeller.Brand, r.TopSeller.Series,
			red.Sprintf("%d 台/月", *r.TopSeller.MonthlySales))
		fmt.Fprintln(w)
	}
	if r.BestValue != nil {
		heading.Fprintf(w, "  %s\n", bestValueLabel)
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s %s  %s 万起, %d 台/月\n", r.BestValue.Brand, r.BestValue.Series,
			green.Sprintf("%.2f", *r.BestValue.MinPrice), *r.BestValue.MonthlySales)
		fmt.Fprintln(w)
	}

	// ── TOP 5 SELLERS ────────────────────────────────────────────────────
	heading.Fprintf(w, "  销量前 %d\n", topN)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopSellers) == 0 {
		fmt.Fprintf(w, "  暂无销量数据\n")
	} else {
		for i, l := range r.TopSellers {
			fmt.Fprintf(w, "  %s %-24s %s\n", bold.Sprintf("%d.", i+1),
				truncate(l.Brand+" "+l.Series, 22), green.Sprintf("%d", *l.MonthlySales))
		}
	}
	fmt.Fprintln(w)

	// Sales by category
	heading.Fprintf(w, "  分类销量\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.SalesByCategory) == 0 {
		fmt.Fprintf(w, "  暂无分类数据\n")
	} else {
		type catSales struct {
			cat   string
			sales int64
		}
		var cats []catSales
		var top int64
		for cat, n := range r.SalesByCategory {
			cats = append(cats, catSales{cat, n})
			if n > top {
				top = n
			}
		}
		sort.Slice(cats, func(i, j int) bool {
			if cats[i].sales != cats[j].sales {
				return cats[i].sales > cats[j].sales
			}
			return cats[i].cat < cats[j].cat
		})
		for _, c := range cats {
			width := 0
			if top > 0 {
				width = int(c.sales * maxBarWidth / top)
			}
			fmt.Fprintf(w, "  %-16s %s (%d)\n", truncate(c.cat, 14), strings.Repeat("█", width), c.sales)
		}
	}

	title.Fprintf(w, "\n%s\n\n", sep)
}

// Narrate renders the report as a short Chinese paragraph. It is shown when
// no model is available to analyse the data.
func (s *InsightService) Narrate(r *models.InsightReport) string {
	if r == nil || r.TotalSeries == 0 {
		return "暂无符合条件的车型数据，建议放宽预算或更换车型关键词。"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "共找到 %d 款车型，合计月销量 %d 台", r.TotalSeries, r.TotalSales)
	if r.AverageMinPrice > 0 {
		fmt.Fprintf(&b, "，平均起售价 %.2f 万（%.2f-%.2f 万）", r.AverageMinPrice, r.LowestMinPrice, r.HighestMinPrice)
	}
	b.WriteString("。")
	if r.TopSeller != nil {
		fmt.Fprintf(&b, "%s是 %s %s，月销 %d 台。", topSellerLabel,
			r.TopSeller.Brand, r.TopSeller.Series, *r.TopSeller.MonthlySales)
	}
	if r.BestValue != nil {
		fmt.Fprintf(&b, "%s是 %s %s，%.2f 万起，每万元起售价对应月销 %.0f 台。", bestValueLabel,
			r.BestValue.Brand, r.BestValue.Series, *r.BestValue.MinPrice,
			float64(*r.BestValue.MonthlySales) / *r.BestValue.MinPrice)
	}
	if r.TopSeller != nil {
		fmt.Fprintf(&b, "建议优先试驾 %s。", r.TopSeller.Series)
	}
	return b.String()
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
