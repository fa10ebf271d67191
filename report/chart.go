// Package report renders listings for people: an xlsx chart workbook and a
// plain-text table.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"car-sales/models"
)

const (
	dataSheet  = "销量数据"
	chartCell  = "I2"
	chartTitle = "车系月销量与起售价"
)

var chartHeader = []any{"排名", "品牌", "车系", "起售价(万)", "最高价(万)", "当月销量", "车型分类"}

// BuildChart writes listings to a data sheet and adds a combo chart: monthly
// sales as columns, starting price as a line on the secondary axis.
func BuildChart(listings []*models.Listing) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return nil, fmt.Errorf("chart: rename sheet: %w", err)
	}

	if err := f.SetSheetRow(dataSheet, "A1", &chartHeader); err != nil {
		return nil, fmt.Errorf("chart: header: %w", err)
	}

	for i, l := range listings {
		row := []any{
			optional(l.Rank), l.Brand, l.Series, optional(l.MinPrice), optional(l.MaxPrice),
			optional(l.MonthlySales), l.Category,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(dataSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("chart: row %d: %w", i+1, err)
		}
	}

	if len(listings) == 0 {
		return f, nil
	}

	last := len(listings) + 1
	categories := fmt.Sprintf("'%s'!$C$2:$C$%d", dataSheet, last)

	sales := &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$F$1", dataSheet),
			Categories: categories,
			Values:     fmt.Sprintf("'%s'!$F$2:$F$%d", dataSheet, last),
		}},
		Title:     []excelize.RichTextRun{{Text: chartTitle}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 960, Height: 480},
		XAxis:     excelize.ChartAxis{Font: excelize.Font{Size: 9}},
	}
	price := &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$D$1", dataSheet),
			Categories: categories,
			Values:     fmt.Sprintf("'%s'!$D$2:$D$%d", dataSheet, last),
			Marker:     excelize.ChartMarker{Symbol: "circle", Size: 5},
		}},
		YAxis: excelize.ChartAxis{Secondary: true},
	}

	if err := f.AddChart(dataSheet, chartCell, sales, price); err != nil {
		return nil, fmt.Errorf("chart: add chart: %w", err)
	}
	return f, nil
}

// WriteChart streams the workbook to w.
func WriteChart(w io.Writer, listings []*models.Listing) error {
	f, err := BuildChart(listings)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("chart: write: %w", err)
	}
	return nil
}

// SaveChart writes the workbook to path, creating parent directories.
func SaveChart(path string, listings []*models.Listing) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("chart: create output dir: %w", err)
	}
	f, err := BuildChart(listings)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("chart: save %q: %w", path, err)
	}
	return nil
}

// optional returns the pointed-to value, or nil so the cell stays blank.
func optional[T int | int64 | float64](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
