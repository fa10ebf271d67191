package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-sales/models"
)

func writeCSV(t *testing.T, listings []*models.Listing) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out", "dongchedi_sales.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), listings))
	require.NoError(t, w.Close())
	return path
}

func TestCSVWriter_BOMAndHeader(t *testing.T) {
	path := writeCSV(t, seedListings()[:1])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), utf8BOM+"排名,品牌,车系,价格区间,当月销量,车型分类\n"))
	assert.Contains(t, string(data), "1,特斯拉,Model Y,24.99-35.49万,40000,中型SUV")
}

func TestReadListingsFile_RoundTrip(t *testing.T) {
	path := writeCSV(t, seedListings())

	raw, err := ReadListingsFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 5)
	assert.Equal(t, "1", raw[0].Rank)
	assert.Equal(t, "特斯拉", raw[0].BrandName)
	assert.Equal(t, "24.99-35.49万", raw[0].PriceText)
	assert.Equal(t, "", raw[3].MonthlySales)
	assert.Equal(t, []string{"微型车"}, raw[4].CategoryCandidates)
}

func TestReadJSON(t *testing.T) {
	in := `[{"排名": 1, "品牌": "理想", "车系": "L6", "价格区间": "24.98-27.98万", "当月销量": 20000, "车型分类": "中大型SUV"},
	        {"brand": "问界", "series": "M7", "price_range": "24.98万起", "monthly_sales": "15,000"}]`

	raw, err := ReadJSON(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.Equal(t, "1", raw[0].Rank)
	assert.Equal(t, "20000", raw[0].MonthlySales)
	assert.Equal(t, "M7", raw[1].SeriesName)
	assert.Equal(t, []string{""}, raw[1].CategoryCandidates)
}

func TestReadListingsFile_Missing(t *testing.T) {
	_, err := ReadListingsFile(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestCSVSource_MatchesSQLSemantics(t *testing.T) {
	src := NewCSVSource(writeCSV(t, seedListings()))
	ctx := context.Background()

	got, err := src.Query(ctx, models.Filter{MinPrice: 0, MaxPrice: 100, Category: "SUV", Limit: 15})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Model Y", got[0].Series)
	assert.Equal(t, 24.99, *got[0].MinPrice, "prices are re-derived from text")

	got, err = src.Query(ctx, models.Filter{MinPrice: 30, MaxPrice: 10, Limit: 15})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = src.Query(ctx, models.TopSellers(2))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "秦PLUS", got[1].Series)
	assert.True(t, strings.HasPrefix(src.Name(), "csv:"))
}
