package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-sales/models"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "cars.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func seedListings() []*models.Listing {
	return []*models.Listing{
		{Rank: ptrInt(1), Brand: "特斯拉", Series: "Model Y", PriceRange: "24.99-35.49万",
			MinPrice: ptrFloat(24.99), MaxPrice: ptrFloat(35.49), MonthlySales: ptrInt64(40000), Category: "中型SUV"},
		{Rank: ptrInt(2), Brand: "比亚迪", Series: "秦PLUS", PriceRange: "7.98-12.98万",
			MinPrice: ptrFloat(7.98), MaxPrice: ptrFloat(12.98), MonthlySales: ptrInt64(35000), Category: "紧凑型车"},
		{Rank: ptrInt(3), Brand: "比亚迪", Series: "宋PLUS SUV", PriceRange: "15.98-21.98万",
			MinPrice: ptrFloat(15.98), MaxPrice: ptrFloat(21.98), MonthlySales: ptrInt64(30000), Category: "紧凑型车"},
		{Rank: ptrInt(4), Brand: "小米", Series: "SU7", PriceRange: "暂无价格", Category: "小米系列"},
		{Rank: ptrInt(5), Brand: "五菱", Series: "宏光MINI", PriceRange: "3.28-9.99万",
			MinPrice: ptrFloat(3.28), MaxPrice: ptrFloat(9.99), Category: "微型车"},
	}
}

func TestSQLite_WriteAndQuery(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, seedListings()))

	got, err := store.Query(ctx, models.TopSellers(10))
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "Model Y", got[0].Series)
	assert.Nil(t, got[len(got)-1].MonthlySales, "unknown sales sort last")

	got, err = store.Query(ctx, models.Filter{MinPrice: 5, MaxPrice: 20, Limit: 15})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "秦PLUS", got[0].Series)
	assert.Equal(t, "宋PLUS SUV", got[1].Series)
}

func TestSQLite_WriteReplacesPreviousSnapshot(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, seedListings()))
	require.NoError(t, store.Write(ctx, seedListings()[:1]))

	got, err := store.Query(ctx, models.TopSellers(10))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSQLite_InvertedBoundsReturnEmpty(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, seedListings()))

	got, err := store.Query(ctx, models.Filter{MinPrice: 30, MaxPrice: 10, Limit: 15})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_CategoryKeywordMatchesSeriesToo(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, seedListings()))

	got, err := store.Query(ctx, models.Filter{MinPrice: 0, MaxPrice: 100, Category: "SUV", Limit: 15})
	require.NoError(t, err)

	var series []string
	for _, l := range got {
		series = append(series, l.Series)
	}
	assert.Equal(t, []string{"Model Y", "宋PLUS SUV"}, series)
}

func TestSQLite_BackfillPricesIsIdempotent(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	listings := seedListings()
	// Simulate rows stored before prices were parsed.
	listings[1].MinPrice, listings[1].MaxPrice = nil, nil
	listings[2].MinPrice, listings[2].MaxPrice = nil, nil
	require.NoError(t, store.Write(ctx, listings))

	n, err := store.BackfillPrices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.BackfillPrices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := store.Query(ctx, models.Filter{MinPrice: 7.98, MaxPrice: 7.98, Limit: 5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 12.98, *got[0].MaxPrice)
}

func TestSQLite_QuerySQLScansByName(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, seedListings()))

	got, err := store.QuerySQL(ctx,
		"SELECT brand, series, monthly_sales FROM car_sales WHERE brand = '比亚迪' ORDER BY monthly_sales DESC", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "秦PLUS", got[0].Series)
	assert.Equal(t, int64(35000), *got[0].MonthlySales)
	assert.Nil(t, got[0].MinPrice)

	got, err = store.QuerySQL(ctx, "SELECT * FROM car_sales", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLite_QuerySQLLeavesConnectionWritable(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	_, err := store.QuerySQL(ctx, "SELECT * FROM car_sales", 10)
	require.NoError(t, err)

	require.NoError(t, store.Write(ctx, seedListings()))
}

func TestSQLite_QuerySQLRejectsBadExpression(t *testing.T) {
	store := newSQLiteStore(t)

	_, err := store.QuerySQL(context.Background(), "SELECT nope FROM missing_table", 10)
	assert.Error(t, err)
}
