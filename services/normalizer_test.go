package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-sales/models"
	"car-sales/utils"
)

func TestNormalizerKeepsEveryListing(t *testing.T) {
	n := NewNormalizer(utils.NewTestLogger(t))
	raw := []*models.RawListing{
		{BrandName: "比亚迪", SeriesName: "海豹", PriceText: "17.98-21.98万", MonthlySales: "9000"},
		{BrandName: "小米", SeriesName: "SU7", PriceText: "暂无价格", MonthlySales: "abc"},
		{BrandName: "理想", SeriesName: "", PriceText: "", MonthlySales: ""},
	}

	got := n.Normalize(raw)
	require.Len(t, got, 3)
	assert.Equal(t, 17.98, *got[0].MinPrice)
	assert.Nil(t, got[1].MinPrice)
	assert.Equal(t, "理想系列", got[2].Category)
}

func TestNormalizerEmptyInput(t *testing.T) {
	n := NewNormalizer(utils.NewNopLogger())
	assert.Empty(t, n.Normalize(nil))
}
