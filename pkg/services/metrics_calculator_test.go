package services

import (
	"errors"
	"math"
	"testing"

	"waste-process-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestCalculateMetrics(t *testing.T) {
	m, err := CalculateMetrics(100, 40, 1000, f64(30))
	require.NoError(t, err)

	assert.InDelta(t, 40.0, m.WastePercentage, 1e-9)
	assert.InDelta(t, 400.0, m.EconomicLoss, 1e-9)
	assert.InDelta(t, 10.0, m.LossPerTon, 1e-9)
	require.NotNil(t, m.SalesToWasteRatio)
	assert.InDelta(t, 0.75, *m.SalesToWasteRatio, 1e-9)
}

func TestCalculateMetricsWithoutSales(t *testing.T) {
	m, err := CalculateMetrics(100, 40, 1000, nil)
	require.NoError(t, err)

	assert.Nil(t, m.SalesToWasteRatio)
	assert.InDelta(t, 40.0, m.WastePercentage, 1e-9)
	assert.InDelta(t, 400.0, m.EconomicLoss, 1e-9)
	assert.InDelta(t, 10.0, m.LossPerTon, 1e-9)
}

func TestCalculateMetricsZeroSalesIsNotAbsent(t *testing.T) {
	m, err := CalculateMetrics(100, 40, 1000, f64(0))
	require.NoError(t, err)
	require.NotNil(t, m.SalesToWasteRatio)
	assert.Equal(t, 0.0, *m.SalesToWasteRatio)
}

func TestCalculateMetricsWastePercentageIsNotClamped(t *testing.T) {
	testCases := []struct {
		purchased, wasted float64
	}{
		{100, 1},
		{3, 2},
		{0.5, 0.25},
		{10, 15}, // more waste than purchase is reported as-is
	}

	for _, tc := range testCases {
		m, err := CalculateMetrics(tc.purchased, tc.wasted, 1, nil)
		require.NoError(t, err)
		assert.Equal(t, tc.wasted/tc.purchased*100, m.WastePercentage)
	}
}

func TestCalculateMetricsInvalidInput(t *testing.T) {
	testCases := []struct {
		name                 string
		purchased, wasted, v float64
		sales                *float64
	}{
		{"zero purchase", 0, 10, 100, nil},
		{"negative purchase", -5, 1, 100, nil},
		{"zero waste", 100, 0, 100, nil},
		{"negative waste", 100, -1, 100, nil},
		{"nan value", 100, 10, math.NaN(), nil},
		{"infinite sales", 100, 10, 100, f64(math.Inf(1))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CalculateMetrics(tc.purchased, tc.wasted, tc.v, tc.sales)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput), "expected ErrInvalidInput, got %v", err)
		})
	}
}

func TestCalculateInputMetrics(t *testing.T) {
	input := models.WasteInput{
		Category:      "Dairy",
		PurchasedTons: f64(200),
		WastedTons:    f64(50),
		TotalValue:    f64(4000),
	}
	m, err := CalculateInputMetrics(input)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, m.WastePercentage, 1e-9)
	assert.InDelta(t, 1000.0, m.EconomicLoss, 1e-9)
	assert.InDelta(t, 20.0, m.LossPerTon, 1e-9)
}
