package services

import (
	"fmt"
	"log"
	"math"

	"waste-process-api/pkg/models"
)

// CalculateMetrics derives the waste ratios from the purchase and waste figures.
// salesVolume may be nil, in which case SalesToWasteRatio stays nil.
func CalculateMetrics(purchasedTons, wastedTons, totalValue float64, salesVolume *float64) (models.DerivedMetrics, error) {
	fields := []struct {
		name  string
		value float64
	}{
		{"purchased_tons", purchasedTons},
		{"wasted_tons", wastedTons},
		{"total_value", totalValue},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return models.DerivedMetrics{}, fmt.Errorf("%w: %s must be a finite number", ErrInvalidInput, f.name)
		}
	}
	if purchasedTons <= 0 {
		return models.DerivedMetrics{}, fmt.Errorf("%w: purchased_tons must be greater than 0, got %v", ErrInvalidInput, purchasedTons)
	}
	if wastedTons < 0 {
		return models.DerivedMetrics{}, fmt.Errorf("%w: wasted_tons must not be negative, got %v", ErrInvalidInput, wastedTons)
	}
	if wastedTons == 0 {
		return models.DerivedMetrics{}, fmt.Errorf("%w: wasted_tons must be greater than 0 to compute loss_per_ton", ErrInvalidInput)
	}
	if wastedTons > purchasedTons {
		log.Printf("⚠️ wasted_tons (%v) exceeds purchased_tons (%v)", wastedTons, purchasedTons)
	}

	econLoss := totalValue * wastedTons / purchasedTons
	metrics := models.DerivedMetrics{
		WastePercentage: wastedTons / purchasedTons * 100,
		EconomicLoss:    econLoss,
		LossPerTon:      econLoss / wastedTons,
	}

	if salesVolume != nil {
		if math.IsNaN(*salesVolume) || math.IsInf(*salesVolume, 0) {
			return models.DerivedMetrics{}, fmt.Errorf("%w: sales_volume must be a finite number", ErrInvalidInput)
		}
		ratio := *salesVolume / wastedTons
		metrics.SalesToWasteRatio = &ratio
	}

	return metrics, nil
}

// CalculateInputMetrics is CalculateMetrics applied to a request body.
func CalculateInputMetrics(input models.WasteInput) (models.DerivedMetrics, error) {
	return CalculateMetrics(input.Purchased(), input.Wasted(), input.Value(), input.SalesVolume)
}
