package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// WasteInput is the request body of the process endpoint.
type WasteInput struct {
	Country            string   `json:"country"`
	Category           string   `json:"category" binding:"required"`
	PurchasedTons      *float64 `json:"purchased_tons" binding:"required"`
	WastedTons         *float64 `json:"wasted_tons" binding:"required"`
	TotalValue         *float64 `json:"total_value" binding:"required"`
	SalesVolume        *float64 `json:"sales_volume,omitempty"`
	StorageTemperature *float64 `json:"storage_temperature,omitempty"`
	RotationMethod     *string  `json:"rotation_method,omitempty"`
	AdditionalContext  *string  `json:"additional_context,omitempty"`

	// Optional operational details; rendered as "N/A" in the prompt when absent.
	LeadTimeDays   *float64 `json:"lead_time_days,omitempty"`
	OrderFrequency *string  `json:"order_frequency,omitempty"`
	ShelfLifeDays  *float64 `json:"shelf_life_days,omitempty"`
}

// Purchased returns purchased_tons, or 0 when unset.
func (w WasteInput) Purchased() float64 { return deref(w.PurchasedTons) }

// Wasted returns wasted_tons, or 0 when unset.
func (w WasteInput) Wasted() float64 { return deref(w.WastedTons) }

// Value returns total_value, or 0 when unset.
func (w WasteInput) Value() float64 { return deref(w.TotalValue) }

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// HistoricalRecord is one row of the food-waste dataset.
type HistoricalRecord struct {
	Country             string  `json:"country"`
	Year                int     `json:"year"`
	FoodCategory        string  `json:"food_category"`
	TotalWasteTons      float64 `json:"total_waste_tons"`
	EconomicLossMillion float64 `json:"economic_loss_million"`
	AvgWastePerCapitaKg float64 `json:"avg_waste_per_capita_kg"`
	PopulationMillion   float64 `json:"population_million"`
	HouseholdWastePct   float64 `json:"household_waste_pct"`
}

// HistoricalPoint is the slice of a HistoricalRecord embedded in the prompt.
type HistoricalPoint struct {
	Year                int     `json:"year"`
	TotalWasteTons      float64 `json:"total_waste_tons"`
	EconomicLossMillion float64 `json:"economic_loss_million"`
}

// DerivedMetrics are computed locally from a WasteInput.
type DerivedMetrics struct {
	WastePercentage   float64  `json:"waste_percentage"`
	EconomicLoss      float64  `json:"economic_loss"`
	LossPerTon        float64  `json:"loss_per_ton"`
	SalesToWasteRatio *float64 `json:"sales_to_waste_ratio"`
}

// RecommendationItem is a single staged action proposed by the model.
type RecommendationItem struct {
	Action              string  `json:"action"`
	Responsible         string  `json:"responsible"`
	DeadlineDays        int     `json:"deadline_days"`
	KPITarget           string  `json:"kpi_target"`
	EstimatedSavingsCOP float64 `json:"estimated_savings_cop"`
}

// UnmarshalJSON accepts deadline_days written as a whole-number float (7.0).
func (r *RecommendationItem) UnmarshalJSON(data []byte) error {
	type plain RecommendationItem
	aux := struct {
		*plain
		DeadlineDays *float64 `json:"deadline_days"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.DeadlineDays != nil {
		d := *aux.DeadlineDays
		if d != math.Trunc(d) || math.Abs(d) > math.MaxInt32 {
			return fmt.Errorf("deadline_days must be a whole number, got %v", d)
		}
		r.DeadlineDays = int(d)
	}
	return nil
}

// CombinedOutput is the response body of the process endpoint.
type CombinedOutput struct {
	DerivedMetrics

	RootCauses []string             `json:"root_causes"`
	QuickWins  []RecommendationItem `json:"quick_wins"`
	MidTerm    []RecommendationItem `json:"mid_term"`
	LongTerm   []RecommendationItem `json:"long_term"`

	RecommendedOrderTons float64 `json:"recommended_order_tons"`
	MinOrderTons         float64 `json:"min_order_tons"`
	MaxOrderTons         float64 `json:"max_order_tons"`

	EstimatedAnnualSavingsCOP *float64 `json:"estimated_annual_savings_cop,omitempty"`

	PredictionExplanation string `json:"prediction_explanation"`
}

// Prompt holds the two messages sent to the completion service.
type Prompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// ErrorResponse is the failure body of the process endpoint.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
