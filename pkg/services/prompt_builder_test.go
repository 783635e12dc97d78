package services

import (
	"testing"

	config "waste-process-api/configs"
	"waste-process-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T) *PromptBuilder {
	t.Helper()
	persona, err := config.LoadSystemPrompt("")
	require.NoError(t, err)
	b, err := NewPromptBuilder(persona)
	require.NoError(t, err)
	return b
}

func dairyInput() models.WasteInput {
	return models.WasteInput{
		Country:       "Colombia",
		Category:      "Dairy",
		PurchasedTons: f64(100),
		WastedTons:    f64(40),
		TotalValue:    f64(1000),
		SalesVolume:   f64(30),
	}
}

func TestPromptBuilderIsDeterministic(t *testing.T) {
	b := newTestBuilder(t)
	input := dairyInput()
	metrics, err := CalculateInputMetrics(input)
	require.NoError(t, err)
	history := []models.HistoricalPoint{
		{Year: 2019, TotalWasteTons: 23210.55, EconomicLossMillion: 22410.09},
		{Year: 2020, TotalWasteTons: 24580.73, EconomicLossMillion: 23761.35},
	}

	first, err := b.Build(input, metrics, history)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := b.Build(input, metrics, history)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPromptBuilderRoleInstruction(t *testing.T) {
	b := newTestBuilder(t)
	prompt, err := b.Build(dairyInput(), models.DerivedMetrics{WastePercentage: 40}, nil)
	require.NoError(t, err)

	assert.Contains(t, prompt.System, "Analista Senior de Gestión de Desperdicios")
	assert.Contains(t, prompt.System, "hasta 3 veces")
	assert.Contains(t, prompt.System, "\"quick_wins\"")
	assert.Contains(t, prompt.System, "\"deadline_days\": <int>")
	assert.Contains(t, prompt.System, "\"prediction_explanation\"")
	assert.Equal(t, b.SystemPrompt(), prompt.System)
}

func TestPromptBuilderTaskInstruction(t *testing.T) {
	b := newTestBuilder(t)
	input := dairyInput()
	metrics, err := CalculateInputMetrics(input)
	require.NoError(t, err)
	history := []models.HistoricalPoint{{Year: 2019, TotalWasteTons: 120.5, EconomicLossMillion: 3.25}}

	prompt, err := b.Build(input, metrics, history)
	require.NoError(t, err)

	assert.Contains(t, prompt.User, "- País: Colombia")
	assert.Contains(t, prompt.User, "- Categoría: Dairy")
	assert.Contains(t, prompt.User, "- Compradas: 100 t")
	assert.Contains(t, prompt.User, "- Desperdiciadas: 40 t (40.00 %)")
	assert.Contains(t, prompt.User, "- Ventas: 30 COP")
	assert.Contains(t, prompt.User, "- Lead time: N/A días")
	assert.Contains(t, prompt.User, `[{"year":2019,"total_waste_tons":120.5,"economic_loss_million":3.25}]`)
	assert.Contains(t, prompt.User, "* % desperdicio: 40.00%")
	assert.Contains(t, prompt.User, "* Ratio ventas/desperdicio: 0.75")
	assert.Contains(t, prompt.User, "**RESPONDE:** sólo JSON, sin texto extra.")
	assert.NotContains(t, prompt.User, "Contexto adicional")
}

func TestPromptBuilderEmptyHistory(t *testing.T) {
	b := newTestBuilder(t)
	input := dairyInput()
	input.SalesVolume = nil
	metrics, err := CalculateInputMetrics(input)
	require.NoError(t, err)

	fromNil, err := b.Build(input, metrics, nil)
	require.NoError(t, err)
	fromEmpty, err := b.Build(input, metrics, []models.HistoricalPoint{})
	require.NoError(t, err)

	assert.Equal(t, fromNil, fromEmpty)
	assert.Contains(t, fromNil.User, "**Histórico relevante (Colombia)**:\n[]\n")
	assert.Contains(t, fromNil.User, "* Ratio ventas/desperdicio: no calculado")
	assert.Contains(t, fromNil.User, "- Ventas: N/A COP")
}

func TestPromptBuilderOptionalFields(t *testing.T) {
	b := newTestBuilder(t)
	input := dairyInput()
	lead, shelf, temp := 7.0, 21.0, 4.0
	freq, rotation, extra := "semanal", "FIFO", "Bodega sin refrigeración de respaldo"
	input.LeadTimeDays = &lead
	input.ShelfLifeDays = &shelf
	input.StorageTemperature = &temp
	input.OrderFrequency = &freq
	input.RotationMethod = &rotation
	input.AdditionalContext = &extra

	prompt, err := b.Build(input, models.DerivedMetrics{WastePercentage: 40}, nil)
	require.NoError(t, err)

	assert.Contains(t, prompt.User, "- Lead time: 7 días")
	assert.Contains(t, prompt.User, "- Frecuencia de pedido: semanal")
	assert.Contains(t, prompt.User, "- Almacenaje: 4 °C; rotación FIFO")
	assert.Contains(t, prompt.User, "- Vida útil: 21 días")
	assert.Contains(t, prompt.User, "Contexto adicional: Bodega sin refrigeración de respaldo")
}

func TestNewPromptBuilderRequiresPersona(t *testing.T) {
	_, err := NewPromptBuilder(nil)
	assert.Error(t, err)
}
