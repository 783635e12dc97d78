package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	config "waste-process-api/configs"
	"waste-process-api/pkg/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// responseFormat is appended to the persona so the model answers with a
// single object shaped like CombinedOutput.
const responseFormat = "Responde siempre en un **único bloque JSON** con esta estructura exacta:\n" +
	"```json\n" +
	"{\n" +
	"  \"waste_percentage\": <float>,\n" +
	"  \"economic_loss\": <float>,\n" +
	"  \"loss_per_ton\": <float>,\n" +
	"  \"sales_to_waste_ratio\": <float|null>,\n" +
	"  \"root_causes\": [\"<str>\", ...],\n" +
	"  \"quick_wins\": [\n" +
	"    {\"action\": <str>, \"responsible\": <str>, \"deadline_days\": <int>, \"kpi_target\": <str>, \"estimated_savings_cop\": <float>}, ...\n" +
	"  ],\n" +
	"  \"mid_term\": [ {...}, ... ],\n" +
	"  \"long_term\": [ {...}, ... ],\n" +
	"  \"recommended_order_tons\": <float>,\n" +
	"  \"min_order_tons\": <float>,\n" +
	"  \"max_order_tons\": <float>,\n" +
	"  \"estimated_annual_savings_cop\": <float>,\n" +
	"  \"prediction_explanation\": \"<str>\"\n" +
	"}\n" +
	"```\n"

const taskSteps = "**Pasos a seguir:**\n" +
	"1. Realiza un diagnóstico rápido de las causas principales.\n" +
	"2. Formula preguntas si te hace falta información.\n" +
	"3. Cuando tengas todo, entrega el JSON con quick wins, mid_term, long_term y predicción.\n" +
	"\n**RESPONDE:** sólo JSON, sin texto extra.\n"

// PromptBuilder renders the role and task instructions sent to the model.
// The output depends only on its arguments.
type PromptBuilder struct {
	system string
}

// NewPromptBuilder renders the persona once and keeps it for every Build.
func NewPromptBuilder(persona *config.SystemPromptConfig) (*PromptBuilder, error) {
	if persona == nil {
		return nil, errors.New("prompt builder: persona is required")
	}
	return &PromptBuilder{
		system: persona.BuildSystemPrompt() + responseFormat,
	}, nil
}

// SystemPrompt returns the role instruction.
func (b *PromptBuilder) SystemPrompt() string { return b.system }

// Build renders the prompt for one request. history is serialized as a JSON
// array; a nil or empty slice becomes [].
func (b *PromptBuilder) Build(input models.WasteInput, metrics models.DerivedMetrics, history []models.HistoricalPoint) (models.Prompt, error) {
	if history == nil {
		history = []models.HistoricalPoint{}
	}
	histJSON, err := json.Marshal(history)
	if err != nil {
		return models.Prompt{}, fmt.Errorf("failed to encode history: %w", err)
	}

	p := message.NewPrinter(language.English)
	var sb strings.Builder

	sb.WriteString("**Contexto inicial**:\n")
	fmt.Fprintf(&sb, "- País: %s (COP, toneladas métricas)\n", input.Country)
	fmt.Fprintf(&sb, "- Categoría: %s\n", input.Category)
	fmt.Fprintf(&sb, "- Compradas: %s t\n", plain(input.Purchased()))
	fmt.Fprintf(&sb, "- Desperdiciadas: %s t (%.2f %%)\n", plain(input.Wasted()), metrics.WastePercentage)
	fmt.Fprintf(&sb, "- Valor compra: %s COP\n", p.Sprintf("%.2f", input.Value()))
	fmt.Fprintf(&sb, "- Ventas: %s COP\n", optNumber(input.SalesVolume))
	fmt.Fprintf(&sb, "- Lead time: %s días\n", optNumber(input.LeadTimeDays))
	fmt.Fprintf(&sb, "- Frecuencia de pedido: %s\n", optString(input.OrderFrequency))
	fmt.Fprintf(&sb, "- Almacenaje: %s °C; rotación %s\n", optNumber(input.StorageTemperature), optString(input.RotationMethod))
	fmt.Fprintf(&sb, "- Vida útil: %s días", optNumber(input.ShelfLifeDays))
	if input.AdditionalContext != nil && strings.TrimSpace(*input.AdditionalContext) != "" {
		fmt.Fprintf(&sb, "\nContexto adicional: %s", *input.AdditionalContext)
	}
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "**Histórico relevante (%s)**:\n%s\n\n", input.Country, histJSON)

	ratio := "no calculado"
	if metrics.SalesToWasteRatio != nil {
		ratio = fmt.Sprintf("%.2f", *metrics.SalesToWasteRatio)
	}
	sb.WriteString("**Métricas base**:\n")
	fmt.Fprintf(&sb, "* %% desperdicio: %.2f%%\n", metrics.WastePercentage)
	sb.WriteString(p.Sprintf("* Pérdida económica: %.0f COP\n", metrics.EconomicLoss))
	sb.WriteString(p.Sprintf("* Pérdida/ton: %.0f COP/t\n", metrics.LossPerTon))
	fmt.Fprintf(&sb, "* Ratio ventas/desperdicio: %s\n\n", ratio)

	sb.WriteString(taskSteps)

	return models.Prompt{System: b.system, User: sb.String()}, nil
}

func plain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optNumber(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return plain(*v)
}

func optString(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "N/A"
	}
	return *v
}
