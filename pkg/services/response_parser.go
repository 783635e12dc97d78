package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"waste-process-api/pkg/models"

	"github.com/xeipuuv/gojsonschema"
)

var (
	leadingFence  = regexp.MustCompile("^```(?:json)?\\s*")
	trailingFence = regexp.MustCompile("\\s*```$")
)

// NormalizeResponse strips a surrounding markdown code fence from a model
// reply. Unfenced text is only trimmed.
func NormalizeResponse(raw string) string {
	s := strings.TrimSpace(raw)
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

const recommendationSchema = `{
	"type": "object",
	"required": ["action", "responsible", "deadline_days", "kpi_target", "estimated_savings_cop"],
	"properties": {
		"action": {"type": "string"},
		"responsible": {"type": "string"},
		"deadline_days": {"type": "integer"},
		"kpi_target": {"type": "string"},
		"estimated_savings_cop": {"type": "number"}
	}
}`

// combinedOutputSchema describes the object the model must return.
const combinedOutputSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": [
		"root_causes", "quick_wins", "mid_term", "long_term",
		"recommended_order_tons", "min_order_tons", "max_order_tons",
		"prediction_explanation"
	],
	"properties": {
		"waste_percentage": {"type": "number"},
		"economic_loss": {"type": "number"},
		"loss_per_ton": {"type": "number"},
		"sales_to_waste_ratio": {"type": ["number", "null"]},
		"root_causes": {"type": "array", "items": {"type": "string"}},
		"quick_wins": {"type": "array", "items": ` + recommendationSchema + `},
		"mid_term": {"type": "array", "items": ` + recommendationSchema + `},
		"long_term": {"type": "array", "items": ` + recommendationSchema + `},
		"recommended_order_tons": {"type": "number"},
		"min_order_tons": {"type": "number"},
		"max_order_tons": {"type": "number"},
		"estimated_annual_savings_cop": {"type": ["number", "null"]},
		"prediction_explanation": {"type": "string"}
	}
}`

// ResponseValidator checks normalized model output against the
// CombinedOutput schema.
type ResponseValidator struct {
	schema *gojsonschema.Schema
}

// NewResponseValidator compiles the output schema.
func NewResponseValidator() (*ResponseValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(combinedOutputSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile output schema: %w", err)
	}
	return &ResponseValidator{schema: schema}, nil
}

// Validate parses text and maps it to a CombinedOutput. Text that is not
// JSON yields a *MalformedResponseError; JSON of the wrong shape wraps
// ErrSchemaMismatch with the list of violations.
func (v *ResponseValidator) Validate(text string) (*models.CombinedOutput, error) {
	var doc interface{}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &MalformedResponseError{Cleaned: text, Cause: err}
	}

	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("%w: %s", ErrSchemaMismatch, strings.Join(errs, "; "))
	}

	var out models.CombinedOutput
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return &out, nil
}
