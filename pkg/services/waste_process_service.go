package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"waste-process-api/pkg/models"
)

// RequestIDHeader carries the per-request identifier on requests and responses.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID returns a context carrying id for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id stored by WithRequestID, or "-".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return "-"
}

// HistoryLoader provides the full historical table.
type HistoryLoader interface {
	Load(ctx context.Context) ([]models.HistoricalRecord, error)
}

// WasteProcessService runs the analysis pipeline: load history, compute
// metrics, build the prompt, call the model, then normalize and validate
// its reply. Each step short-circuits on failure; nothing is retried.
type WasteProcessService struct {
	history        HistoryLoader
	builder        *PromptBuilder
	gateway        LLMGateway
	validator      *ResponseValidator
	monitor        *MonitoringService
	defaultCountry string
}

// ProcessOptions wires the dependencies of WasteProcessService. Monitor is optional.
type ProcessOptions struct {
	History        HistoryLoader
	Builder        *PromptBuilder
	Gateway        LLMGateway
	Validator      *ResponseValidator
	Monitor        *MonitoringService
	DefaultCountry string
}

// NewWasteProcessService validates opts and returns the service.
func NewWasteProcessService(opts ProcessOptions) (*WasteProcessService, error) {
	switch {
	case opts.History == nil:
		return nil, errors.New("process service: history loader is required")
	case opts.Builder == nil:
		return nil, errors.New("process service: prompt builder is required")
	case opts.Gateway == nil:
		return nil, errors.New("process service: LLM gateway is required")
	case opts.Validator == nil:
		return nil, errors.New("process service: response validator is required")
	}
	country := opts.DefaultCountry
	if country == "" {
		country = "Colombia"
	}
	return &WasteProcessService{
		history:        opts.History,
		builder:        opts.Builder,
		gateway:        opts.Gateway,
		validator:      opts.Validator,
		monitor:        opts.Monitor,
		defaultCountry: country,
	}, nil
}

// DefaultCountry returns the country applied to requests that omit it.
func (s *WasteProcessService) DefaultCountry() string { return s.defaultCountry }

// Process runs the full pipeline for one request. The returned output
// always carries the locally computed metrics.
func (s *WasteProcessService) Process(ctx context.Context, input models.WasteInput) (out *models.CombinedOutput, err error) {
	reqID := RequestIDFromContext(ctx)
	if s.monitor != nil {
		defer func() { s.monitor.ObserveProcess(err) }()
	}

	input, err = s.withDefaults(input)
	if err != nil {
		log.Printf("❌ [%s] invalid input: %v", reqID, err)
		return nil, err
	}

	metrics, err := CalculateInputMetrics(input)
	if err != nil {
		log.Printf("❌ [%s] invalid input: %v", reqID, err)
		return nil, err
	}

	records, err := s.history.Load(ctx)
	if err != nil {
		log.Printf("❌ [%s] history unavailable: %v", reqID, err)
		return nil, err
	}
	history := FilterHistory(records, input.Country, input.Category)
	log.Printf("📊 [%s] %s/%s: %d historical rows, waste %.2f%%", reqID, input.Country, input.Category, len(history), metrics.WastePercentage)

	prompt, err := s.builder.Build(input, metrics, history)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := s.gateway.Complete(ctx, prompt.System, prompt.User)
	if s.monitor != nil {
		s.monitor.ObserveLLMCall(time.Since(start))
	}
	if err != nil {
		if !errors.Is(err, ErrUpstream) {
			err = fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		log.Printf("❌ [%s] completion failed: %v", reqID, err)
		return nil, err
	}

	cleaned := NormalizeResponse(raw)
	out, err = s.validator.Validate(cleaned)
	if err != nil {
		log.Printf("❌ [%s] model reply rejected: %v", reqID, err)
		return nil, err
	}

	if diverged := divergentMetrics(decodeMetricEcho(cleaned), metrics); len(diverged) > 0 {
		log.Printf("⚠️ [%s] model echoed different metrics (%s); using computed values", reqID, strings.Join(diverged, ", "))
	}
	out.DerivedMetrics = metrics

	log.Printf("✅ [%s] analysis ready: %d root causes, order %.2f t", reqID, len(out.RootCauses), out.RecommendedOrderTons)
	return out, nil
}

// Metrics validates input and returns the derived metrics without calling the model.
func (s *WasteProcessService) Metrics(input models.WasteInput) (models.DerivedMetrics, error) {
	input, err := s.withDefaults(input)
	if err != nil {
		return models.DerivedMetrics{}, err
	}
	return CalculateInputMetrics(input)
}

// History returns the historical points for country and category. An empty
// country falls back to the default one.
func (s *WasteProcessService) History(ctx context.Context, country, category string) ([]models.HistoricalPoint, error) {
	if strings.TrimSpace(category) == "" {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	if strings.TrimSpace(country) == "" {
		country = s.defaultCountry
	}
	records, err := s.history.Load(ctx)
	if err != nil {
		return nil, err
	}
	return FilterHistory(records, country, category), nil
}

// withDefaults trims the text fields, fills in the default country and
// rejects a blank category.
func (s *WasteProcessService) withDefaults(input models.WasteInput) (models.WasteInput, error) {
	input.Country = strings.TrimSpace(input.Country)
	if input.Country == "" {
		input.Country = s.defaultCountry
	}
	input.Category = strings.TrimSpace(input.Category)
	if input.Category == "" {
		return input, fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	return input, nil
}

// metricEcho holds the metric fields as the model wrote them; nil means omitted.
type metricEcho struct {
	WastePercentage   *float64 `json:"waste_percentage"`
	EconomicLoss      *float64 `json:"economic_loss"`
	LossPerTon        *float64 `json:"loss_per_ton"`
	SalesToWasteRatio *float64 `json:"sales_to_waste_ratio"`
}

// decodeMetricEcho reads the metric fields from an already validated reply.
func decodeMetricEcho(text string) metricEcho {
	var echo metricEcho
	if err := json.Unmarshal([]byte(text), &echo); err != nil {
		return metricEcho{}
	}
	return echo
}

// divergentMetrics names the metric fields the model echoed with a value
// different from the computed one. Omitted fields are skipped.
func divergentMetrics(echoed metricEcho, computed models.DerivedMetrics) []string {
	var out []string
	check := func(name string, got *float64, want float64) {
		if got != nil && !approxEqual(*got, want) {
			out = append(out, fmt.Sprintf("%s=%v want %v", name, *got, want))
		}
	}
	check("waste_percentage", echoed.WastePercentage, computed.WastePercentage)
	check("economic_loss", echoed.EconomicLoss, computed.EconomicLoss)
	check("loss_per_ton", echoed.LossPerTon, computed.LossPerTon)
	if echoed.SalesToWasteRatio != nil {
		if computed.SalesToWasteRatio == nil {
			out = append(out, fmt.Sprintf("sales_to_waste_ratio=%v want null", *echoed.SalesToWasteRatio))
		} else {
			check("sales_to_waste_ratio", echoed.SalesToWasteRatio, *computed.SalesToWasteRatio)
		}
	}
	return out
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
