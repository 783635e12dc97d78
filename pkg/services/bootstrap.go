package services

import (
	"context"
	"fmt"
	"strings"

	config "waste-process-api/configs"
)

// NewHistoryFromConfig builds the dataset loader, attaching a MinIO object
// store when the dataset lives in a bucket.
func NewHistoryFromConfig(cfg *config.Config) (*HistoricalDataService, error) {
	var objects ObjectStore
	if strings.HasPrefix(cfg.DatasetPath, "s3://") {
		store, err := NewMinioObjectStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
		if err != nil {
			return nil, err
		}
		objects = store
	}
	return NewHistoricalDataService(cfg.DatasetPath, objects)
}

// NewProcessServiceFromConfig wires the full pipeline from cfg. monitor may be nil.
func NewProcessServiceFromConfig(ctx context.Context, cfg *config.Config, monitor *MonitoringService) (*WasteProcessService, error) {
	history, err := NewHistoryFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	persona, err := config.LoadSystemPrompt(cfg.SystemPromptPath)
	if err != nil {
		return nil, err
	}
	builder, err := NewPromptBuilder(persona)
	if err != nil {
		return nil, err
	}
	validator, err := NewResponseValidator()
	if err != nil {
		return nil, err
	}
	gateway, err := NewGatewayFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWasteProcessService(ProcessOptions{
		History:        history,
		Builder:        builder,
		Gateway:        gateway,
		Validator:      validator,
		Monitor:        monitor,
		DefaultCountry: cfg.DefaultCountry,
	})
}
