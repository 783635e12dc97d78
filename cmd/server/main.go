package main

import (
	"context"
	"log"

	config "waste-process-api/configs"
	"waste-process-api/pkg/handlers"
	"waste-process-api/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ invalid configuration: %v", err)
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r, err := setupRouter(context.Background(), cfg)
	if err != nil {
		log.Fatalf("❌ failed to initialize services: %v", err)
	}

	log.Printf("🚀 Server starting on port %s (provider: %s, dataset: %s)", cfg.Port, cfg.LLMProvider, cfg.DatasetPath)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter builds the services described by cfg and the router serving them.
func setupRouter(ctx context.Context, cfg *config.Config) (*gin.Engine, error) {
	monitoringService := services.NewMonitoringService(cfg.MonitoringTimezone)
	processService, err := services.NewProcessServiceFromConfig(ctx, cfg, monitoringService)
	if err != nil {
		return nil, err
	}

	return handlers.NewRouter(handlers.RouterDeps{
		Process:       processService,
		Monitoring:    monitoringService,
		APIKey:        cfg.APIKey,
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
	}), nil
}
