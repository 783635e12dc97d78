package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	config "waste-process-api/configs"
	"waste-process-api/pkg/handlers"
	"waste-process-api/pkg/models"
	"waste-process-api/pkg/services"

	"github.com/gin-gonic/gin"
)

var (
	app     *gin.Engine
	initErr error
	once    sync.Once
)

// setupApp はGinアプリケーションを初期化します。
// サーバーレス環境では、リクエストごとに初期化が走らないようsync.Onceで一度だけ実行します。
func setupApp() (*gin.Engine, error) {
	once.Do(func() {
		// 環境変数はデプロイ先の設定から読み込まれるため、godotenvは呼び出しません。
		cfg := config.LoadConfig()
		if err := cfg.Validate(); err != nil {
			initErr = err
			log.Printf("❌ [setupApp] invalid configuration: %v", err)
			return
		}

		monitoringService := services.NewMonitoringService(cfg.MonitoringTimezone)
		processService, err := services.NewProcessServiceFromConfig(context.Background(), cfg, monitoringService)
		if err != nil {
			initErr = err
			log.Printf("❌ [setupApp] failed to initialize services: %v", err)
			return
		}

		app = handlers.NewRouter(handlers.RouterDeps{
			Process:       processService,
			Monitoring:    monitoringService,
			APIKey:        cfg.APIKey,
			AdminUsername: cfg.AdminUsername,
			AdminPassword: cfg.AdminPassword,
		})
		log.Printf("🟢 [setupApp] Gin application ready (provider: %s)", cfg.LLMProvider)
	})
	return app, initErr
}

// Handler はサーバーレス関数のエントリーポイントです。
func Handler(w http.ResponseWriter, r *http.Request) {
	engine, err := setupApp()
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse{Detail: "server is not configured: " + err.Error()})
		return
	}
	engine.ServeHTTP(w, r)
}
