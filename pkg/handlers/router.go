package handlers

import (
	"net/http"

	"waste-process-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterDeps are the services the HTTP surface is built from.
type RouterDeps struct {
	Process       *services.WasteProcessService
	Monitoring    *services.MonitoringService
	APIKey        string
	AdminUsername string
	AdminPassword string
}

// NewRouter wires middleware and routes onto a new gin engine.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.Default()

	maintenance := &Maintenance{}
	adminHandler := NewAdminHandler(deps.AdminUsername, deps.AdminPassword, maintenance)
	processHandler := NewProcessHandler(deps.Process)

	r.Use(RequestIDMiddleware())
	if deps.Monitoring != nil {
		r.Use(deps.Monitoring.LoggingMiddleware())
	}
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		ExposeHeaders:   []string{services.RequestIDHeader},
	}))

	// ヘルスチェックエンドポイント
	r.GET("/health", adminHandler.HealthCheck)
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Food-waste process API"})
	})
	if deps.Monitoring != nil {
		r.GET("/metrics", gin.WrapH(deps.Monitoring.MetricsHandler()))
	}

	v1 := r.Group("/api/v1")
	v1.Use(APIKeyMiddleware(deps.APIKey))
	{
		process := v1.Group("/process")
		process.Use(maintenance.Guard())
		{
			process.POST("/process", processHandler.Process)
			process.POST("/metrics", processHandler.Metrics)
			process.GET("/history", processHandler.History)
		}

		// 管理者向けAPI
		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}

		if deps.Monitoring != nil {
			monitoringHandler := NewMonitoringHandler(deps.Monitoring)
			v1.GET("/monitoring/logs", monitoringHandler.GetLogs)
		}
	}

	return r
}
