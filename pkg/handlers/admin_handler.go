package handlers

import (
	"net/http"
	"sync/atomic"

	"waste-process-api/pkg/models"

	"github.com/gin-gonic/gin"
)

// Maintenance はサーバーがメンテナンスモードかどうかを保持します。
type Maintenance struct {
	enabled atomic.Bool
}

// Enabled reports whether maintenance mode is on.
func (m *Maintenance) Enabled() bool { return m.enabled.Load() }

// Set turns maintenance mode on or off.
func (m *Maintenance) Set(on bool) { m.enabled.Store(on) }

// Guard rejects requests with 503 while maintenance mode is on.
func (m *Maintenance) Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.Enabled() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, models.ErrorResponse{Detail: "Server is in maintenance mode"})
			return
		}
		c.Next()
	}
}

// AdminHandler は管理者向け操作のハンドラです。
type AdminHandler struct {
	username    string
	password    string
	maintenance *Maintenance
}

// NewAdminHandler は新しいAdminHandlerを生成します。
// An empty password disables the maintenance endpoints.
func NewAdminHandler(username, password string, maintenance *Maintenance) *AdminHandler {
	return &AdminHandler{
		username:    username,
		password:    password,
		maintenance: maintenance,
	}
}

// AdminCredentials は管理者認証のためのリクエストボディです。
type AdminCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// StartMaintenance はメンテナンスモードを開始します。
func (h *AdminHandler) StartMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	h.maintenance.Set(true)
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode started"})
}

// StopMaintenance はメンテナンスモードを停止します。
func (h *AdminHandler) StopMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	h.maintenance.Set(false)
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode stopped"})
}

func (h *AdminHandler) authorize(c *gin.Context) bool {
	var input AdminCredentials
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "Username and password are required"})
		return false
	}
	if h.password == "" || input.Username != h.username || input.Password != h.password {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Detail: "Invalid credentials"})
		return false
	}
	return true
}

// GetHealthStatus は現在のサーバーの状態を返します。
func (h *AdminHandler) GetHealthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"isMaintenanceMode": h.maintenance.Enabled()})
}

// HealthCheck は外部のヘルスチェッカー（例: ロードバランサー）からのリクエストに応答します。
func (h *AdminHandler) HealthCheck(c *gin.Context) {
	if h.maintenance.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": "Server is in maintenance mode"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
