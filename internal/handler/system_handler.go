package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/healthhub/internal/service"
)

// HealthCheck 提供监控系统使用的健康检查端点。
func (a *API) HealthCheck(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "database handle unavailable",
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "up",
	})
}

type systemSettingsRequest struct {
	SiteName       string `json:"siteName"`
	AIProvider     string `json:"aiProvider"`
	OpenAIAPIKey   string `json:"openaiApiKey"`
	DeepSeekAPIKey string `json:"deepseekApiKey"`
	SEOPrompt      string `json:"seoPrompt"`
}

// GetSystemSettings 返回当前系统设置，API Key 只返回是否已配置。
func (a *API) GetSystemSettings(c *gin.Context) {
	settings, err := a.system.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to load system settings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": systemSettingsPayload(settings)})
}

// UpdateSystemSettings 保存系统设置。
func (a *API) UpdateSystemSettings(c *gin.Context) {
	var payload systemSettingsRequest
	if !bindJSON(c, &payload, "Please fill in all system settings") {
		return
	}

	settings, err := a.system.UpdateSettings(c.Request.Context(), payload.toInput())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to save system settings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "System settings saved",
		"settings": systemSettingsPayload(settings),
	})
}

func (r systemSettingsRequest) toInput() service.SystemSettingsInput {
	return service.SystemSettingsInput{
		SiteName:       r.SiteName,
		AIProvider:     r.AIProvider,
		OpenAIAPIKey:   r.OpenAIAPIKey,
		DeepSeekAPIKey: r.DeepSeekAPIKey,
		SEOPrompt:      r.SEOPrompt,
	}
}

func systemSettingsPayload(settings service.SystemSettings) gin.H {
	return gin.H{
		"siteName":       settings.SiteName,
		"aiProvider":     settings.AIProvider,
		"openaiKeySet":   settings.OpenAIAPIKey != "",
		"deepseekKeySet": settings.DeepSeekAPIKey != "",
		"seoPrompt":      settings.SEOPrompt,
	}
}
