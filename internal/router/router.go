package router

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/healthhub/internal/auth"
	"github.com/healthhub/internal/handler"
	"github.com/healthhub/internal/logging"
	"github.com/healthhub/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const sessionName = "healthhub_session"

// Options 描述路由层需要的配置。
type Options struct {
	SessionSecret string
	UploadDir     string
	UploadURLPath string
	Logger        *zap.Logger
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, tokens *auth.TokenIssuer, opts Options) *gin.Engine {
	logger := logging.OrNop(opts.Logger)

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.Metrics(),
	)

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   12 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	// 上传文件服务
	if opts.UploadDir != "" {
		uploadPath := "/" + strings.Trim(opts.UploadURLPath, "/")
		if uploadPath == "/" {
			uploadPath = "/static/uploads"
		}
		r.Static(uploadPath, opts.UploadDir)
		if uploadPath != "/uploads" {
			r.Static("/uploads", opts.UploadDir)
		}
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/healthz", api.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 前台页面
	r.GET("/p/:slug", api.ShowPage)
	r.GET("/api/pages/:slug", api.GetPublicPage)

	// 内容校验服务
	r.POST("/page-validator", auth.BearerRequired(tokens), api.PageValidator)

	// 后台管理路由
	admin := r.Group("/admin")
	{
		admin.POST("/login", api.Login)
		admin.POST("/logout", api.Logout)

		// 需要认证的后台路由
		authed := admin.Group("/api")
		authed.Use(handler.AuthRequired())
		{
			authed.GET("/pages", api.ListPages)
			authed.POST("/pages", api.CreatePage)
			authed.POST("/pages/validate", api.ValidatePage)
			authed.POST("/pages/meta-description", api.GenerateMetaDescription)
			authed.GET("/pages/:id", api.GetPage)
			authed.PUT("/pages/:id", api.UpdatePage)
			authed.DELETE("/pages/:id", api.DeletePage)
			authed.GET("/pages/:id/revisions", api.PageRevisions)
			authed.GET("/pages/:id/stats", api.PageStats)

			authed.GET("/analytics/overview", api.AnalyticsOverview)

			authed.POST("/uploads", api.UploadImage)

			authed.GET("/settings", api.GetSystemSettings)
			authed.PUT("/settings", api.UpdateSystemSettings)
		}
	}

	return r
}
