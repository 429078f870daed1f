package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/healthhub/internal/auth"
	"github.com/healthhub/internal/service"
	"go.uber.org/zap"
)

// PageValidator 是 /page-validator 的服务端实现，需要 Bearer 令牌。
func (a *API) PageValidator(c *gin.Context) {
	var payload pageValidateRequest
	if !bindJSON(c, &payload, "Malformed page content") {
		return
	}

	result := a.audit.Audit(c.Request.Context(), service.ValidationRequest{
		Content: payload.Content,
		Slug:    payload.Slug,
	})

	fields := []zap.Field{
		zap.String("slug", payload.Slug),
		zap.Bool("valid", result.IsValid),
		zap.Int("errors", len(result.Errors)),
		zap.Int("warnings", len(result.Warnings)),
	}
	if claims, ok := auth.ClaimsFrom(c); ok {
		fields = append(fields, zap.String("user", claims.Username))
	}
	a.logger.Info("page audited", fields...)

	c.JSON(http.StatusOK, result)
}
