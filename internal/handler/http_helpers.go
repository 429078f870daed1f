package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/healthhub/internal/service"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": message, "detail": err.Error()})
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// respondPageError 将页面服务的错误映射为 HTTP 状态码。
func (a *API) respondPageError(c *gin.Context, err error) {
	var fields validation.Errors
	switch {
	case errors.Is(err, service.ErrPageNotFound):
		respondError(c, http.StatusNotFound, "Page not found")
	case errors.Is(err, service.ErrDuplicateSlug):
		respondError(c, http.StatusConflict, "This slug is already used by another page")
	case errors.Is(err, service.ErrPageVersionConflict):
		respondError(c, http.StatusConflict, "The page was changed by someone else; reload and try again")
	case errors.Is(err, service.ErrPageSectionsMissing):
		respondError(c, http.StatusBadRequest, "A page needs at least one section")
	case errors.As(err, &fields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Page validation failed", "fields": fields})
	default:
		a.logger.Error("page request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		respondError(c, http.StatusInternalServerError, "Something went wrong, please try again later")
	}
}
