package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/healthhub/internal/render"
	"github.com/healthhub/internal/service"
	"go.uber.org/zap"
)

const (
	visitorCookieName   = "hh_visitor_id"
	visitorCookieMaxAge = 365 * 24 * 60 * 60
)

func lookupStatus(state service.LookupState) int {
	switch state {
	case service.LookupReady:
		return http.StatusOK
	case service.LookupNotFound, service.LookupNotPublished:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ShowPage 渲染已发布的页面。
func (a *API) ShowPage(c *gin.Context) {
	ctx := c.Request.Context()
	result := a.lookup.Resolve(ctx, c.Param("slug"))
	if result.State == service.LookupCanceled {
		c.Abort()
		return
	}

	siteName := a.system.SiteName(ctx)
	if result.State != service.LookupReady {
		if result.Notify {
			c.Header("X-Notify", result.Message)
		}
		out, err := a.renderer.RenderMessage(siteName, result.Message)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Data(lookupStatus(result.State), "text/html; charset=utf-8", out)
		return
	}

	page := result.Page
	a.recordView(c, page.ID)

	out, err := a.renderer.RenderDocument(render.Document{
		Title:           service.DocumentTitle(page.Title, siteName),
		MetaDescription: page.MetaDescription,
		Content:         page.Content,
	})
	if err != nil {
		a.logger.Error("render page", zap.String("slug", page.Slug), zap.Error(err))
		out, _ = a.renderer.RenderMessage(siteName, service.MessageLoadFailed)
		c.Data(http.StatusInternalServerError, "text/html; charset=utf-8", out)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", out)
}

// GetPublicPage 以 JSON 返回已发布页面，供前端自行渲染。
func (a *API) GetPublicPage(c *gin.Context) {
	ctx := c.Request.Context()
	result := a.lookup.Resolve(ctx, c.Param("slug"))
	if result.State == service.LookupCanceled {
		c.Abort()
		return
	}

	if result.State != service.LookupReady {
		c.JSON(lookupStatus(result.State), gin.H{
			"state":  result.State,
			"error":  result.Message,
			"notify": result.Notify,
		})
		return
	}

	page := result.Page
	a.recordView(c, page.ID)

	c.JSON(http.StatusOK, gin.H{
		"state":         result.State,
		"documentTitle": service.DocumentTitle(page.Title, a.system.SiteName(ctx)),
		"page": gin.H{
			"slug":            page.Slug,
			"title":           page.Title,
			"metaDescription": page.MetaDescription,
			"content":         page.Content,
			"updatedAt":       page.UpdatedAt,
		},
	})
}

func (a *API) recordView(c *gin.Context, pageID uint) {
	if a.views == nil {
		return
	}
	visitorID := a.ensureVisitorID(c)
	if _, err := a.views.RecordView(c.Request.Context(), pageID, visitorID, time.Now().UTC()); err != nil {
		// 不中断渲染，但记录错误
		a.logger.Warn("record page view", zap.Uint("page", pageID), zap.Error(err))
	}
}

func (a *API) ensureVisitorID(c *gin.Context) string {
	if id, err := c.Cookie(visitorCookieName); err == nil && strings.TrimSpace(id) != "" {
		return id
	}

	visitorID := uuid.NewString()
	secure := c.Request.TLS != nil

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     visitorCookieName,
		Value:    visitorID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		MaxAge:   visitorCookieMaxAge,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		SameSite: http.SameSiteLaxMode,
	})

	return visitorID
}
