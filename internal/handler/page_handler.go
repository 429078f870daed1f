package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/healthhub/internal/content"
	"github.com/healthhub/internal/service"
	"go.uber.org/zap"
)

type pageCreateRequest struct {
	Slug            string           `json:"slug"`
	Title           string           `json:"title"`
	MetaDescription string           `json:"metaDescription"`
	Content         *content.Content `json:"content"`
	Published       bool             `json:"published"`
}

type pageUpdateRequest struct {
	Slug            *string          `json:"slug"`
	Title           *string          `json:"title"`
	MetaDescription *string          `json:"metaDescription"`
	Content         *content.Content `json:"content"`
	Published       *bool            `json:"published"`
	Version         *int             `json:"version"`
}

type pageValidateRequest struct {
	Slug    string          `json:"slug"`
	Content content.Content `json:"content"`
}

type metaDescriptionRequest struct {
	Title   string          `json:"title"`
	Slug    string          `json:"slug"`
	Content content.Content `json:"content"`
}

// ListPages 返回分页的页面列表，可按标题/slug 搜索与发布状态过滤。
func (a *API) ListPages(c *gin.Context) {
	filter := service.PageFilter{
		Search: strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			filter.Page = page
		}
	}
	if raw := c.Query("perPage"); raw != "" {
		if perPage, err := strconv.Atoi(raw); err == nil {
			filter.PerPage = perPage
		}
	}
	if raw := c.Query("published"); raw != "" {
		if published, err := strconv.ParseBool(raw); err == nil {
			filter.Published = &published
		}
	}

	result, err := a.pages.List(c.Request.Context(), filter)
	if err != nil {
		a.respondPageError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pages":      result.Pages,
		"total":      result.Total,
		"totalPages": result.TotalPages,
		"page":       result.Page,
		"perPage":    result.PerPage,
	})
}

// GetPage 返回单个页面。
func (a *API) GetPage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid page ID")
		return
	}

	page, err := a.pages.GetByID(c.Request.Context(), id)
	if err != nil {
		a.respondPageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": page})
}

// CreatePage 创建页面，未提供区块时使用默认的 hero 区块。
func (a *API) CreatePage(c *gin.Context) {
	var payload pageCreateRequest
	if !bindJSON(c, &payload, "Malformed page content") {
		return
	}

	body := content.DefaultContent()
	if payload.Content != nil {
		body = *payload.Content
	}

	page, err := a.pages.Create(c.Request.Context(), service.PageInput{
		Slug:            payload.Slug,
		Title:           payload.Title,
		MetaDescription: payload.MetaDescription,
		Content:         body,
		Published:       payload.Published,
		EditorID:        currentUserID(c),
	})
	if err != nil {
		a.respondPageError(c, err)
		return
	}

	a.logger.Info("page created", zap.Uint("id", page.ID), zap.String("slug", page.Slug))
	c.JSON(http.StatusCreated, gin.H{"message": "Page created", "page": page})
}

// UpdatePage 局部更新页面；携带 version 时进行乐观并发校验。
func (a *API) UpdatePage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid page ID")
		return
	}

	var payload pageUpdateRequest
	if !bindJSON(c, &payload, "Malformed page content") {
		return
	}

	page, err := a.pages.Update(c.Request.Context(), id, service.PageUpdate{
		Slug:            payload.Slug,
		Title:           payload.Title,
		MetaDescription: payload.MetaDescription,
		Content:         payload.Content,
		Published:       payload.Published,
		EditorID:        currentUserID(c),
		ExpectedVersion: payload.Version,
	})
	if err != nil {
		a.respondPageError(c, err)
		return
	}

	a.logger.Info("page updated",
		zap.Uint("id", page.ID),
		zap.String("slug", page.Slug),
		zap.Int("version", page.Version),
	)
	c.JSON(http.StatusOK, gin.H{"message": "Page updated", "page": page})
}

// DeletePage 删除页面及其历史。
func (a *API) DeletePage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid page ID")
		return
	}

	if err := a.pages.Delete(c.Request.Context(), id); err != nil {
		a.respondPageError(c, err)
		return
	}

	a.logger.Info("page deleted", zap.Uint("id", id))
	c.JSON(http.StatusOK, gin.H{"message": "Page deleted"})
}

// PageRevisions 返回页面的历史版本。
func (a *API) PageRevisions(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid page ID")
		return
	}

	revisions, err := a.pages.Revisions(c.Request.Context(), id)
	if err != nil {
		a.respondPageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revisions": revisions})
}

// ValidatePage 使用当前会话的访问令牌调用内容校验服务。
// 校验服务不可用时仍返回 200，由 serverError 字段提示。
func (a *API) ValidatePage(c *gin.Context) {
	var payload pageValidateRequest
	if !bindJSON(c, &payload, "Malformed page content") {
		return
	}

	result, err := a.validator.Validate(c.Request.Context(), sessionAccessToken(c), payload.Content, payload.Slug)
	if err != nil {
		if errors.Is(err, service.ErrAuthenticationRequired) {
			respondError(c, http.StatusUnauthorized, "Your session has expired, please log in again")
			return
		}
		respondError(c, http.StatusInternalServerError, "Content validation failed")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GenerateMetaDescription 调用 AI 生成页面的 meta description。
func (a *API) GenerateMetaDescription(c *gin.Context) {
	var payload metaDescriptionRequest
	if !bindJSON(c, &payload, "Malformed page content") {
		return
	}

	result, err := a.meta.Generate(c.Request.Context(), service.MetaDescriptionInput{
		Title:   payload.Title,
		Slug:    payload.Slug,
		Content: payload.Content,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAIAPIKeyMissing):
			respondError(c, http.StatusBadRequest, "Configure an AI API key in system settings first")
		case errors.Is(err, service.ErrPageSectionsMissing):
			respondError(c, http.StatusBadRequest, "A page needs at least one section")
		default:
			a.logger.Warn("generate meta description", zap.Error(err))
			respondError(c, http.StatusBadGateway, "Generation failed, please try again later")
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// PageStats 返回单个页面的 PV/UV。
func (a *API) PageStats(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid page ID")
		return
	}

	if _, err := a.pages.GetByID(c.Request.Context(), id); err != nil {
		a.respondPageError(c, err)
		return
	}

	stats, err := a.views.Stats(c.Request.Context(), id)
	if err != nil {
		a.respondPageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// AnalyticsOverview 汇总全站浏览数据。
func (a *API) AnalyticsOverview(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	overview, err := a.views.Overview(c.Request.Context(), limit)
	if err != nil {
		a.respondPageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overview": overview})
}
