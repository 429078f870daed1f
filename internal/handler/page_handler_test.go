package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/healthhub/internal/content"
	"github.com/healthhub/internal/db"
	"github.com/healthhub/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreatePageUsesDefaultContent(t *testing.T) {
	api, gdb := setupTestAPI(t)
	r := newTestEngine(http.MethodPost, "/admin/api/pages", api.CreatePage, true)

	w := performJSON(r, http.MethodPost, "/admin/api/pages", map[string]interface{}{
		"slug":  "about-us",
		"title": "About",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var row db.Page
	require.NoError(t, gdb.Where("slug = ?", "about-us").First(&row).Error)
	stored, err := content.Parse([]byte(row.Content))
	require.NoError(t, err)
	require.Equal(t, 1, stored.Len())
	assert.Equal(t, content.KindHero, stored.Sections[0].Kind())
	require.NotNil(t, row.LastUpdatedBy)
	assert.Equal(t, uint(1), *row.LastUpdatedBy)
}

func TestCreatePageReportsFieldErrors(t *testing.T) {
	api, _ := setupTestAPI(t)
	r := newTestEngine(http.MethodPost, "/admin/api/pages", api.CreatePage, true)

	w := performJSON(r, http.MethodPost, "/admin/api/pages", map[string]interface{}{
		"slug":    "About Us!",
		"title":   "",
		"content": map[string]interface{}{"sections": []map[string]string{{"type": "hero", "title": "Hi"}}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Fields map[string]interface{} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "slug")
	assert.Contains(t, resp.Fields, "title")
}

func TestCreatePageRejectsUnknownSectionKind(t *testing.T) {
	api, _ := setupTestAPI(t)
	r := newTestEngine(http.MethodPost, "/admin/api/pages", api.CreatePage, true)

	w := performJSON(r, http.MethodPost, "/admin/api/pages", map[string]interface{}{
		"slug":    "about-us",
		"title":   "About",
		"content": map[string]interface{}{"sections": []map[string]string{{"type": "carousel"}}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdatePageVersionConflict(t *testing.T) {
	api, _ := setupTestAPI(t)
	page := seedPage(t, api, "about-us", false)
	r := newTestEngine(http.MethodPut, "/admin/api/pages/:id", api.UpdatePage, true)
	target := "/admin/api/pages/" + strconv.Itoa(int(page.ID))

	w := performJSON(r, http.MethodPut, target, map[string]interface{}{"title": "New title", "version": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = performJSON(r, http.MethodPut, target, map[string]interface{}{"title": "Older title", "version": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"The page was changed by someone else; reload and try again"}`, w.Body.String())

	w = performJSON(r, http.MethodPut, "/admin/api/pages/999", map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Page not found"}`, w.Body.String())

	w = performJSON(r, http.MethodPut, "/admin/api/pages/abc", map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeletePage(t *testing.T) {
	api, _ := setupTestAPI(t)
	page := seedPage(t, api, "about-us", false)
	r := newTestEngine(http.MethodDelete, "/admin/api/pages/:id", api.DeletePage, true)
	target := "/admin/api/pages/" + strconv.Itoa(int(page.ID))

	w := performJSON(r, http.MethodDelete, target, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performJSON(r, http.MethodDelete, target, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPagesFiltersPublished(t *testing.T) {
	api, _ := setupTestAPI(t)
	seedPage(t, api, "about-us", true)
	seedPage(t, api, "draft-page", false)
	r := newTestEngine(http.MethodGet, "/admin/api/pages", api.ListPages, true)

	w := performJSON(r, http.MethodGet, "/admin/api/pages?published=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Pages []service.WebsitePage `json:"pages"`
		Total int64                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp.Total)
	require.Len(t, resp.Pages, 1)
	assert.Equal(t, "about-us", resp.Pages[0].Slug)
}

func TestValidatePagePassesSessionToken(t *testing.T) {
	api, _ := setupTestAPI(t)
	stub := &stubValidator{result: service.ValidationResult{
		IsValid:        true,
		Errors:         []string{},
		Warnings:       []string{"short page"},
		SEOSuggestions: []string{},
	}}
	api.SetValidator(stub)
	r := newTestEngine(http.MethodPost, "/admin/api/pages/validate", api.ValidatePage, true)

	w := performJSON(r, http.MethodPost, "/admin/api/pages/validate", map[string]interface{}{
		"slug":    "about-us",
		"content": content.New(content.Hero{Title: "Welcome"}),
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "session-token", stub.token)
	assert.Equal(t, "about-us", stub.slug)
	assert.Contains(t, w.Body.String(), "short page")
}

func TestValidatePageWithoutTokenIsUnauthorized(t *testing.T) {
	api, _ := setupTestAPI(t)
	api.SetValidator(&stubValidator{err: service.ErrAuthenticationRequired})
	r := newTestEngine(http.MethodPost, "/admin/api/pages/validate", api.ValidatePage, false)

	w := performJSON(r, http.MethodPost, "/admin/api/pages/validate", map[string]interface{}{
		"slug":    "about-us",
		"content": content.New(content.Hero{Title: "Welcome"}),
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGenerateMetaDescription(t *testing.T) {
	api, _ := setupTestAPI(t)
	generator := new(mockMetaGenerator)
	api.SetMetaDescriptionGenerator(generator)
	r := newTestEngine(http.MethodPost, "/admin/api/pages/meta-description", api.GenerateMetaDescription, true)

	generator.On("Generate", mock.Anything, mock.MatchedBy(func(in service.MetaDescriptionInput) bool {
		return in.Title == "About" && in.Slug == "about-us" && in.Content.Len() == 1
	})).Return(service.MetaDescriptionResult{MetaDescription: "Meet the team."}, nil).Once()

	w := performJSON(r, http.MethodPost, "/admin/api/pages/meta-description", map[string]interface{}{
		"title":   "About",
		"slug":    "about-us",
		"content": content.New(content.Hero{Title: "Welcome"}),
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Meet the team.")
	generator.AssertExpectations(t)
}

func TestGenerateMetaDescriptionErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "missing api key", err: service.ErrAIAPIKeyMissing, status: http.StatusBadRequest},
		{name: "no sections", err: service.ErrPageSectionsMissing, status: http.StatusBadRequest},
		{name: "provider failure", err: errors.New("upstream down"), status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, _ := setupTestAPI(t)
			generator := new(mockMetaGenerator)
			generator.On("Generate", mock.Anything, mock.Anything).
				Return(service.MetaDescriptionResult{}, tt.err).Once()
			api.SetMetaDescriptionGenerator(generator)
			r := newTestEngine(http.MethodPost, "/admin/api/pages/meta-description", api.GenerateMetaDescription, true)

			w := performJSON(r, http.MethodPost, "/admin/api/pages/meta-description", map[string]interface{}{
				"content": content.New(content.Hero{Title: "Welcome"}),
			})
			assert.Equal(t, tt.status, w.Code)
			generator.AssertExpectations(t)
		})
	}
}
