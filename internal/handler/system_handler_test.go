package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemSettingsHideKeys(t *testing.T) {
	api, _ := setupTestAPI(t)
	put := newTestEngine(http.MethodPut, "/admin/api/settings", api.UpdateSystemSettings, true)
	get := newTestEngine(http.MethodGet, "/admin/api/settings", api.GetSystemSettings, true)

	w := performJSON(put, http.MethodPut, "/admin/api/settings", map[string]string{
		"siteName":     "Clinic Hub",
		"aiProvider":   "deepseek",
		"openaiApiKey": "sk-secret",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "sk-secret")

	w = performJSON(get, http.MethodGet, "/admin/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Settings struct {
			SiteName       string `json:"siteName"`
			AIProvider     string `json:"aiProvider"`
			OpenAIKeySet   bool   `json:"openaiKeySet"`
			DeepSeekKeySet bool   `json:"deepseekKeySet"`
		} `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Clinic Hub", resp.Settings.SiteName)
	assert.Equal(t, "deepseek", resp.Settings.AIProvider)
	assert.True(t, resp.Settings.OpenAIKeySet)
	assert.False(t, resp.Settings.DeepSeekKeySet)
}

func TestHealthCheck(t *testing.T) {
	api, _ := setupTestAPI(t)
	r := newTestEngine(http.MethodGet, "/healthz", api.HealthCheck, false)

	w := performJSON(r, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"up"}`, w.Body.String())
}
