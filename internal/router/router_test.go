package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/healthhub/internal/auth"
	"github.com/healthhub/internal/db"
	"github.com/healthhub/internal/handler"
	"github.com/healthhub/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	server *httptest.Server
	client *http.Client
	api    *handler.API
	tokens *auth.TokenIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithClock(t, nil)
}

// newTestEnvWithClock 使用给定时间来源签发和校验令牌，nil 表示 time.Now。
func newTestEnvWithClock(t *testing.T, clock func() time.Time) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared", logger.Silent)
	require.NoError(t, err)
	require.NoError(t, db.EnsureUser(gdb, "admin", "secret-pass"))

	tokens, err := auth.NewTokenIssuer("test-token-secret", time.Hour)
	require.NoError(t, err)
	tokens.SetClock(clock)

	uploadDir := t.TempDir()
	api := handler.NewAPI(handler.Options{
		DB:        gdb,
		Tokens:    tokens,
		UploadDir: uploadDir,
		UploadURL: "/static/uploads",
	})
	r := SetupRouter(api, tokens, Options{
		SessionSecret: "test-session-secret",
		UploadDir:     uploadDir,
		UploadURLPath: "/static/uploads",
	})

	server := httptest.NewServer(r)
	validator := service.NewContentValidator(server.URL+"/page-validator", nil)
	validator.SetCredentialVerifier(tokens)
	api.SetValidator(validator)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		server.Close()
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return &testEnv{
		server: server,
		client: &http.Client{Jar: jar},
		api:    api,
		tokens: tokens,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, header http.Header) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/admin/login", map[string]string{
		"username": "admin",
		"password": "secret-pass",
	}, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func aboutUsPayload() map[string]interface{} {
	return map[string]interface{}{
		"slug":      "about-us",
		"title":     "About",
		"published": false,
		"content": map[string]interface{}{
			"sections": []map[string]interface{}{
				{"type": "hero", "title": "Welcome"},
			},
		},
	}
}

func TestSetupRouterServesUploadsAlias(t *testing.T) {
	gin.SetMode(gin.TestMode)

	uploadDir := t.TempDir()
	fileName := "example.txt"
	fileContent := []byte("hello uploads")
	require.NoError(t, os.WriteFile(filepath.Join(uploadDir, fileName), fileContent, 0o644))

	tokens, err := auth.NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)
	r := SetupRouter(handler.NewAPI(handler.Options{Tokens: tokens}), tokens, Options{
		SessionSecret: "test-secret",
		UploadDir:     uploadDir,
		UploadURLPath: "/static/uploads",
	})

	for _, path := range []string{"/uploads/" + fileName, "/static/uploads/" + fileName} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, string(fileContent), rr.Body.String(), path)
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, http.MethodPost, "/admin/api/pages", aboutUsPayload(), nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodPost, "/admin/login", map[string]string{
		"username": "admin",
		"password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	env.login(t)
	status, _ = env.do(t, http.MethodGet, "/admin/api/pages", nil, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, "/admin/logout", nil, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodGet, "/admin/api/pages", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestPagePublishLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	status, body := env.do(t, http.MethodPost, "/admin/api/pages", aboutUsPayload(), nil)
	require.Equal(t, http.StatusCreated, status, string(body))

	var created struct {
		Page struct {
			ID        uint      `json:"id"`
			Version   int       `json:"version"`
			CreatedAt time.Time `json:"createdAt"`
		} `json:"page"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotZero(t, created.Page.ID)
	assert.Equal(t, 1, created.Page.Version)
	assert.False(t, created.Page.CreatedAt.IsZero())

	status, body = env.do(t, http.MethodGet, "/p/about-us", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "not published yet")

	pagePath := "/admin/api/pages/" + jsonNumber(created.Page.ID)
	status, body = env.do(t, http.MethodPut, pagePath, map[string]interface{}{
		"published": true,
		"version":   1,
	}, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = env.do(t, http.MethodGet, "/p/about-us", nil, nil)
	require.Equal(t, http.StatusOK, status)
	html := string(body)
	assert.Contains(t, html, "<title>About | HealthHub</title>")
	assert.Equal(t, 1, strings.Count(html, "<h1>"))
	assert.Contains(t, html, "<h1>Welcome</h1>")

	status, body = env.do(t, http.MethodGet, "/api/pages/about-us", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"documentTitle":"About | HealthHub"`)

	status, _ = env.do(t, http.MethodPut, pagePath, map[string]interface{}{
		"title":   "Stale edit",
		"version": 1,
	}, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, body = env.do(t, http.MethodGet, pagePath+"/revisions", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"version":1`)

	status, body = env.do(t, http.MethodGet, pagePath+"/stats", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"pageViews":1`)
	assert.Contains(t, string(body), `"uniqueVisitors":1`)
}

func TestCreatePageRejectsDuplicatesAndBadSections(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	status, _ := env.do(t, http.MethodPost, "/admin/api/pages", aboutUsPayload(), nil)
	require.Equal(t, http.StatusCreated, status)

	status, _ = env.do(t, http.MethodPost, "/admin/api/pages", aboutUsPayload(), nil)
	assert.Equal(t, http.StatusConflict, status)

	payload := aboutUsPayload()
	payload["slug"] = "contact"
	payload["content"] = map[string]interface{}{
		"sections": []map[string]interface{}{
			{"type": "hero", "title": "Hi", "extra": true},
		},
	}
	status, _ = env.do(t, http.MethodPost, "/admin/api/pages", payload, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	payload["content"] = map[string]interface{}{"sections": []interface{}{}}
	status, _ = env.do(t, http.MethodPost, "/admin/api/pages", payload, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPageValidatorRequiresBearer(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]interface{}{
		"slug": "about-us",
		"content": map[string]interface{}{
			"sections": []map[string]interface{}{{"type": "hero", "title": "Welcome"}},
		},
	}

	status, _ := env.do(t, http.MethodPost, "/page-validator", body, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	token, _, err := env.tokens.Issue(1, "admin")
	require.NoError(t, err)
	status, raw := env.do(t, http.MethodPost, "/page-validator", body, http.Header{
		"Authorization": []string{"Bearer " + token},
	})
	require.Equal(t, http.StatusOK, status)

	var result service.ValidationResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
}

func TestValidateUsesSessionToken(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]interface{}{
		"slug": "Bad Slug",
		"content": map[string]interface{}{
			"sections": []map[string]interface{}{{"type": "hero", "title": "Welcome"}},
		},
	}

	env.login(t)
	status, raw := env.do(t, http.MethodPost, "/admin/api/pages/validate", body, nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	var result service.ValidationResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.False(t, result.IsValid)
	assert.NotEmpty(t, result.Errors)
	assert.Empty(t, result.ServerError)
}

func TestValidateRejectsExpiredSessionToken(t *testing.T) {
	var skew atomic.Int64
	env := newTestEnvWithClock(t, func() time.Time {
		return time.Now().Add(time.Duration(skew.Load()))
	})

	body := map[string]interface{}{
		"slug": "Bad Slug",
		"content": map[string]interface{}{
			"sections": []map[string]interface{}{{"type": "hero", "title": "Welcome"}},
		},
	}

	env.login(t)
	skew.Store(int64(2 * time.Hour))

	status, raw := env.do(t, http.MethodPost, "/admin/api/pages/validate", body, nil)
	require.Equal(t, http.StatusUnauthorized, status, string(raw))
	assert.NotContains(t, string(raw), "isValid")

	env.login(t)
	status, raw = env.do(t, http.MethodPost, "/admin/api/pages/validate", body, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Contains(t, string(raw), `"isValid":false`)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodGet, "/ping", nil, nil)
	status, body := env.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "healthhub_http_requests_total")
}

func jsonNumber(id uint) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
