package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/healthhub/internal/auth"
	"github.com/healthhub/internal/content"
	"github.com/healthhub/internal/db"
	"github.com/healthhub/internal/service"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubValidator struct {
	token  string
	slug   string
	result service.ValidationResult
	err    error
}

func (s *stubValidator) Validate(_ context.Context, token string, _ content.Content, slug string) (service.ValidationResult, error) {
	s.token = token
	s.slug = slug
	return s.result, s.err
}

type mockMetaGenerator struct {
	mock.Mock
}

func (m *mockMetaGenerator) Generate(ctx context.Context, input service.MetaDescriptionInput) (service.MetaDescriptionResult, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(service.MetaDescriptionResult), args.Error(1)
}

func setupTestAPI(t *testing.T) (*API, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared", logger.Silent)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	tokens, err := auth.NewTokenIssuer("handler-test-secret", time.Hour)
	require.NoError(t, err)

	api := NewAPI(Options{
		DB:        gdb,
		Tokens:    tokens,
		UploadDir: t.TempDir(),
		UploadURL: "/static/uploads",
	})
	return api, gdb
}

// newTestEngine mounts a single handler behind a session; loggedIn seeds user 1 with a token.
func newTestEngine(method, path string, h gin.HandlerFunc, loggedIn bool) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	if loggedIn {
		r.Use(func(c *gin.Context) {
			session := sessions.Default(c)
			session.Set(sessionUserIDKey, uint(1))
			session.Set(sessionAccessTokenKey, "session-token")
			c.Next()
		})
	}
	r.Handle(method, path, h)
	return r
}

func performJSON(r http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if raw, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(raw))
	} else {
		encoded, _ := json.Marshal(body)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedPage(t *testing.T, api *API, slug string, published bool) *service.WebsitePage {
	t.Helper()
	page, err := api.pages.Create(context.Background(), service.PageInput{
		Slug:      slug,
		Title:     "About",
		Content:   content.New(content.Hero{Title: "Welcome"}),
		Published: published,
	})
	require.NoError(t, err)
	return page
}
