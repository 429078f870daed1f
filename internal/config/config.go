package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabasePath      string
	SessionSecret     string
	GinMode           string
	UploadDir         string
	UploadURLPath     string
	SuperRootUserName string
	SuperRootPassword string
	SiteBaseURL       string
	TokenSecret       string
	TokenTTL          time.Duration
	ValidatorURL      string
	LogLevel          string
	LogFormat         string
}

// LoadDotEnv 读取工作目录下的 .env 文件，文件不存在时静默跳过。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := envOr("PORT", "8080")

	listenAddr := envOr("LISTEN_ADDR", fmt.Sprintf(":%s", port))

	sessionSecret := envOr("SESSION_SECRET", "healthhub-dev-secret")

	siteBaseURL := strings.TrimRight(envOr("SITE_BASE_URL", "http://localhost:"+port), "/")

	tokenSecret := envOr("TOKEN_SECRET", sessionSecret)

	tokenTTL := 12 * time.Hour
	if raw := strings.TrimSpace(os.Getenv("TOKEN_TTL")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			tokenTTL = parsed
		}
	}

	validatorURL := envOr("VALIDATOR_URL", siteBaseURL+"/page-validator")

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabasePath:      envOr("DATABASE_PATH", "healthhub.db"),
		SessionSecret:     sessionSecret,
		GinMode:           envOr("GIN_MODE", "release"),
		UploadDir:         envOr("UPLOAD_DIR", "web/static/uploads"),
		UploadURLPath:     envOr("UPLOAD_URL_PATH", "/static/uploads"),
		SuperRootUserName: strings.TrimSpace(os.Getenv("SUPER_ROOT_USER_NAME")),
		SuperRootPassword: strings.TrimSpace(os.Getenv("SUPER_ROOT_PASSWORD")),
		SiteBaseURL:       siteBaseURL,
		TokenSecret:       tokenSecret,
		TokenTTL:          tokenTTL,
		ValidatorURL:      validatorURL,
		LogLevel:          strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(envOr("LOG_FORMAT", "json")),
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
