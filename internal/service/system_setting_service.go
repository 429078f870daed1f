package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/healthhub/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// AIProviderOpenAI 表示使用 OpenAI 能力。
	AIProviderOpenAI = "openai"
	// AIProviderDeepSeek 表示使用 DeepSeek 能力。
	AIProviderDeepSeek = "deepseek"

	defaultSiteName = "HealthHub"
)

var supportedAIProviders = []string{AIProviderOpenAI, AIProviderDeepSeek}

// SystemSettings 描述后台可配置的系统信息。
type SystemSettings struct {
	SiteName       string `json:"siteName"`
	AIProvider     string `json:"aiProvider"`
	OpenAIAPIKey   string `json:"-"`
	DeepSeekAPIKey string `json:"-"`
	SEOPrompt      string `json:"seoPrompt"`
}

// HasAIKey reports whether the active provider has an API key configured.
func (s SystemSettings) HasAIKey() bool {
	switch normalizeAIProvider(s.AIProvider) {
	case AIProviderDeepSeek:
		return strings.TrimSpace(s.DeepSeekAPIKey) != ""
	default:
		return strings.TrimSpace(s.OpenAIAPIKey) != ""
	}
}

// ErrAIAPIKeyMissing 表示未提供必需的 AI 平台 API Key。
var ErrAIAPIKeyMissing = errors.New("api key is required")

// SystemSettingsInput 用于更新系统设置。空的 API Key 表示保持原值。
type SystemSettingsInput struct {
	SiteName       string
	AIProvider     string
	OpenAIAPIKey   string
	DeepSeekAPIKey string
	SEOPrompt      string
}

// SystemSettingService 提供系统设置的读取与更新能力。
type SystemSettingService struct {
	db *gorm.DB
}

// NewSystemSettingService 构造 SystemSettingService。
func NewSystemSettingService(gdb *gorm.DB) *SystemSettingService {
	return &SystemSettingService{db: gdb}
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var settingKeys = []string{
	db.SettingKeySiteName,
	db.SettingKeyAIProvider,
	db.SettingKeyOpenAIAPIKey,
	db.SettingKeyDeepSeekAPIKey,
	db.SettingKeySEOPrompt,
}

// GetSettings 读取系统设置，如未设置将返回默认值。
func (s *SystemSettingService) GetSettings(ctx context.Context) (SystemSettings, error) {
	result := SystemSettings{
		SiteName:   defaultSiteName,
		AIProvider: AIProviderOpenAI,
		SEOPrompt:  defaultSEOSystemPrompt,
	}

	var records []db.SystemSetting
	if err := s.db.WithContext(ctx).Where("key IN ?", settingKeys).Find(&records).Error; err != nil {
		return result, fmt.Errorf("load system settings: %w", err)
	}

	for _, record := range records {
		switch record.Key {
		case db.SettingKeySiteName:
			if strings.TrimSpace(record.Value) != "" {
				result.SiteName = record.Value
			}
		case db.SettingKeyAIProvider:
			if provider := normalizeAIProvider(record.Value); provider != "" {
				result.AIProvider = provider
			}
		case db.SettingKeyOpenAIAPIKey:
			result.OpenAIAPIKey = record.Value
		case db.SettingKeyDeepSeekAPIKey:
			result.DeepSeekAPIKey = record.Value
		case db.SettingKeySEOPrompt:
			if strings.TrimSpace(record.Value) != "" {
				result.SEOPrompt = record.Value
			}
		}
	}

	return result, nil
}

// SiteName 返回站点名称，读取失败时回退默认值。
func (s *SystemSettingService) SiteName(ctx context.Context) string {
	settings, err := s.GetSettings(ctx)
	if err != nil || strings.TrimSpace(settings.SiteName) == "" {
		return defaultSiteName
	}
	return strings.TrimSpace(settings.SiteName)
}

// UpdateSettings 保存系统设置，未填写站点名称时回退默认值。
func (s *SystemSettingService) UpdateSettings(ctx context.Context, input SystemSettingsInput) (SystemSettings, error) {
	current, err := s.GetSettings(ctx)
	if err != nil {
		return SystemSettings{}, err
	}

	provider := normalizeAIProvider(input.AIProvider)
	if provider == "" {
		provider = AIProviderOpenAI
	}

	sanitized := SystemSettings{
		SiteName:       strings.TrimSpace(input.SiteName),
		AIProvider:     provider,
		OpenAIAPIKey:   strings.TrimSpace(input.OpenAIAPIKey),
		DeepSeekAPIKey: strings.TrimSpace(input.DeepSeekAPIKey),
		SEOPrompt:      strings.TrimSpace(input.SEOPrompt),
	}

	if sanitized.SiteName == "" {
		sanitized.SiteName = defaultSiteName
	}
	if sanitized.OpenAIAPIKey == "" {
		sanitized.OpenAIAPIKey = current.OpenAIAPIKey
	}
	if sanitized.DeepSeekAPIKey == "" {
		sanitized.DeepSeekAPIKey = current.DeepSeekAPIKey
	}
	if sanitized.SEOPrompt == "" {
		sanitized.SEOPrompt = defaultSEOSystemPrompt
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := map[string]string{
			db.SettingKeySiteName:       sanitized.SiteName,
			db.SettingKeyAIProvider:     sanitized.AIProvider,
			db.SettingKeyOpenAIAPIKey:   sanitized.OpenAIAPIKey,
			db.SettingKeyDeepSeekAPIKey: sanitized.DeepSeekAPIKey,
			db.SettingKeySEOPrompt:      sanitized.SEOPrompt,
		}
		for _, key := range settingKeys {
			if err := upsertSetting(tx, key, values[key]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SystemSettings{}, fmt.Errorf("update system settings: %w", err)
	}

	return sanitized, nil
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.SystemSetting{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}

func normalizeAIProvider(provider string) string {
	trimmed := strings.ToLower(strings.TrimSpace(provider))
	for _, candidate := range supportedAIProviders {
		if trimmed == candidate {
			return candidate
		}
	}
	return ""
}
