package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/healthhub/internal/content"
	"github.com/healthhub/internal/logging"
	"go.uber.org/zap"
)

// MetaDescriptionInput 描述生成页面 meta description 所需的上下文。
type MetaDescriptionInput struct {
	Title   string
	Slug    string
	Content content.Content
}

// MetaDescriptionResult 返回模型生成的描述及少量元数据。
type MetaDescriptionResult struct {
	MetaDescription  string `json:"metaDescription"`
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
}

// MetaDescriptionGenerator 便于在 handler 中注入不同实现。
type MetaDescriptionGenerator interface {
	Generate(ctx context.Context, input MetaDescriptionInput) (MetaDescriptionResult, error)
}

const (
	defaultMetaMaxTokens    = 160
	defaultMetaTemperature  = 0.2
	maxMetaDescriptionRunes = 320
)

const defaultMetaSystemPrompt = "Write a single meta description for a healthcare innovation web page. " +
	"Use plain text, no quotes, at most 155 characters, and keep the language of the page."

// MetaDescriptionService 基于大模型接口为页面生成 meta description。
type MetaDescriptionService struct {
	settings  *SystemSettingService
	assistant *pageCopyAssistant
	logger    *zap.Logger
}

// NewMetaDescriptionService 构造默认的 MetaDescriptionService。
func NewMetaDescriptionService(settings *SystemSettingService, logger *zap.Logger) *MetaDescriptionService {
	return &MetaDescriptionService{
		settings:  settings,
		assistant: newPageCopyAssistant(),
		logger:    logging.OrNop(logger),
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (s *MetaDescriptionService) SetHTTPClient(client httpDoer) {
	s.assistant.SetHTTPClient(client)
}

// SetAIBaseURL 覆盖指定服务商的 API 地址。
func (s *MetaDescriptionService) SetAIBaseURL(provider, base string) {
	s.assistant.SetBaseURL(provider, base)
}

// Generate 调用当前配置的 AI 平台生成描述，未配置 API Key 时返回 ErrAIAPIKeyMissing。
func (s *MetaDescriptionService) Generate(ctx context.Context, input MetaDescriptionInput) (MetaDescriptionResult, error) {
	if input.Content.Len() == 0 {
		return MetaDescriptionResult{}, ErrPageSectionsMissing
	}

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return MetaDescriptionResult{}, fmt.Errorf("load settings: %w", err)
	}

	userPrompt := buildMetaDescriptionPrompt(input)
	logAIExchange(s.logger, "META", "prompt", userPrompt)

	reply, err := s.assistant.Ask(ctx, settings, pageCopyRequest{
		Task:         taskMetaDescription,
		Instructions: defaultMetaSystemPrompt,
		Page:         userPrompt,
		MaxTokens:    defaultMetaMaxTokens,
		Temperature:  defaultMetaTemperature,
	})
	if err != nil {
		return MetaDescriptionResult{}, err
	}
	logAIExchange(s.logger, "META", "response", reply.Raw)

	description := strings.Join(strings.Fields(strings.Trim(reply.MetaDescription, "\"'“”")), " ")
	if description == "" {
		return MetaDescriptionResult{}, fmt.Errorf("meta description: %w", errEmptyCompletion)
	}
	return MetaDescriptionResult{
		MetaDescription:  truncateRunes(description, maxMetaDescriptionRunes),
		PromptTokens:     reply.PromptTokens,
		CompletionTokens: reply.CompletionTokens,
	}, nil
}

func buildMetaDescriptionPrompt(input MetaDescriptionInput) string {
	var builder strings.Builder
	if title := strings.TrimSpace(input.Title); title != "" {
		builder.WriteString("Title: ")
		builder.WriteString(title)
		builder.WriteString("\n")
	}
	builder.WriteString(buildSEOPrompt(NormalizeSlug(input.Slug), input.Content))
	return truncateRunes(builder.String(), maxSEOContentRuneCount)
}
