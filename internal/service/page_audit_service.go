package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/healthhub/internal/content"
	"github.com/healthhub/internal/logging"
	"go.uber.org/zap"
)

const (
	defaultSEOMaxTokens    = 320
	defaultSEOTemperature  = 0.3
	maxSEOContentRuneCount = 4000
	maxAISuggestions       = 5

	maxSlugRunesForSEO = 60
	maxHeroTitleForSEO = 60
	minPageWordsForSEO = 150
)

const defaultSEOSystemPrompt = "You review pages of a healthcare innovation website for search engine optimisation. " +
	"Given the page slug and its sections, list at most 5 short, concrete suggestions."

// PageAuditService 是 /page-validator 的服务端实现：规则校验加可选的 AI SEO 建议。
type PageAuditService struct {
	settings  *SystemSettingService
	assistant *pageCopyAssistant
	logger    *zap.Logger
}

// NewPageAuditService wires the audit rules to the configured AI provider.
func NewPageAuditService(settings *SystemSettingService, logger *zap.Logger) *PageAuditService {
	return &PageAuditService{
		settings:  settings,
		assistant: newPageCopyAssistant(),
		logger:    logging.OrNop(logger),
	}
}

// SetHTTPClient 覆盖访问 AI 平台使用的 HTTP 客户端，主要用于测试。
func (s *PageAuditService) SetHTTPClient(client httpDoer) {
	s.assistant.SetHTTPClient(client)
}

// SetAIBaseURL 覆盖指定服务商的 API 地址。
func (s *PageAuditService) SetAIBaseURL(provider, base string) {
	s.assistant.SetBaseURL(provider, base)
}

// Audit checks page content and returns errors, warnings and SEO suggestions.
// IsValid is false only when at least one error was found.
func (s *PageAuditService) Audit(ctx context.Context, req ValidationRequest) ValidationResult {
	result := ValidationResult{
		Errors:         []string{},
		Warnings:       []string{},
		SEOSuggestions: []string{},
	}

	slug := NormalizeSlug(req.Slug)
	if slug == "" {
		result.Errors = append(result.Errors, "slug: cannot be blank")
	} else if !slugPattern.MatchString(slug) {
		result.Errors = append(result.Errors, "slug: must contain only lowercase letters, digits and single hyphens")
	}

	if err := req.Content.Validate(); err != nil {
		if errors.Is(err, content.ErrNoSections) {
			result.Errors = append(result.Errors, "content: page must contain at least one section")
		} else {
			result.Errors = append(result.Errors, flattenValidationErrors("content", err)...)
		}
	}

	result.Warnings = append(result.Warnings, structuralWarnings(req.Content)...)
	result.SEOSuggestions = append(result.SEOSuggestions, ruleSuggestions(slug, req.Content)...)

	if len(result.Errors) == 0 {
		result.SEOSuggestions = append(result.SEOSuggestions, s.aiSuggestions(ctx, slug, req.Content)...)
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

func (s *PageAuditService) aiSuggestions(ctx context.Context, slug string, body content.Content) []string {
	if s.settings == nil {
		return nil
	}

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		s.logger.Warn("load settings for seo suggestions", zap.Error(err))
		return nil
	}
	if !settings.HasAIKey() {
		return nil
	}

	userPrompt := buildSEOPrompt(slug, body)
	logAIExchange(s.logger, "SEO", "prompt", userPrompt)

	systemPrompt := strings.TrimSpace(settings.SEOPrompt)
	if systemPrompt == "" {
		systemPrompt = defaultSEOSystemPrompt
	}

	reply, err := s.assistant.Ask(ctx, settings, pageCopyRequest{
		Task:         taskSEOSuggestions,
		Instructions: systemPrompt,
		Page:         userPrompt,
		MaxTokens:    defaultSEOMaxTokens,
		Temperature:  defaultSEOTemperature,
	})
	if err != nil {
		s.logger.Warn("seo suggestions unavailable", zap.String("slug", slug), zap.Error(err))
		return nil
	}
	logAIExchange(s.logger, "SEO", "response", reply.Raw)

	return cleanSuggestions(reply.Suggestions, maxAISuggestions)
}

func cleanSuggestions(items []string, limit int) []string {
	out := make([]string, 0, limit)
	for _, item := range items {
		item = strings.Join(strings.Fields(item), " ")
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}

func buildSEOPrompt(slug string, body content.Content) string {
	var builder strings.Builder
	builder.WriteString("Slug: ")
	builder.WriteString(slug)
	builder.WriteString("\nSections:\n")
	for i, section := range body.Sections {
		title, text := sectionText(section)
		fmt.Fprintf(&builder, "%d. [%s]", i+1, section.Kind())
		if title != "" {
			builder.WriteString(" ")
			builder.WriteString(title)
		}
		builder.WriteString("\n")
		if text != "" {
			builder.WriteString(text)
			builder.WriteString("\n")
		}
	}
	prompt, _ := compactMarkdownImages(builder.String())
	return truncateRunes(prompt, maxSEOContentRuneCount)
}

func parseSuggestionLines(raw string, limit int) []string {
	suggestions := make([]string, 0, limit)
	for _, line := range strings.Split(raw, "\n") {
		cleaned := strings.TrimLeft(strings.TrimSpace(line), "-*•0123456789.) ")
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == "" {
			continue
		}
		suggestions = append(suggestions, cleaned)
		if len(suggestions) == limit {
			break
		}
	}
	return suggestions
}

func structuralWarnings(body content.Content) []string {
	var warnings []string
	if body.Len() == 0 {
		return warnings
	}

	if first := body.Sections[0]; first != nil && first.Kind() != content.KindHero {
		warnings = append(warnings, "first section is not a hero banner")
	}

	heroes := 0
	seenTitles := map[string]int{}
	for i, section := range body.Sections {
		if section == nil {
			continue
		}
		if section.Kind() == content.KindHero {
			heroes++
		}
		title, _ := sectionText(section)
		if key := strings.ToLower(strings.TrimSpace(title)); key != "" {
			if first, ok := seenTitles[key]; ok {
				warnings = append(warnings, fmt.Sprintf("sections %d and %d share the title %q", first+1, i+1, title))
			} else {
				seenTitles[key] = i
			}
		}
		for _, url := range sectionImageURLs(section) {
			if strings.HasPrefix(strings.ToLower(url), "http://") {
				warnings = append(warnings, fmt.Sprintf("section %d uses an insecure image URL", i+1))
				break
			}
		}
	}
	if heroes > 1 {
		warnings = append(warnings, fmt.Sprintf("page has %d hero sections; only the first is treated as the banner", heroes))
	}
	return warnings
}

func ruleSuggestions(slug string, body content.Content) []string {
	var suggestions []string
	if utf8.RuneCountInString(slug) > maxSlugRunesForSEO {
		suggestions = append(suggestions, fmt.Sprintf("shorten the slug to at most %d characters", maxSlugRunesForSEO))
	}

	words := 0
	for _, section := range body.Sections {
		if section == nil {
			continue
		}
		title, text := sectionText(section)
		if hero, ok := section.(content.Hero); ok && utf8.RuneCountInString(hero.Title) > maxHeroTitleForSEO {
			suggestions = append(suggestions, fmt.Sprintf("keep the hero title under %d characters", maxHeroTitleForSEO))
		}
		words += len(strings.Fields(title)) + len(strings.Fields(text))
	}
	if body.Len() > 0 && words < minPageWordsForSEO {
		suggestions = append(suggestions, fmt.Sprintf("add more descriptive copy; the page has %d words", words))
	}
	return suggestions
}

func sectionText(section content.Section) (string, string) {
	switch s := section.(type) {
	case content.Hero:
		return s.Title, s.Subtitle
	case content.Text:
		return s.Title, s.Body
	case content.Cards:
		parts := []string{s.Body}
		for _, card := range s.Items {
			parts = append(parts, card.Title, card.Description)
		}
		return s.Title, strings.TrimSpace(strings.Join(parts, " "))
	case content.CallToAction:
		return s.Title, s.Body
	case content.ImageText:
		return s.Title, s.Body
	default:
		return "", ""
	}
}

func sectionImageURLs(section content.Section) []string {
	switch s := section.(type) {
	case content.Hero:
		return []string{s.ImageURL}
	case content.ImageText:
		return []string{s.ImageURL}
	case content.Cards:
		urls := make([]string, 0, len(s.Items))
		for _, card := range s.Items {
			urls = append(urls, card.ImageURL)
		}
		return urls
	default:
		return nil
	}
}

// flattenValidationErrors 将嵌套的 validation.Errors 展开为 "path: message" 列表。
func flattenValidationErrors(prefix string, err error) []string {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return []string{fmt.Sprintf("%s: %v", prefix, err)}
	}

	keys := make([]string, 0, len(errs))
	for key := range errs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []string
	for _, key := range keys {
		if errs[key] == nil {
			continue
		}
		path := key
		if prefix != "" {
			if isIndexKey(key) {
				path = prefix + "[" + key + "]"
			} else {
				path = prefix + "." + key
			}
		}
		out = append(out, flattenValidationErrors(path, errs[key])...)
	}
	return out
}

func isIndexKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func truncateRunes(input string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(input)
	if len(runes) <= limit {
		return input
	}
	return string(runes[:limit])
}
