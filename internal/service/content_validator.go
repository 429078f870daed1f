package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/healthhub/internal/content"
	"github.com/healthhub/internal/logging"
	"github.com/healthhub/internal/metrics"
	"go.uber.org/zap"
)

// ErrAuthenticationRequired 表示访问令牌缺失、过期或被校验服务拒绝。
var ErrAuthenticationRequired = errors.New("authentication required")

var errValidatorRejectedToken = errors.New("validator rejected the access token")

// CredentialVerifier 在请求校验服务之前检查访问令牌。
type CredentialVerifier interface {
	Verify(token string) error
}

// ValidationResult 汇总校验服务返回的三类信息。
// ServerError 非空时表示校验服务本身不可用，此时 IsValid 恒为 true，不阻止保存。
type ValidationResult struct {
	IsValid        bool     `json:"isValid"`
	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings"`
	SEOSuggestions []string `json:"seoSuggestions"`
	ServerError    string   `json:"serverError,omitempty"`
}

// ValidationRequest is the body posted to the page validator function.
type ValidationRequest struct {
	Content content.Content `json:"content"`
	Slug    string          `json:"slug"`
}

type validatorResponse struct {
	IsValid        *bool    `json:"isValid"`
	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings"`
	SEOSuggestions []string `json:"seoSuggestions"`
}

// PageContentValidator 便于在 handler 中注入不同的校验实现。
type PageContentValidator interface {
	Validate(ctx context.Context, accessToken string, body content.Content, slug string) (ValidationResult, error)
}

const validatorUnavailableMessage = "Content validation is temporarily unavailable; you can still save the page."

// ContentValidator calls the hosted page validator over HTTP.
type ContentValidator struct {
	http        httpDoer
	endpoint    string
	credentials CredentialVerifier
	logger      *zap.Logger
}

// NewContentValidator 构造指向 endpoint 的校验客户端。
func NewContentValidator(endpoint string, logger *zap.Logger) *ContentValidator {
	return &ContentValidator{
		http:     http.DefaultClient,
		endpoint: strings.TrimSpace(endpoint),
		logger:   logging.OrNop(logger),
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (v *ContentValidator) SetHTTPClient(client httpDoer) {
	if client == nil {
		v.http = http.DefaultClient
		return
	}
	v.http = client
}

// SetCredentialVerifier 设置令牌校验器，nil 表示只检查令牌非空。
func (v *ContentValidator) SetCredentialVerifier(verifier CredentialVerifier) {
	v.credentials = verifier
}

// Validate 提交内容到校验服务。
// 令牌缺失、过期或被服务以 401/403 拒绝时返回 ErrAuthenticationRequired；
// 其他服务失败返回 IsValid=true 并附带 ServerError。
func (v *ContentValidator) Validate(ctx context.Context, accessToken string, body content.Content, slug string) (ValidationResult, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		metrics.ObserveValidation(metrics.OutcomeAuthRequired, time.Time{})
		return ValidationResult{}, ErrAuthenticationRequired
	}
	if v.credentials != nil {
		if err := v.credentials.Verify(token); err != nil {
			v.logger.Info("access token rejected before validation", zap.String("slug", slug), zap.Error(err))
			metrics.ObserveValidation(metrics.OutcomeAuthRequired, time.Time{})
			return ValidationResult{}, ErrAuthenticationRequired
		}
	}

	started := time.Now()
	response, err := v.call(ctx, token, ValidationRequest{Content: body, Slug: NormalizeSlug(slug)})
	if errors.Is(err, errValidatorRejectedToken) {
		v.logger.Info("validator rejected access token", zap.String("slug", slug), zap.Error(err))
		metrics.ObserveValidation(metrics.OutcomeAuthRequired, started)
		return ValidationResult{}, ErrAuthenticationRequired
	}
	if err != nil {
		v.logger.Warn("page validation unavailable",
			zap.String("slug", slug),
			zap.Error(err),
		)
		metrics.ObserveValidation(metrics.OutcomeUnavailable, started)
		return ValidationResult{
			IsValid:        true,
			Errors:         []string{},
			Warnings:       []string{},
			SEOSuggestions: []string{},
			ServerError:    validatorUnavailableMessage,
		}, nil
	}

	result := ValidationResult{
		IsValid:        response.IsValid == nil || *response.IsValid,
		Errors:         nonNil(response.Errors),
		Warnings:       nonNil(response.Warnings),
		SEOSuggestions: nonNil(response.SEOSuggestions),
	}

	outcome := metrics.OutcomeOK
	if !result.IsValid {
		outcome = metrics.OutcomeInvalid
	}
	metrics.ObserveValidation(outcome, started)
	return result, nil
}

func (v *ContentValidator) call(ctx context.Context, token string, payload ValidationRequest) (validatorResponse, error) {
	if v.endpoint == "" {
		return validatorResponse{}, errors.New("validator endpoint is not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return validatorResponse{}, fmt.Errorf("encode validation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return validatorResponse{}, fmt.Errorf("build validation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := v.http
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return validatorResponse{}, fmt.Errorf("call validator: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return validatorResponse{}, fmt.Errorf("read validator response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return validatorResponse{}, fmt.Errorf("%w: %s", errValidatorRejectedToken, resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return validatorResponse{}, fmt.Errorf("validation failed: %s", resp.Status)
	}

	var decoded validatorResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return validatorResponse{}, fmt.Errorf("decode validator response: %w", err)
	}
	return decoded, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
