package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"
	"time"
)

// pageCopyTask 区分对页面文案发起的 AI 任务。
type pageCopyTask string

const (
	taskSEOSuggestions  pageCopyTask = "seo_suggestions"
	taskMetaDescription pageCopyTask = "meta_description"
)

// replyContract 附加在系统提示词之后，约定模型返回的 JSON 结构。
var replyContract = map[pageCopyTask]string{
	taskSEOSuggestions:  `Answer only with a JSON object of the form {"suggestions": ["..."]}.`,
	taskMetaDescription: `Answer only with a JSON object of the form {"metaDescription": "..."}.`,
}

const (
	defaultCopyTimeout     = 180 * time.Second
	maxCopyResponseBytes   = 1 << 20
	defaultOpenAICopyModel = "gpt-4o-mini"
	defaultDeepSeekModel   = "deepseek-chat"
)

var errEmptyCompletion = errors.New("provider returned no choices")

var defaultCopyBaseURLs = map[string]string{
	AIProviderOpenAI:   "https://api.openai.com/v1",
	AIProviderDeepSeek: "https://api.deepseek.com/v1",
}

// pageCopyRequest 是一次页面文案任务的输入。
type pageCopyRequest struct {
	Task         pageCopyTask
	Instructions string
	Page         string
	MaxTokens    int
	Temperature  float64
}

// pageCopyReply 是两类任务共用的结构化结果，Raw 保留模型原文用于日志。
type pageCopyReply struct {
	Suggestions      []string `json:"suggestions"`
	MetaDescription  string   `json:"metaDescription"`
	Raw              string   `json:"-"`
	PromptTokens     int      `json:"-"`
	CompletionTokens int      `json:"-"`
}

// aiEndpoint 是按系统设置解析出的服务商地址、模型与密钥。
type aiEndpoint struct {
	Provider string
	URL      string
	Model    string
	APIKey   string
}

// pageCopyAssistant asks an OpenAI-compatible provider for page copy and decodes the JSON reply.
type pageCopyAssistant struct {
	http      httpDoer
	baseURLs  map[string]string
	models    map[string]string
	userAgent string
}

func newPageCopyAssistant() *pageCopyAssistant {
	return &pageCopyAssistant{
		http: &http.Client{Timeout: defaultCopyTimeout},
		baseURLs: maps.Clone(defaultCopyBaseURLs),
		models: map[string]string{
			AIProviderOpenAI:   defaultOpenAICopyModel,
			AIProviderDeepSeek: defaultDeepSeekModel,
		},
		userAgent: "healthhub-page-copy/1.0",
	}
}

func (a *pageCopyAssistant) SetHTTPClient(client httpDoer) {
	if client == nil {
		client = &http.Client{Timeout: defaultCopyTimeout}
	}
	a.http = client
}

// SetBaseURL 覆盖某个服务商的 API 地址，空值恢复默认。
func (a *pageCopyAssistant) SetBaseURL(provider, base string) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = defaultCopyBaseURLs[provider]
	}
	a.baseURLs[provider] = base
}

func (a *pageCopyAssistant) endpointFor(settings SystemSettings) (aiEndpoint, error) {
	provider := normalizeAIProvider(settings.AIProvider)
	if provider == "" {
		provider = AIProviderOpenAI
	}
	key := settings.OpenAIAPIKey
	if provider == AIProviderDeepSeek {
		key = settings.DeepSeekAPIKey
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return aiEndpoint{}, ErrAIAPIKeyMissing
	}
	return aiEndpoint{
		Provider: provider,
		URL:      a.baseURLs[provider] + "/chat/completions",
		Model:    a.models[provider],
		APIKey:   key,
	}, nil
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionFormat struct {
	Type string `json:"type"`
}

type completionPayload struct {
	Model          string              `json:"model"`
	Messages       []completionMessage `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    float64             `json:"temperature,omitempty"`
	ResponseFormat completionFormat    `json:"response_format"`
}

type completionBody struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Ask 执行一次任务。模型未按 JSON 作答时按任务类型从纯文本中回退解析。
func (a *pageCopyAssistant) Ask(ctx context.Context, settings SystemSettings, req pageCopyRequest) (pageCopyReply, error) {
	endpoint, err := a.endpointFor(settings)
	if err != nil {
		return pageCopyReply{}, err
	}

	payload := completionPayload{
		Model: endpoint.Model,
		Messages: []completionMessage{
			{Role: "system", Content: strings.TrimSpace(req.Instructions + "\n" + replyContract[req.Task])},
			{Role: "user", Content: req.Page},
		},
		MaxTokens:      max(req.MaxTokens, 0),
		Temperature:    req.Temperature,
		ResponseFormat: completionFormat{Type: "json_object"},
	}
	body, err := a.post(ctx, endpoint, payload)
	if err != nil {
		return pageCopyReply{}, err
	}
	if len(body.Choices) == 0 {
		return pageCopyReply{}, fmt.Errorf("%s: %w", endpoint.Provider, errEmptyCompletion)
	}

	reply := decodePageCopyReply(req.Task, body.Choices[0].Message.Content)
	reply.PromptTokens = body.Usage.PromptTokens
	reply.CompletionTokens = body.Usage.CompletionTokens
	return reply, nil
}

func (a *pageCopyAssistant) post(ctx context.Context, endpoint aiEndpoint, payload completionPayload) (completionBody, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completionBody{}, fmt.Errorf("encode %s request: %w", endpoint.Provider, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(encoded))
	if err != nil {
		return completionBody{}, fmt.Errorf("build %s request: %w", endpoint.Provider, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+endpoint.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", a.userAgent)

	resp, err := a.http.Do(httpReq)
	if err != nil {
		return completionBody{}, fmt.Errorf("call %s: %w", endpoint.Provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxCopyResponseBytes))
	if err != nil {
		return completionBody{}, fmt.Errorf("read %s response: %w", endpoint.Provider, err)
	}

	var body completionBody
	decodeErr := json.Unmarshal(raw, &body)
	if resp.StatusCode >= http.StatusBadRequest {
		reason := resp.Status
		if decodeErr == nil && body.Error != nil && strings.TrimSpace(body.Error.Message) != "" {
			reason = strings.TrimSpace(body.Error.Message)
		}
		return completionBody{}, fmt.Errorf("%s rejected the request: %s", endpoint.Provider, reason)
	}
	if decodeErr != nil {
		return completionBody{}, fmt.Errorf("decode %s response: %w", endpoint.Provider, decodeErr)
	}
	return body, nil
}

// decodePageCopyReply 解析模型输出，兼容 ```json 代码块与纯文本回答。
func decodePageCopyReply(task pageCopyTask, text string) pageCopyReply {
	trimmed := strings.TrimSpace(text)
	unfenced := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(
		strings.TrimPrefix(trimmed, "```json"), "```"), "```"))

	var reply pageCopyReply
	if err := json.Unmarshal([]byte(unfenced), &reply); err != nil {
		reply = pageCopyReply{}
		switch task {
		case taskSEOSuggestions:
			reply.Suggestions = parseSuggestionLines(trimmed, maxAISuggestions)
		case taskMetaDescription:
			reply.MetaDescription = trimmed
		}
	}
	reply.Raw = trimmed
	return reply
}
