package handler

import (
	"github.com/healthhub/internal/auth"
	"github.com/healthhub/internal/logging"
	"github.com/healthhub/internal/render"
	"github.com/healthhub/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options 汇总构造 API 所需的外部依赖。
type Options struct {
	DB           *gorm.DB
	Logger       *zap.Logger
	Tokens       *auth.TokenIssuer
	ValidatorURL string
	UploadDir    string
	UploadURL    string
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	logger    *zap.Logger
	pages     *service.PageService
	lookup    *service.PageLookup
	views     pageViewRecorder
	system    *service.SystemSettingService
	validator service.PageContentValidator
	audit     *service.PageAuditService
	meta      service.MetaDescriptionGenerator
	tokens    *auth.TokenIssuer
	renderer  *render.Renderer
	uploadDir string
	uploadURL string
}

// NewAPI constructs a handler set with shared services.
func NewAPI(opts Options) *API {
	logger := logging.OrNop(opts.Logger)
	pages := service.NewPageService(opts.DB)
	systemService := service.NewSystemSettingService(opts.DB)
	validator := service.NewContentValidator(opts.ValidatorURL, logger)
	if opts.Tokens != nil {
		validator.SetCredentialVerifier(opts.Tokens)
	}

	return &API{
		db:        opts.DB,
		logger:    logger,
		pages:     pages,
		lookup:    service.NewPageLookup(pages, logger),
		views:     service.NewPageViewService(opts.DB),
		system:    systemService,
		validator: validator,
		audit:     service.NewPageAuditService(systemService, logger),
		meta:      service.NewMetaDescriptionService(systemService, logger),
		tokens:    opts.Tokens,
		renderer:  render.MustNew(),
		uploadDir: opts.UploadDir,
		uploadURL: opts.UploadURL,
	}
}

// SetValidator 覆盖内容校验客户端，主要用于测试。
func (a *API) SetValidator(v service.PageContentValidator) {
	a.validator = v
}

// SetMetaDescriptionGenerator 覆盖 meta description 生成器，主要用于测试。
func (a *API) SetMetaDescriptionGenerator(g service.MetaDescriptionGenerator) {
	a.meta = g
}

// Audit exposes the audit service so callers can point it at a different AI endpoint.
func (a *API) Audit() *service.PageAuditService {
	return a.audit
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}
