package service

import (
	"context"
	"errors"
	"strings"

	"github.com/healthhub/internal/logging"
	"github.com/healthhub/internal/metrics"
	"go.uber.org/zap"
)

// LookupState 是前台页面查找流程的状态。
type LookupState string

const (
	LookupLoading      LookupState = "loading"
	LookupReady        LookupState = "ready"
	LookupNotFound     LookupState = "not_found"
	LookupNotPublished LookupState = "not_published"
	LookupFailed       LookupState = "failed"
	// LookupCanceled 表示请求方已离开，结果应被丢弃。
	LookupCanceled LookupState = "canceled"
)

// Messages shown to visitors for each error state.
const (
	MessageNotFound     = "not found"
	MessageNotPublished = "not published yet"
	MessageLoadFailed   = "failed to load"
)

// LookupResult is the terminal state reached for one slug.
// Notify is set once, for load failures, so the caller can show a single notification.
type LookupResult struct {
	State   LookupState
	Page    *WebsitePage
	Message string
	Notify  bool
}

type pageFinder interface {
	GetBySlug(ctx context.Context, slug string) (*WebsitePage, error)
}

// PageLookup resolves public slugs to renderable pages. Results are never cached,
// every call starts again from Loading.
type PageLookup struct {
	pages  pageFinder
	logger *zap.Logger
}

// NewPageLookup builds a lookup over the page store.
func NewPageLookup(pages pageFinder, logger *zap.Logger) *PageLookup {
	return &PageLookup{pages: pages, logger: logging.OrNop(logger)}
}

// Resolve 执行 Loading -> Ready/Error 的状态迁移。
func (l *PageLookup) Resolve(ctx context.Context, slug string) LookupResult {
	result := l.resolve(ctx, slug)
	metrics.ObserveLookup(string(result.State))
	return result
}

func (l *PageLookup) resolve(ctx context.Context, slug string) LookupResult {
	if NormalizeSlug(slug) == "" {
		return LookupResult{State: LookupNotFound, Message: MessageNotFound}
	}

	page, err := l.pages.GetBySlug(ctx, slug)
	if ctx.Err() != nil {
		return LookupResult{State: LookupCanceled}
	}

	switch {
	case errors.Is(err, ErrPageNotFound):
		return LookupResult{State: LookupNotFound, Message: MessageNotFound}
	case err != nil:
		l.logger.Error("load public page", zap.String("slug", slug), zap.Error(err))
		return LookupResult{State: LookupFailed, Message: MessageLoadFailed, Notify: true}
	case page == nil:
		return LookupResult{State: LookupNotFound, Message: MessageNotFound}
	case !page.Published:
		return LookupResult{State: LookupNotPublished, Message: MessageNotPublished}
	default:
		return LookupResult{State: LookupReady, Page: page}
	}
}

// DocumentTitle 返回 "{页面标题} | {站点名称}"，缺少任一部分时只返回另一部分。
func DocumentTitle(pageTitle, siteName string) string {
	pageTitle = strings.TrimSpace(pageTitle)
	siteName = strings.TrimSpace(siteName)
	switch {
	case pageTitle == "":
		return siteName
	case siteName == "":
		return pageTitle
	default:
		return pageTitle + " | " + siteName
	}
}
