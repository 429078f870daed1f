package handler

import (
	"context"
	"time"

	"github.com/healthhub/internal/service"
)

type pageViewRecorder interface {
	RecordView(ctx context.Context, pageID uint, visitorID string, now time.Time) (service.PageStats, error)
	Stats(ctx context.Context, pageID uint) (service.PageStats, error)
	Overview(ctx context.Context, limit int) (service.SiteOverview, error)
}
