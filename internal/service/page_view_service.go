package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/healthhub/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultViewDedupWindow = 30 * time.Minute

// ErrInvalidVisit 表示缺少访客或页面标识。
var ErrInvalidVisit = errors.New("invalid visitor or page id")

// PageViewService 负责处理页面浏览相关的统计逻辑。
type PageViewService struct {
	db          *gorm.DB
	dedupWindow time.Duration
}

// NewPageViewService 创建 PageViewService，默认去重窗口为 30 分钟。
func NewPageViewService(gdb *gorm.DB) *PageViewService {
	return &PageViewService{db: gdb, dedupWindow: defaultViewDedupWindow}
}

// WithDedupWindow 允许在测试或特定场景下调整去重窗口。
func (s *PageViewService) WithDedupWindow(d time.Duration) *PageViewService {
	if d <= 0 {
		return s
	}
	s.dedupWindow = d
	return s
}

// PageStats 是单个页面的 PV/UV。
type PageStats struct {
	PageID         uint      `json:"pageId"`
	PageViews      uint64    `json:"pageViews"`
	UniqueVisitors uint64    `json:"uniqueVisitors"`
	LastViewedAt   time.Time `json:"lastViewedAt"`
}

// RecordView 记录访客对页面的浏览。
// 同一访客在去重窗口内的重复访问只更新最后访问时间，不增加 PV。
func (s *PageViewService) RecordView(ctx context.Context, pageID uint, visitorID string, now time.Time) (PageStats, error) {
	visitorID = strings.TrimSpace(visitorID)
	if visitorID == "" || pageID == 0 {
		return PageStats{}, ErrInvalidVisit
	}

	var stats db.PageStatistic
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		visit := db.PageVisit{
			PageID:        pageID,
			VisitorID:     visitorID,
			LastViewedAt:  now,
			LastCountedAt: now,
		}
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "page_id"}, {Name: "visitor_id"}},
			DoNothing: true,
		}).Create(&visit)
		if insert.Error != nil {
			return insert.Error
		}

		isNewVisitor := insert.RowsAffected == 1
		counted := isNewVisitor
		if !isNewVisitor {
			if err := tx.Where("page_id = ? AND visitor_id = ?", pageID, visitorID).
				First(&visit).Error; err != nil {
				return err
			}
			visit.LastViewedAt = now
			if now.Sub(visit.LastCountedAt) >= s.dedupWindow {
				visit.LastCountedAt = now
				counted = true
			}
			if err := tx.Save(&visit).Error; err != nil {
				return err
			}
		}

		statsResult := tx.Where("page_id = ?", pageID).First(&stats)
		switch {
		case errors.Is(statsResult.Error, gorm.ErrRecordNotFound):
			stats = db.PageStatistic{PageID: pageID}
			if err := tx.Create(&stats).Error; err != nil {
				return err
			}
		case statsResult.Error != nil:
			return statsResult.Error
		}

		if counted {
			stats.PageViews++
		}
		if isNewVisitor {
			stats.UniqueVisitors++
		}
		stats.LastViewedAt = now
		if err := tx.Save(&stats).Error; err != nil {
			return err
		}
		return recordHourlyTraffic(tx, visitorID, now, counted)
	})
	if err != nil {
		return PageStats{}, &PersistenceError{Op: "record view", Err: err}
	}

	return toPageStats(stats), nil
}

// Stats 返回单个页面的统计，尚无访问记录时返回零值。
func (s *PageViewService) Stats(ctx context.Context, pageID uint) (PageStats, error) {
	var stats db.PageStatistic
	err := s.db.WithContext(ctx).Where("page_id = ?", pageID).First(&stats).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return PageStats{PageID: pageID}, nil
	case err != nil:
		return PageStats{}, &PersistenceError{Op: "load stats", Err: err}
	}
	return toPageStats(stats), nil
}

// SiteOverview 聚合站点层面的 UV/PV 数据及热门页面。
type SiteOverview struct {
	TotalPageViews      uint64        `json:"totalPageViews"`
	TotalUniqueVisitors uint64        `json:"totalUniqueVisitors"`
	PageCount           int64         `json:"pageCount"`
	TopPages            []TopPageStat `json:"topPages"`
	// Hourly 为最近有访问记录的若干小时，按时间升序。
	Hourly []HourlyTraffic `json:"hourly"`
}

// HourlyTraffic 是单个小时的全站 PV/UV。
type HourlyTraffic struct {
	Hour           time.Time `json:"hour"`
	PageViews      uint64    `json:"pageViews"`
	UniqueVisitors uint64    `json:"uniqueVisitors"`
}

const overviewHourlyBuckets = 24

// TopPageStat 描述热门页面的统计信息。
type TopPageStat struct {
	PageID         uint   `json:"pageId"`
	Slug           string `json:"slug"`
	Title          string `json:"title"`
	PageViews      uint64 `json:"pageViews"`
	UniqueVisitors uint64 `json:"uniqueVisitors"`
}

// Overview 汇总全站 UV/PV。
func (s *PageViewService) Overview(ctx context.Context, limit int) (SiteOverview, error) {
	if limit <= 0 {
		limit = 5
	}

	gdb := s.db.WithContext(ctx)
	overview := SiteOverview{TopPages: []TopPageStat{}, Hourly: []HourlyTraffic{}}

	var totals struct {
		PageViews uint64
	}
	if err := gdb.Model(&db.PageStatistic{}).
		Select("COALESCE(SUM(page_views), 0) AS page_views").
		Scan(&totals).Error; err != nil {
		return overview, &PersistenceError{Op: "overview", Err: err}
	}
	overview.TotalPageViews = totals.PageViews

	var uniqueVisitors int64
	if err := gdb.Model(&db.PageVisit{}).Distinct("visitor_id").Count(&uniqueVisitors).Error; err != nil {
		return overview, &PersistenceError{Op: "overview", Err: err}
	}
	overview.TotalUniqueVisitors = uint64(uniqueVisitors)

	if err := gdb.Model(&db.Page{}).Count(&overview.PageCount).Error; err != nil {
		return overview, &PersistenceError{Op: "overview", Err: err}
	}

	if err := gdb.Table("page_statistics ps").
		Select("ps.page_id, p.slug, p.title, ps.page_views, ps.unique_visitors").
		Joins("JOIN pages p ON p.id = ps.page_id").
		Order("ps.page_views DESC").
		Limit(limit).
		Scan(&overview.TopPages).Error; err != nil {
		return overview, &PersistenceError{Op: "overview", Err: err}
	}

	var buckets []db.SiteHourlyTraffic
	if err := gdb.Order("hour DESC").Limit(overviewHourlyBuckets).Find(&buckets).Error; err != nil {
		return overview, &PersistenceError{Op: "overview", Err: err}
	}
	for i := len(buckets) - 1; i >= 0; i-- {
		overview.Hourly = append(overview.Hourly, HourlyTraffic{
			Hour:           buckets[i].Hour,
			PageViews:      buckets[i].PageViews,
			UniqueVisitors: buckets[i].UniqueVisitors,
		})
	}

	return overview, nil
}

// recordHourlyTraffic 累加 now 所在小时的全站 PV，访客在该小时首次出现时累加 UV。
func recordHourlyTraffic(tx *gorm.DB, visitorID string, now time.Time, counted bool) error {
	hour := now.UTC().Truncate(time.Hour)

	seen := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hour"}, {Name: "visitor_id"}},
		DoNothing: true,
	}).Create(&db.SiteHourlyVisitor{Hour: hour, VisitorID: visitorID})
	if seen.Error != nil {
		return seen.Error
	}

	var views, visitors uint64
	if counted {
		views = 1
	}
	if seen.RowsAffected == 1 {
		visitors = 1
	}
	if views == 0 && visitors == 0 {
		return nil
	}

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "hour"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"page_views":      gorm.Expr("page_views + ?", views),
			"unique_visitors": gorm.Expr("unique_visitors + ?", visitors),
			"updated_at":      now,
		}),
	}).Create(&db.SiteHourlyTraffic{
		Hour:           hour,
		PageViews:      views,
		UniqueVisitors: visitors,
		UpdatedAt:      now,
	}).Error
}

func toPageStats(row db.PageStatistic) PageStats {
	return PageStats{
		PageID:         row.PageID,
		PageViews:      row.PageViews,
		UniqueVisitors: row.UniqueVisitors,
		LastViewedAt:   row.LastViewedAt,
	}
}
