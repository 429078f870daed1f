package db

import "time"

// PageStatistic 汇总页面维度的浏览数据。
type PageStatistic struct {
	ID             uint   `gorm:"primaryKey"`
	PageID         uint   `gorm:"uniqueIndex"`
	PageViews      uint64 `gorm:"default:0"`
	UniqueVisitors uint64 `gorm:"default:0"`
	LastViewedAt   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName 指定自定义表名，避免自动复数化导致的歧义。
func (PageStatistic) TableName() string {
	return "page_statistics"
}

// PageVisit 记录访客层面的浏览历史，用于 UV/PV 去重。
type PageVisit struct {
	ID            uint   `gorm:"primaryKey"`
	PageID        uint   `gorm:"uniqueIndex:idx_page_visitor"`
	VisitorID     string `gorm:"size:64;uniqueIndex:idx_page_visitor"`
	LastViewedAt  time.Time
	LastCountedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName 指定自定义表名。
func (PageVisit) TableName() string {
	return "page_visits"
}
