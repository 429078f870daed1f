package db

import "time"

// SiteHourlyTraffic 按小时汇总全站计入的 PV 与去重访客数。
type SiteHourlyTraffic struct {
	ID             uint      `gorm:"primaryKey"`
	Hour           time.Time `gorm:"uniqueIndex;not null"`
	PageViews      uint64    `gorm:"default:0"`
	UniqueVisitors uint64    `gorm:"default:0"`
	UpdatedAt      time.Time
}

// TableName 指定自定义表名。
func (SiteHourlyTraffic) TableName() string {
	return "site_hourly_traffic"
}

// SiteHourlyVisitor marks a visitor as seen within an hour bucket.
type SiteHourlyVisitor struct {
	ID        uint      `gorm:"primaryKey"`
	Hour      time.Time `gorm:"uniqueIndex:idx_site_hour_visitor;not null"`
	VisitorID string    `gorm:"size:64;uniqueIndex:idx_site_hour_visitor;not null"`
}

// TableName 指定自定义表名。
func (SiteHourlyVisitor) TableName() string {
	return "site_hourly_visitors"
}
