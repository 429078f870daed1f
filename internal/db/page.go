package db

import "time"

// Page 存储可组合的网站页面，Content 为区块列表的 JSON。
type Page struct {
	ID              uint   `gorm:"primaryKey"`
	Slug            string `gorm:"size:160;uniqueIndex;not null"`
	Title           string `gorm:"not null"`
	MetaDescription string `gorm:"size:320"`
	Content         string `gorm:"type:text;not null"`
	Published       bool   `gorm:"not null;index"`
	LastUpdatedBy   *uint
	// Version 每次更新递增，用于乐观并发校验。
	Version   int `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PageRevision records the state of a page before each update.
type PageRevision struct {
	ID              uint   `gorm:"primaryKey"`
	PageID          uint   `gorm:"index;not null"`
	Version         int    `gorm:"not null"`
	Slug            string `gorm:"size:160;not null"`
	Title           string
	MetaDescription string
	Content         string `gorm:"type:text"`
	Published       bool
	EditedBy        *uint
	CreatedAt       time.Time
}

// TableName 指定自定义表名。
func (PageRevision) TableName() string {
	return "page_revisions"
}
