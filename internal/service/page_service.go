package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/healthhub/internal/content"
	"github.com/healthhub/internal/db"
	"github.com/healthhub/internal/metrics"
	"gorm.io/gorm"
)

var (
	ErrPageNotFound        = errors.New("page not found")
	ErrPageSectionsMissing = errors.New("page must contain at least one section")
	ErrDuplicateSlug       = errors.New("page slug already exists")
	ErrPageVersionConflict = errors.New("page was modified by another editor")
	ErrPersistence         = errors.New("page persistence failed")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// PersistenceError 包装数据库层失败，调用方可用 errors.Is(err, ErrPersistence) 统一处理。
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s page: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// WebsitePage is a page with its content decoded into sections.
type WebsitePage struct {
	ID              uint            `json:"id"`
	Slug            string          `json:"slug"`
	Title           string          `json:"title"`
	MetaDescription string          `json:"metaDescription"`
	Content         content.Content `json:"content"`
	Published       bool            `json:"published"`
	LastUpdatedBy   *uint           `json:"lastUpdatedBy,omitempty"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// PageInput 表示创建页面时接受的字段。
type PageInput struct {
	Slug            string
	Title           string
	MetaDescription string
	Content         content.Content
	Published       bool
	EditorID        *uint
}

// PageUpdate 表示局部更新，nil 字段保持原值。
// ExpectedVersion 非空时与当前版本比对，不一致返回 ErrPageVersionConflict。
type PageUpdate struct {
	Slug            *string
	Title           *string
	MetaDescription *string
	Content         *content.Content
	Published       *bool
	EditorID        *uint
	ExpectedVersion *int
}

// PageFilter describes filters for listing pages in the admin list view.
type PageFilter struct {
	Search    string
	Published *bool
	Page      int
	PerPage   int
}

// PageListResult aggregates paginated list data.
type PageListResult struct {
	Pages      []WebsitePage
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// PageRevision 是页面更新前的历史快照。
type PageRevision struct {
	Version         int             `json:"version"`
	Slug            string          `json:"slug"`
	Title           string          `json:"title"`
	MetaDescription string          `json:"metaDescription"`
	Content         content.Content `json:"content"`
	Published       bool            `json:"published"`
	EditedBy        *uint           `json:"editedBy,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// PageService provides persistence for composable website pages.
type PageService struct {
	db *gorm.DB
}

// NewPageService returns a new PageService instance.
func NewPageService(gdb *gorm.DB) *PageService {
	return &PageService{db: gdb}
}

// NormalizeSlug lowercases a slug and strips surrounding slashes and spaces.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(slug), "/"))
}

// GetByID fetches a page by its id.
func (s *PageService) GetByID(ctx context.Context, id uint) (*WebsitePage, error) {
	var row db.Page
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, &PersistenceError{Op: "get", Err: err}
	}
	return toWebsitePage(row)
}

// GetBySlug fetches a page for a given slug.
func (s *PageService) GetBySlug(ctx context.Context, slug string) (*WebsitePage, error) {
	normalized := NormalizeSlug(slug)
	if normalized == "" {
		return nil, ErrPageNotFound
	}

	var row db.Page
	if err := s.db.WithContext(ctx).Where("slug = ?", normalized).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, &PersistenceError{Op: "get", Err: err}
	}
	return toWebsitePage(row)
}

// Create 校验并保存新页面，由数据库分配 id 与时间戳。
func (s *PageService) Create(ctx context.Context, input PageInput) (page *WebsitePage, err error) {
	defer func() { metrics.ObservePageWrite("create", err) }()

	if input.Content.Len() == 0 {
		return nil, ErrPageSectionsMissing
	}

	row := db.Page{
		Slug:            NormalizeSlug(input.Slug),
		Title:           strings.TrimSpace(input.Title),
		MetaDescription: strings.TrimSpace(input.MetaDescription),
		Published:       input.Published,
		LastUpdatedBy:   input.EditorID,
		Version:         1,
	}
	if err := validatePage(row, &input.Content); err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(input.Content)
	if err != nil {
		return nil, fmt.Errorf("encode page content: %w", err)
	}
	row.Content = string(encoded)

	gdb := s.db.WithContext(ctx)
	if err := ensureSlugAvailable(gdb, row.Slug, 0); err != nil {
		return nil, err
	}

	if err := gdb.Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateSlug
		}
		return nil, &PersistenceError{Op: "create", Err: err}
	}

	return toWebsitePage(row)
}

// Update 合并局部字段、写入历史快照并递增版本号。
func (s *PageService) Update(ctx context.Context, id uint, update PageUpdate) (page *WebsitePage, err error) {
	defer func() { metrics.ObservePageWrite("update", err) }()

	if update.Content != nil && update.Content.Len() == 0 {
		return nil, ErrPageSectionsMissing
	}

	var saved db.Page
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing db.Page
		if err := tx.First(&existing, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPageNotFound
			}
			return &PersistenceError{Op: "update", Err: err}
		}

		if update.ExpectedVersion != nil && *update.ExpectedVersion != existing.Version {
			return ErrPageVersionConflict
		}

		if _, err := content.Parse([]byte(existing.Content)); err != nil {
			return &PersistenceError{Op: "decode", Err: err}
		}

		merged := existing
		if update.Slug != nil {
			merged.Slug = NormalizeSlug(*update.Slug)
		}
		if update.Title != nil {
			merged.Title = strings.TrimSpace(*update.Title)
		}
		if update.MetaDescription != nil {
			merged.MetaDescription = strings.TrimSpace(*update.MetaDescription)
		}
		if update.Published != nil {
			merged.Published = *update.Published
		}
		if update.EditorID != nil {
			merged.LastUpdatedBy = update.EditorID
		}
		if update.Content != nil {
			encoded, err := json.Marshal(*update.Content)
			if err != nil {
				return fmt.Errorf("encode page content: %w", err)
			}
			merged.Content = string(encoded)
		}

		// 未提交内容时只校验元数据，已存储的区块（包括 Unknown）原样保留
		if err := validatePage(merged, update.Content); err != nil {
			return err
		}
		if merged.Slug != existing.Slug {
			if err := ensureSlugAvailable(tx, merged.Slug, existing.ID); err != nil {
				return err
			}
		}

		revision := db.PageRevision{
			PageID:          existing.ID,
			Version:         existing.Version,
			Slug:            existing.Slug,
			Title:           existing.Title,
			MetaDescription: existing.MetaDescription,
			Content:         existing.Content,
			Published:       existing.Published,
			EditedBy:        existing.LastUpdatedBy,
		}
		if err := tx.Create(&revision).Error; err != nil {
			return &PersistenceError{Op: "update", Err: err}
		}

		merged.Version = existing.Version + 1
		merged.UpdatedAt = time.Now()
		result := tx.Model(&db.Page{}).
			Where("id = ? AND version = ?", existing.ID, existing.Version).
			Updates(map[string]interface{}{
				"slug":             merged.Slug,
				"title":            merged.Title,
				"meta_description": merged.MetaDescription,
				"content":          merged.Content,
				"published":        merged.Published,
				"last_updated_by":  merged.LastUpdatedBy,
				"version":          merged.Version,
				"updated_at":       merged.UpdatedAt,
			})
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return ErrDuplicateSlug
			}
			return &PersistenceError{Op: "update", Err: result.Error}
		}
		if result.RowsAffected == 0 {
			return ErrPageVersionConflict
		}

		saved = merged
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toWebsitePage(saved)
}

// Delete removes a page together with its revision history and view statistics.
func (s *PageService) Delete(ctx context.Context, id uint) (err error) {
	defer func() { metrics.ObservePageWrite("delete", err) }()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&db.Page{}, id)
		if result.Error != nil {
			return &PersistenceError{Op: "delete", Err: result.Error}
		}
		if result.RowsAffected == 0 {
			return ErrPageNotFound
		}
		for _, model := range []interface{}{&db.PageRevision{}, &db.PageStatistic{}, &db.PageVisit{}} {
			if err := tx.Where("page_id = ?", id).Delete(model).Error; err != nil {
				return &PersistenceError{Op: "delete", Err: err}
			}
		}
		return nil
	})
}

// List returns pages ordered by last update, newest first.
func (s *PageService) List(ctx context.Context, filter PageFilter) (*PageListResult, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}

	query := s.db.WithContext(ctx).Model(&db.Page{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR slug LIKE ?", like, like)
	}
	if filter.Published != nil {
		query = query.Where("published = ?", *filter.Published)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}

	var rows []db.Page
	if err := query.Order("updated_at desc").Order("id desc").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&rows).Error; err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}

	pages := make([]WebsitePage, 0, len(rows))
	for _, row := range rows {
		converted, err := toWebsitePage(row)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *converted)
	}

	return &PageListResult{
		Pages:      pages,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
		Page:       page,
		PerPage:    perPage,
	}, nil
}

// Revisions 返回页面的历史快照，按版本倒序。
func (s *PageService) Revisions(ctx context.Context, id uint) ([]PageRevision, error) {
	gdb := s.db.WithContext(ctx)

	var count int64
	if err := gdb.Model(&db.Page{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return nil, &PersistenceError{Op: "revisions", Err: err}
	}
	if count == 0 {
		return nil, ErrPageNotFound
	}

	var rows []db.PageRevision
	if err := gdb.Where("page_id = ?", id).Order("version desc").Find(&rows).Error; err != nil {
		return nil, &PersistenceError{Op: "revisions", Err: err}
	}

	revisions := make([]PageRevision, 0, len(rows))
	for _, row := range rows {
		body, err := content.Parse([]byte(row.Content))
		if err != nil {
			return nil, &PersistenceError{Op: "decode", Err: err}
		}
		revisions = append(revisions, PageRevision{
			Version:         row.Version,
			Slug:            row.Slug,
			Title:           row.Title,
			MetaDescription: row.MetaDescription,
			Content:         body,
			Published:       row.Published,
			EditedBy:        row.EditedBy,
			CreatedAt:       row.CreatedAt,
		})
	}
	return revisions, nil
}

func ensureSlugAvailable(gdb *gorm.DB, slug string, selfID uint) error {
	query := gdb.Model(&db.Page{}).Where("slug = ?", slug)
	if selfID != 0 {
		query = query.Where("id <> ?", selfID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return &PersistenceError{Op: "check slug", Err: err}
	}
	if count > 0 {
		return ErrDuplicateSlug
	}
	return nil
}

// validatePage checks the page metadata, and the content too when body is non-nil.
func validatePage(row db.Page, body *content.Content) error {
	errs := validation.Errors{
		"slug": validation.Validate(row.Slug,
			validation.Required,
			validation.RuneLength(1, 160),
			validation.Match(slugPattern).Error("must contain only lowercase letters, digits and single hyphens"),
		),
		"title":           validation.Validate(row.Title, validation.Required, validation.RuneLength(1, 160)),
		"metaDescription": validation.Validate(row.MetaDescription, validation.RuneLength(0, 320)),
	}
	if body != nil {
		errs["content"] = body.Validate()
	}
	if errors.Is(errs["content"], content.ErrNoSections) {
		return ErrPageSectionsMissing
	}
	return errs.Filter()
}

func toWebsitePage(row db.Page) (*WebsitePage, error) {
	body, err := content.Parse([]byte(row.Content))
	if err != nil {
		return nil, &PersistenceError{Op: "decode", Err: err}
	}
	return &WebsitePage{
		ID:              row.ID,
		Slug:            row.Slug,
		Title:           row.Title,
		MetaDescription: row.MetaDescription,
		Content:         body,
		Published:       row.Published,
		LastUpdatedBy:   row.LastUpdatedBy,
		Version:         row.Version,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}, nil
}
