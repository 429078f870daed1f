package content

import (
	"errors"
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Kind 是页面区块的类型标识，对应存储 JSON 中的 type 字段。
type Kind string

const (
	KindHero      Kind = "hero"
	KindContent   Kind = "content"
	KindCards     Kind = "cards"
	KindCTA       Kind = "cta"
	KindImageText Kind = "image-text"
)

// Known reports whether the kind is one of the supported layouts.
func (k Kind) Known() bool {
	switch k {
	case KindHero, KindContent, KindCards, KindCTA, KindImageText:
		return true
	}
	return false
}

// Alignment controls horizontal placement of a section's text or image.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignRight  Alignment = "right"
	AlignCenter Alignment = "center"
)

var (
	// ErrUnknownSection 表示区块类型不在支持列表中。
	ErrUnknownSection = errors.New("unsupported section type")
	// ErrSectionTypeMissing 表示区块缺少 type 字段。
	ErrSectionTypeMissing = errors.New("section type is required")
)

const (
	maxTitleRunes = 120
	maxBodyRunes  = 20000
)

var (
	urlPattern   = regexp.MustCompile(`^(https?://|/)\S+$`)
	colorPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{3}|#[0-9a-fA-F]{6}|[a-z][a-z0-9-]*)$`)

	alignments = []interface{}{AlignLeft, AlignRight, AlignCenter}
)

// Section is one block of a page. Implementations are the closed set of layouts below
// plus Unknown, which only appears when reading rows written by a newer schema.
type Section interface {
	Kind() Kind
	Validate() error
}

// Link 用于 hero 与 cta 区块中的按钮。
type Link struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// Validate checks that the button is clickable.
func (l Link) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Label, validation.Required, validation.RuneLength(0, 60)),
		validation.Field(&l.Href, validation.Required, validation.Match(urlPattern)),
	)
}

// Card 是 cards 区块中的单个卡片。
type Card struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Link        string `json:"link,omitempty"`
}

// Validate checks a single card entry.
func (c Card) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Title, validation.Required, validation.RuneLength(0, maxTitleRunes)),
		validation.Field(&c.Description, validation.RuneLength(0, 600)),
		validation.Field(&c.ImageURL, validation.Match(urlPattern)),
		validation.Field(&c.Link, validation.Match(urlPattern)),
	)
}

// Hero is the large banner usually placed first on a page.
type Hero struct {
	Title     string    `json:"title,omitempty"`
	Subtitle  string    `json:"content,omitempty"`
	BgColor   string    `json:"bgColor,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Alignment Alignment `json:"alignment,omitempty"`
	Buttons   []Link    `json:"items,omitempty"`
}

func (Hero) Kind() Kind { return KindHero }

func (h Hero) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Title, validation.Required, validation.RuneLength(0, maxTitleRunes)),
		validation.Field(&h.Subtitle, validation.RuneLength(0, 600)),
		validation.Field(&h.BgColor, validation.Match(colorPattern)),
		validation.Field(&h.ImageURL, validation.Match(urlPattern)),
		validation.Field(&h.Alignment, validation.In(alignments...)),
		validation.Field(&h.Buttons, validation.Length(0, 3)),
	)
}

// Text 对应 type=content 的正文区块，Body 为 Markdown。
type Text struct {
	Title     string    `json:"title,omitempty"`
	Body      string    `json:"content,omitempty"`
	BgColor   string    `json:"bgColor,omitempty"`
	Alignment Alignment `json:"alignment,omitempty"`
}

func (Text) Kind() Kind { return KindContent }

func (t Text) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Title, validation.RuneLength(0, maxTitleRunes)),
		validation.Field(&t.Body, validation.Required, validation.RuneLength(0, maxBodyRunes)),
		validation.Field(&t.BgColor, validation.Match(colorPattern)),
		validation.Field(&t.Alignment, validation.In(alignments...)),
	)
}

// Cards renders a grid of cards below an optional intro.
type Cards struct {
	Title   string `json:"title,omitempty"`
	Body    string `json:"content,omitempty"`
	BgColor string `json:"bgColor,omitempty"`
	Items   []Card `json:"items,omitempty"`
}

func (Cards) Kind() Kind { return KindCards }

func (c Cards) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Title, validation.RuneLength(0, maxTitleRunes)),
		validation.Field(&c.Body, validation.RuneLength(0, maxBodyRunes)),
		validation.Field(&c.BgColor, validation.Match(colorPattern)),
		validation.Field(&c.Items, validation.Required, validation.Length(1, 24)),
	)
}

// CallToAction 对应 type=cta。
type CallToAction struct {
	Title   string `json:"title,omitempty"`
	Body    string `json:"content,omitempty"`
	BgColor string `json:"bgColor,omitempty"`
	Buttons []Link `json:"items,omitempty"`
}

func (CallToAction) Kind() Kind { return KindCTA }

func (c CallToAction) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Title, validation.Required, validation.RuneLength(0, maxTitleRunes)),
		validation.Field(&c.Body, validation.RuneLength(0, 600)),
		validation.Field(&c.BgColor, validation.Match(colorPattern)),
		validation.Field(&c.Buttons, validation.Required, validation.Length(1, 3)),
	)
}

// ImageText places an image beside a Markdown body.
type ImageText struct {
	Title     string    `json:"title,omitempty"`
	Body      string    `json:"content,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Alignment Alignment `json:"alignment,omitempty"`
	BgColor   string    `json:"bgColor,omitempty"`
}

func (ImageText) Kind() Kind { return KindImageText }

func (s ImageText) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Title, validation.RuneLength(0, maxTitleRunes)),
		validation.Field(&s.Body, validation.RuneLength(0, maxBodyRunes)),
		validation.Field(&s.ImageURL, validation.Required, validation.Match(urlPattern)),
		validation.Field(&s.Alignment, validation.In(alignments...)),
		validation.Field(&s.BgColor, validation.Match(colorPattern)),
	)
}

// Unknown 保留无法识别的区块原文，保证旧数据读取与渲染不报错。
type Unknown struct {
	Type string
	Raw  []byte
}

func (u Unknown) Kind() Kind { return Kind(u.Type) }

func (u Unknown) Validate() error {
	return fmt.Errorf("%w: %q", ErrUnknownSection, u.Type)
}
