package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/healthhub/internal/content"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// UnsupportedPlaceholder 是未知区块类型的渲染结果。
const UnsupportedPlaceholder template.HTML = "<!-- unsupported section -->"

//go:embed templates/*.html
var templateFS embed.FS

// Document 描述一个完整的前台页面。
type Document struct {
	Title           string
	MetaDescription string
	Content         content.Content
}

// Renderer 将区块列表按顺序渲染为 HTML。正文字段按 Markdown 解析并经过 UGC 策略清洗。
type Renderer struct {
	markdown  goldmark.Markdown
	sanitizer *bluemonday.Policy
	templates *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		),
		sanitizer: bluemonday.UGCPolicy(),
		templates: tmpl,
	}, nil
}

// MustNew 与 New 相同，解析失败时 panic。
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Markdown 渲染并清洗一段 Markdown。
func (r *Renderer) Markdown(source string) (template.HTML, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return template.HTML(r.sanitizer.SanitizeBytes(buf.Bytes())), nil
}

type textView struct {
	Title     string
	Body      template.HTML
	BgColor   string
	Alignment content.Alignment
}

type cardsView struct {
	Title   string
	Body    template.HTML
	BgColor string
	Items   []content.Card
}

type ctaView struct {
	Title   string
	Body    template.HTML
	BgColor string
	Buttons []content.Link
}

type imageTextView struct {
	Title     string
	Body      template.HTML
	ImageURL  string
	Alignment content.Alignment
	BgColor   string
}

// RenderSection 渲染单个区块。未知类型返回占位注释，不会报错。
func (r *Renderer) RenderSection(section content.Section) (template.HTML, error) {
	var (
		name string
		data interface{}
	)

	switch s := section.(type) {
	case content.Hero:
		s.Alignment = alignOr(s.Alignment, content.AlignCenter)
		name, data = "hero", s
	case content.Text:
		body, err := r.Markdown(s.Body)
		if err != nil {
			return "", err
		}
		name = "content"
		data = textView{Title: s.Title, Body: body, BgColor: s.BgColor, Alignment: alignOr(s.Alignment, content.AlignLeft)}
	case content.Cards:
		body, err := r.Markdown(s.Body)
		if err != nil {
			return "", err
		}
		name = "cards"
		data = cardsView{Title: s.Title, Body: body, BgColor: s.BgColor, Items: s.Items}
	case content.CallToAction:
		body, err := r.Markdown(s.Body)
		if err != nil {
			return "", err
		}
		name = "cta"
		data = ctaView{Title: s.Title, Body: body, BgColor: s.BgColor, Buttons: s.Buttons}
	case content.ImageText:
		body, err := r.Markdown(s.Body)
		if err != nil {
			return "", err
		}
		name = "image-text"
		data = imageTextView{Title: s.Title, Body: body, ImageURL: s.ImageURL, Alignment: alignOr(s.Alignment, content.AlignLeft), BgColor: s.BgColor}
	default:
		return UnsupportedPlaceholder, nil
	}

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s section: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

// RenderPage 按数组顺序渲染所有区块。
func (r *Renderer) RenderPage(body content.Content) (template.HTML, error) {
	var builder strings.Builder
	for i, section := range body.Sections {
		out, err := r.RenderSection(section)
		if err != nil {
			return "", fmt.Errorf("section %d: %w", i, err)
		}
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(string(out))
	}
	return template.HTML(builder.String()), nil
}

// RenderDocument 输出带 <title> 的完整 HTML 文档。
func (r *Renderer) RenderDocument(doc Document) ([]byte, error) {
	body, err := r.RenderPage(doc.Content)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "document", struct {
		Title           string
		MetaDescription string
		Body            template.HTML
	}{doc.Title, doc.MetaDescription, body}); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderMessage 输出只包含一条提示信息的页面，用于 404 等状态。
func (r *Renderer) RenderMessage(title, message string) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "message", struct {
		Title   string
		Message string
	}{title, message}); err != nil {
		return nil, fmt.Errorf("render message: %w", err)
	}
	return buf.Bytes(), nil
}

func alignOr(value, fallback content.Alignment) content.Alignment {
	if value == "" {
		return fallback
	}
	return value
}
