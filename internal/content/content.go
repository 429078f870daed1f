// Package content defines the section-based model that website pages are composed of.
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	// ErrNoSections 表示页面至少需要一个区块才能保存。
	ErrNoSections = errors.New("page must contain at least one section")
	// ErrSectionIndex 表示编辑操作引用了不存在的区块位置。
	ErrSectionIndex = errors.New("section index out of range")
)

// Content is the ordered list of sections of a page. Order is render order.
type Content struct {
	Sections []Section
}

// New builds content from the given sections.
func New(sections ...Section) Content {
	return Content{Sections: sections}
}

// DefaultContent 返回编辑器新建页面时的初始内容：一个 hero 区块。
func DefaultContent() Content {
	return New(Hero{Title: "Welcome", Alignment: AlignCenter})
}

// Len returns the number of sections.
func (c Content) Len() int {
	return len(c.Sections)
}

// Validate 检查内容可保存：非空、每个区块字段合法、无未知类型。
func (c Content) Validate() error {
	if len(c.Sections) == 0 {
		return ErrNoSections
	}

	errs := validation.Errors{}
	for i, section := range c.Sections {
		if section == nil {
			errs[fmt.Sprintf("sections[%d]", i)] = ErrSectionTypeMissing
			continue
		}
		if err := section.Validate(); err != nil {
			errs[fmt.Sprintf("sections[%d]", i)] = err
		}
	}
	return errs.Filter()
}

// Add appends a section at the end of the page.
func (c *Content) Add(section Section) {
	c.Sections = append(c.Sections, section)
}

// Replace swaps the section at index i.
func (c *Content) Replace(i int, section Section) error {
	if i < 0 || i >= len(c.Sections) {
		return ErrSectionIndex
	}
	c.Sections[i] = section
	return nil
}

// Remove deletes the section at index i, keeping the order of the rest.
func (c *Content) Remove(i int) error {
	if i < 0 || i >= len(c.Sections) {
		return ErrSectionIndex
	}
	c.Sections = append(c.Sections[:i], c.Sections[i+1:]...)
	return nil
}

// Move 将 from 位置的区块移动到 to 位置，其余区块相对顺序不变。
func (c *Content) Move(from, to int) error {
	n := len(c.Sections)
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrSectionIndex
	}
	if from == to {
		return nil
	}
	section := c.Sections[from]
	rest := append(c.Sections[:from:from], c.Sections[from+1:]...)
	moved := make([]Section, 0, n)
	moved = append(moved, rest[:to]...)
	moved = append(moved, section)
	moved = append(moved, rest[to:]...)
	c.Sections = moved
	return nil
}

// MarshalJSON writes {"sections": [...]}, never null.
func (c Content) MarshalJSON() ([]byte, error) {
	sections := c.Sections
	if sections == nil {
		sections = []Section{}
	}
	return json.Marshal(struct {
		Sections []Section `json:"sections"`
	}{sections})
}

// UnmarshalJSON decodes {"sections": [...]} and rejects unknown top-level fields.
func (c *Content) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Sections []json.RawMessage `json:"sections"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&envelope); err != nil {
		return fmt.Errorf("decode page content: %w", err)
	}

	sections := make([]Section, 0, len(envelope.Sections))
	for i, raw := range envelope.Sections {
		section, err := DecodeSection(raw)
		if err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
		sections = append(sections, section)
	}
	c.Sections = sections
	return nil
}

// Parse decodes stored or submitted JSON into Content.
func Parse(data []byte) (Content, error) {
	var c Content
	if len(bytes.TrimSpace(data)) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Content{}, err
	}
	return c, nil
}
