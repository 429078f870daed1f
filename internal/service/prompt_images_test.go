package service

import (
	"testing"

	"github.com/healthhub/internal/content"
	"github.com/stretchr/testify/assert"
)

func TestCompactMarkdownImages(t *testing.T) {
	input := "Our clinic ![front desk](https://cdn.example.com/a/very/long/path/desk.jpg \"Desk\") and " +
		"![ward](<https://cdn.example.com/ward photo.png>)."

	out, count := compactMarkdownImages(input)
	assert.Equal(t, 2, count)
	assert.Equal(t, "Our clinic ![front desk](image://asset-1 \"Desk\") and ![ward](<image://asset-2>).", out)
}

func TestCompactMarkdownImagesWithoutImages(t *testing.T) {
	out, count := compactMarkdownImages("plain [link](https://example.com)")
	assert.Equal(t, 0, count)
	assert.Equal(t, "plain [link](https://example.com)", out)
}

func TestBuildSEOPromptCompactsImages(t *testing.T) {
	body := content.New(content.Text{
		Title: "Facilities",
		Body:  "See ![lab](https://cdn.example.com/uploads/2024/lab-equipment-overview.jpg)",
	})

	prompt := buildSEOPrompt("facilities", body)
	assert.Contains(t, prompt, "Slug: facilities")
	assert.Contains(t, prompt, "1. [content] Facilities")
	assert.Contains(t, prompt, "![lab](image://asset-1)")
	assert.NotContains(t, prompt, "lab-equipment-overview")
}
