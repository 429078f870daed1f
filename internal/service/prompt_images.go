package service

import (
	"fmt"
	"regexp"
	"strings"
)

var markdownImagePattern = regexp.MustCompile(`!\[[^\]]*]\((<[^>]+>|[^)\s]+)([^)]*)\)`)

// compactMarkdownImages 在生成 AI Prompt 前将 Markdown 图片的长链接替换为短占位符，
// 返回替换后的文本与被替换的图片数量。
// 生成的建议与描述不会回写图片地址，因此无需还原。
func compactMarkdownImages(input string) (string, int) {
	if !markdownImagePattern.MatchString(input) {
		return input, 0
	}

	count := 0
	result := markdownImagePattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := markdownImagePattern.FindStringSubmatch(match)
		if len(groups) < 3 {
			return match
		}

		count++
		original := groups[1]
		placeholder := fmt.Sprintf("image://asset-%d", count)
		if strings.HasPrefix(original, "<") && strings.HasSuffix(original, ">") {
			placeholder = "<" + placeholder + ">"
		}
		return strings.Replace(match, original, placeholder, 1)
	})

	return result, count
}
