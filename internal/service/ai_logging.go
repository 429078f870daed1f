package service

import (
	"github.com/healthhub/internal/logging"
	"go.uber.org/zap"
)

// logAIExchange 用于输出 AI 请求与响应的关键信息，方便排查模型行为。
func logAIExchange(logger *zap.Logger, kind, phase, content string) {
	snippet, runes := logging.Snippet(content)
	if snippet == "" {
		snippet = "<empty>"
	}
	logging.OrNop(logger).Debug("ai exchange",
		zap.String("kind", kind),
		zap.String("phase", phase),
		zap.Int("runes", runes),
		zap.String("content", snippet),
	)
}
