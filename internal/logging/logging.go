// Package logging builds the zap logger shared by the server, handlers and services.
package logging

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 根据日志级别与输出格式构造 zap.Logger。
// format 为 "console" 时使用开发模式编码器，其余情况输出 JSON。
func New(level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	if strings.EqualFold(strings.TrimSpace(format), "console") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// ParseLevel maps a textual level to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	var parsed zapcore.Level
	if err := parsed.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel
	}
	return parsed
}

// OrNop 返回非空 logger，便于在测试或可选依赖中省略日志。
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

const maxSnippetRunes = 1024

// Snippet trims content and truncates it to a bounded number of runes for log output.
func Snippet(content string) (string, int) {
	trimmed := strings.TrimSpace(content)
	runeCount := utf8.RuneCountInString(trimmed)
	if runeCount > maxSnippetRunes {
		return string([]rune(trimmed)[:maxSnippetRunes]) + "…(truncated)", runeCount
	}
	return trimmed, runeCount
}
