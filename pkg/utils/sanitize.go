package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	blockTagPattern = regexp.MustCompile(`(?is)<(script|style|iframe|object)[^>]*>.*?</\s*(script|style|iframe|object)\s*>`)
	tagPattern      = regexp.MustCompile(`(?s)<[^>]*>`)
	schemePattern   = regexp.MustCompile(`(?i)(javascript|vbscript|data)\s*:`)
	handlerPattern  = regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)
	spacePattern    = regexp.MustCompile(`[ \t]+`)
)

// TextSanitizer 为默认的文本清洗实现。
type TextSanitizer struct{}

// Sanitize 实现 chat.Sanitizer。
func (TextSanitizer) Sanitize(input string, maxLen int) string {
	return SanitizeText(input, maxLen)
}

// SanitizeText 去除标签与脚本片段，并按字符数截断到 maxLen。
func SanitizeText(input string, maxLen int) string {
	out := blockTagPattern.ReplaceAllString(input, "")
	out = tagPattern.ReplaceAllString(out, "")
	out = schemePattern.ReplaceAllString(out, "")
	out = handlerPattern.ReplaceAllString(out, "")
	out = strings.ReplaceAll(out, "\x00", "")
	out = spacePattern.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)

	if maxLen > 0 && utf8.RuneCountInString(out) > maxLen {
		runes := []rune(out)
		out = strings.TrimSpace(string(runes[:maxLen]))
	}
	return out
}
