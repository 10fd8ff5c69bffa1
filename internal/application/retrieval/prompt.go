package retrieval

import (
	"strings"
)

// ContextTexts 提取命中切片的文本，按相似度顺序。
func ContextTexts(hits []Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if txt := strings.TrimSpace(h.Segment.Text); txt != "" {
			out = append(out, txt)
		}
	}
	return out
}

// CompactOneLine 将多行文本压成一行并折叠连续空白
func CompactOneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateRunes 按字符截断，超出部分以省略号结尾
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + "…"
}
