// Package node 提供工作流节点共用的模型输出处理工具
package node

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject 从模型输出中截取第一个 JSON 对象或数组。
// 模型常在 JSON 前后夹杂说明文字或 markdown 代码块；截取失败时原样返回去空白后的文本。
func ExtractJSONObject(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return raw
	}

	start, end := -1, -1
	objStart := strings.IndexByte(raw, '{')
	arrStart := strings.IndexByte(raw, '[')
	switch {
	case objStart >= 0 && (arrStart < 0 || objStart < arrStart):
		start, end = objStart, strings.LastIndexByte(raw, '}')
	case arrStart >= 0:
		start, end = arrStart, strings.LastIndexByte(raw, ']')
	}
	if start < 0 || end <= start {
		return raw
	}

	candidate := raw[start : end+1]
	if !json.Valid([]byte(candidate)) {
		// 尾部可能还有第二个对象，退而求其次取第一个完整值
		dec := json.NewDecoder(strings.NewReader(candidate))
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return raw
		}
		return string(v)
	}
	return candidate
}
