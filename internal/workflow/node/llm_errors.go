package node

import "strings"

// IsResponseFormatUnsupportedError 判断提供商是否拒绝了 response_format 参数
func IsResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "response_format"):
		return true
	case strings.Contains(msg, "json_schema"):
		return true
	case strings.Contains(msg, "unknown parameter") && strings.Contains(msg, "response"):
		return true
	case strings.Contains(msg, "invalid") && strings.Contains(msg, "response"):
		return true
	case strings.Contains(msg, "response_schema"):
		return true
	default:
		return false
	}
}

// IsToolsUnsupportedError 判断提供商是否拒绝了工具绑定
func IsToolsUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unknown parameter") && strings.Contains(msg, "tool"):
		return true
	case strings.Contains(msg, "tool") && strings.Contains(msg, "not supported"):
		return true
	case strings.Contains(msg, "does not support tools"):
		return true
	default:
		return false
	}
}
