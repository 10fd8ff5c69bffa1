// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
)

// ConversationTurn 对话历史中的一轮消息（仅作为推理上下文，不做持久化）
type ConversationTurn struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Valid 角色合法且内容非空
func (t *ConversationTurn) Valid() bool {
	if t == nil {
		return false
	}
	return t.Role.Valid() && strings.TrimSpace(t.Content) != ""
}
