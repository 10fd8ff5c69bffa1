package entity

// Role 对话角色枚举
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid 仅允许 user / assistant 出现在历史中
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}
