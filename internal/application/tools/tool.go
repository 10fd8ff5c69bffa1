// Package tools 定义问答编排可调用的工具目录。
//
// 工具种类是封闭集合（链上账户/代币/NFT/网络统计查询与官网语义检索），
// 统一以单个字符串参数调用并返回字符串（通常为 JSON）。
package tools

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/schema"
)

// Kind 工具种类
type Kind string

const (
	KindAccount      Kind = "account"
	KindToken        Kind = "token"
	KindNFT          Kind = "nft"
	KindNetworkStats Kind = "network_stats"
	KindWebsiteInfo  Kind = "website_info"
)

// ArgumentKey 工具调用 JSON 参数中承载单字符串参数的字段名
const ArgumentKey = "input"

var (
	// ErrToolNotFound 注册表中不存在该名称的工具
	ErrToolNotFound = errors.New("tool not found")
	// ErrToolAlreadyRegistered 工具名称重复
	ErrToolAlreadyRegistered = errors.New("tool already registered")
)

// Tool 统一的工具调用接口
type Tool interface {
	Name() string
	Description() string
	Kind() Kind
	// Info 返回供模型绑定的工具描述
	Info(ctx context.Context) (*schema.ToolInfo, error)
	Invoke(ctx context.Context, argument string) (string, error)
}

// spec 工具的静态描述；argDesc 为空表示工具不接收参数
type spec struct {
	name    string
	desc    string
	kind    Kind
	argDesc string
}

func (s spec) Name() string        { return s.name }
func (s spec) Description() string { return s.desc }
func (s spec) Kind() Kind          { return s.kind }

func (s spec) Info(_ context.Context) (*schema.ToolInfo, error) {
	info := &schema.ToolInfo{Name: s.name, Desc: s.desc}
	if s.argDesc != "" {
		info.ParamsOneOf = schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			ArgumentKey: {Type: schema.String, Desc: s.argDesc, Required: true},
		})
	}
	return info, nil
}
