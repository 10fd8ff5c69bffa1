package tools

import (
	"context"
	"encoding/json"
	"strings"
)

const (
	NameAccountDetails = "get_account_details"
	NameTokenDetails   = "get_token_details"
	NameNFTDetails     = "get_nft_details"
	NameNetworkStats   = "get_network_stats"
)

// ChainReader MultiversX 公共 API 的只读查询能力
type ChainReader interface {
	Account(ctx context.Context, address string) (json.RawMessage, error)
	Token(ctx context.Context, identifier string) (json.RawMessage, error)
	NFT(ctx context.Context, identifier string) (json.RawMessage, error)
	Stats(ctx context.Context) (json.RawMessage, error)
}

// chainTool 透传一次链上查询，原样返回 API 的 JSON
type chainTool struct {
	spec
	lookup func(ctx context.Context, argument string) (json.RawMessage, error)
}

func (t *chainTool) Invoke(ctx context.Context, argument string) (string, error) {
	raw, err := t.lookup(ctx, strings.TrimSpace(argument))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func NewAccountTool(chain ChainReader) Tool {
	return &chainTool{
		spec: spec{
			name:    NameAccountDetails,
			desc:    "Use this tool to get account details. Requires an address parameter.",
			kind:    KindAccount,
			argDesc: "MultiversX account address (erd1...)",
		},
		lookup: chain.Account,
	}
}

func NewTokenTool(chain ChainReader) Tool {
	return &chainTool{
		spec: spec{
			name:    NameTokenDetails,
			desc:    "Use this tool to get token details. Requires a token identifier.",
			kind:    KindToken,
			argDesc: "Token identifier, e.g. WEGLD-bd4d79",
		},
		lookup: chain.Token,
	}
}

func NewNFTTool(chain ChainReader) Tool {
	return &chainTool{
		spec: spec{
			name:    NameNFTDetails,
			desc:    "Use this tool to get NFT details. Requires an NFT identifier.",
			kind:    KindNFT,
			argDesc: "NFT identifier, e.g. COLLECTION-a1b2c3-01",
		},
		lookup: chain.NFT,
	}
}

// NewNetworkStatsTool 网络统计不需要参数，传入的参数被忽略
func NewNetworkStatsTool(chain ChainReader) Tool {
	return &chainTool{
		spec: spec{
			name: NameNetworkStats,
			desc: "Use this tool to get MultiversX network statistics.",
			kind: KindNetworkStats,
		},
		lookup: func(ctx context.Context, _ string) (json.RawMessage, error) {
			return chain.Stats(ctx)
		},
	}
}
