package prompt

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentTemplateFormatsHistory(t *testing.T) {
	r := NewRegistry()
	tpl, err := r.ChatTemplate(PromptAgentV1)
	require.NoError(t, err)

	msgs, err := tpl.Format(context.Background(), map[string]any{
		"question": "What is EGLD?",
		HistoryKey: []*schema.Message{
			schema.UserMessage("hi"),
			schema.AssistantMessage("hello", nil),
		},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "get_website_info")
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, "Question: What is EGLD?", msgs[3].Content)

	again, err := r.ChatTemplate(PromptAgentV1)
	require.NoError(t, err)
	assert.Same(t, tpl, again)
}

func TestTextProtocolTemplateKeepsLiteralBraces(t *testing.T) {
	tpl, err := NewRegistry().ChatTemplate(PromptAgentTextV1)
	require.NoError(t, err)

	msgs, err := tpl.Format(context.Background(), map[string]any{
		"question":    "stats?",
		"tools_block": "- get_network_stats: network statistics",
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, `{"final_answer": "<your answer to the user>"}`)
	assert.Contains(t, msgs[0].Content, "- get_network_stats: network statistics")
}

func TestUnknownPromptID(t *testing.T) {
	_, err := NewRegistry().ChatTemplate("nope")
	assert.ErrorContains(t, err, "unknown prompt id")
}
