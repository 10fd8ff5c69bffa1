package node

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"final_answer":"ok"}`, `{"final_answer":"ok"}`},
		{"fenced", "```json\n{\"action\":\"get_network_stats\",\"action_input\":\"\"}\n```", `{"action":"get_network_stats","action_input":""}`},
		{"prose around", `Sure! {"final_answer":"42"} Hope that helps.`, `{"final_answer":"42"}`},
		{"two objects", `{"action":"a"} then {"action":"b"}`, `{"action":"a"}`},
		{"no json", "just text", "just text"},
		{"empty", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractJSONObject(tc.in))
		})
	}
}

func TestProviderErrorClassifiers(t *testing.T) {
	assert.True(t, IsToolsUnsupportedError(errors.New("400: Unknown parameter: 'tools'")))
	assert.True(t, IsToolsUnsupportedError(errors.New("model llama2 does not support tools")))
	assert.False(t, IsToolsUnsupportedError(errors.New("context deadline exceeded")))
	assert.False(t, IsToolsUnsupportedError(nil))

	assert.True(t, IsResponseFormatUnsupportedError(errors.New("'response_format' of type 'json_object' is not supported")))
	assert.False(t, IsResponseFormatUnsupportedError(errors.New("rate limited")))
}
