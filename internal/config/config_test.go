package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mvx-assistant-api/pkg/errors"
)

const minimalYAML = `
llm:
  providers:
    openai:
      api_key: ${TEST_OPENAI_KEY:sk-default}
      model: gpt-4o-mini
`

func writeConfig(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestLoadFromAppliesDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	dir := writeConfig(t, map[string]string{"config.yaml": minimalYAML})

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Corpus.ChunkSize)
	assert.Equal(t, 200, cfg.Corpus.ChunkOverlap)
	assert.Equal(t, DefaultSources, cfg.Corpus.Sources)
	assert.Equal(t, 3, cfg.Agent.MaxIterations)
	assert.Equal(t, 3, cfg.Agent.SearchTopK)
	assert.Equal(t, 15*time.Second, cfg.Corpus.FetchTimeout)
	assert.Equal(t, "https://api.multiversx.com", cfg.Chain.BaseURL)
	assert.Equal(t, "sk-default", cfg.LLM.Providers["openai"].APIKey)
}

func TestLoadFromMergesEnvFileAndExpandsVars(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")
	dir := writeConfig(t, map[string]string{
		"config.yaml": minimalYAML,
		"config.staging.yaml": `
agent:
  max_iterations: 5
`,
	})

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, "sk-from-env", cfg.LLM.Providers["openai"].APIKey)
}

func TestValidateRejectsBadChunking(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	dir := writeConfig(t, map[string]string{"config.yaml": minimalYAML + `
corpus:
  chunk_size: 100
  chunk_overlap: 100
`})

	_, err := LoadFrom(dir)
	require.Error(t, err)
	appErr := errors.AsAppError(err)
	assert.Equal(t, errors.CodeInvalidConfiguration, appErr.Code)
	assert.Contains(t, appErr.Detail, "chunk_overlap")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := &Config{
		Corpus: CorpusConfig{ChunkSize: 0, ChunkOverlap: -1, Sources: []string{"ftp://nope"}},
		Agent:  AgentConfig{Provider: "missing"},
	}
	err := cfg.Validate()
	require.Error(t, err)

	detail := errors.AsAppError(err).Detail
	for _, want := range []string{
		"corpus.chunk_size",
		"corpus.chunk_overlap must not be negative",
		`invalid url "ftp://nope"`,
		"agent.max_iterations",
		"agent.search_top_k",
		`llm provider "missing"`,
		"chain.base_url",
	} {
		assert.Contains(t, detail, want)
	}
}

func TestExpandEnvKeepsUnknownPlaceholders(t *testing.T) {
	t.Setenv("KNOWN_VAR", "x")
	assert.Equal(t, "x-${UNKNOWN_VAR}-d", expandEnv("${KNOWN_VAR}-${UNKNOWN_VAR}-${OTHER_VAR:d}"))
}
