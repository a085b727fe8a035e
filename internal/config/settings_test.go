package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearKeys(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "RAG_EMBEDDING_PROVIDER"} {
		t.Setenv(k, "")
	}
}

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), SettingsFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestChunkingOverlap(t *testing.T) {
	clearKeys(t)

	assert.Equal(t, 250, Default().Chunking.Overlap)

	cfg, err := Load(writeSettings(t, "chunking:\n  window: 1400\n  overlap: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Chunking.Overlap, "zero overlap is kept")

	cfg, err = Load(writeSettings(t, "chunking:\n  window: 1400\n"))
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Chunking.Overlap)

	cfg, err = Load(writeSettings(t, "chunking:\n  window: 400\n  overlap: 300\n"))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Chunking.Overlap, "overlap is clamped below half the window")
}

func TestLLMProviderDefaults(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		file     string
		provider string
		model    string
		key      string
	}{
		{name: "no keys", provider: "none", model: GeminiModelName},
		{name: "google key", env: map[string]string{"GEMINI_API_KEY": "g"}, provider: "gemini", model: GeminiModelName, key: "g"},
		{name: "openai key", env: map[string]string{"OPENAI_API_KEY": "o"}, provider: "openai", model: OpenAIModelName, key: "o"},
		{
			name:     "explicit openai",
			env:      map[string]string{"GEMINI_API_KEY": "g", "OPENAI_API_KEY": "o"},
			file:     "llm:\n  provider: OpenAI\n",
			provider: "openai", model: OpenAIModelName, key: "o",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearKeys(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load(writeSettings(t, tt.file))
			require.NoError(t, err)
			assert.Equal(t, tt.provider, cfg.LLM.Provider)
			assert.Equal(t, tt.model, cfg.LLM.Model)
			assert.Equal(t, tt.key, cfg.LLM.APIKey)
		})
	}
}
