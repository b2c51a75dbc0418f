package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TABULA_MODE", "TABULA_PORT", "TABULA_LLM_PROVIDER", "OPENAI_API_KEY", "OPENAI_APIKEY",
		"OPENAI_BASE_URL", "TABULA_GCP_PROJECT", "TABULA_GCP_LOCATION", "TABULA_DEFAULT_MODEL",
		"TABULA_TEMPERATURE", "TABULA_STORAGE_BACKEND", "TABULA_MAX_UPLOAD_MB", "TABULA_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeLocal, cfg.Mode)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ProviderMock, cfg.LLMProvider)
	assert.Equal(t, "gpt-3.5-turbo", cfg.DefaultModel)
	assert.Equal(t, 0.7, cfg.DefaultTemperature)
	assert.Equal(t, StorageMemory, cfg.StorageBackend)
	assert.Equal(t, 20, cfg.MaxUploadMB)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes())
	assert.Equal(t, "info", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoad_GCPModeDefaultsToOpenAI(t *testing.T) {
	clearEnv(t)
	t.Setenv("TABULA_MODE", "gcp")
	t.Setenv("TABULA_GCP_PROJECT", "proj")
	t.Setenv("OPENAI_APIKEY", "sk-legacy")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, "sk-legacy", cfg.OpenAIAPIKey)
	require.NoError(t, cfg.Validate())

	t.Setenv("OPENAI_API_KEY", "sk-new")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-new", cfg.OpenAIAPIKey)
}

func TestLoad_MalformedNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("TABULA_TEMPERATURE", "warm")
	_, err := Load()
	require.ErrorContains(t, err, "TABULA_TEMPERATURE")

	clearEnv(t)
	t.Setenv("TABULA_MAX_UPLOAD_MB", "lots")
	_, err = Load()
	require.ErrorContains(t, err, "TABULA_MAX_UPLOAD_MB")
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Mode:               ModeGCP,
		Port:               "8080",
		LLMProvider:        ProviderOpenAI,
		StorageBackend:     StorageFirestore,
		DefaultTemperature: 2.5,
		MaxUploadMB:        0,
	}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "OPENAI_API_KEY")
	assert.Contains(t, msg, "firestore storage")
	assert.Contains(t, msg, "gcp mode")
	assert.Contains(t, msg, "TABULA_TEMPERATURE")
	assert.Contains(t, msg, "TABULA_MAX_UPLOAD_MB")

	cfg = &Config{Port: "1", LLMProvider: "claude", StorageBackend: "redis", MaxUploadMB: 1}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown TABULA_LLM_PROVIDER "claude"`)
	assert.Contains(t, err.Error(), `unknown TABULA_STORAGE_BACKEND "redis"`)
}
