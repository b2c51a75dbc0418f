package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

// Completion providers.
const (
	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"
	ProviderMock   = "mock"
)

// Storage backends.
const (
	StorageMemory    = "memory"
	StorageFirestore = "firestore"
)

type Config struct {
	Mode Mode

	Port string

	LLMProvider   string // "openai", "vertex" or "mock"
	OpenAIAPIKey  string
	OpenAIBaseURL string

	GCPProjectID string
	GCPLocation  string

	DefaultModel       string
	DefaultTemperature float64

	StorageBackend string // "memory" or "firestore"
	MaxUploadMB    int

	LogLevel string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getFloatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// Load reads all env vars and builds the config. Malformed numbers are
// reported; semantic checks are left to Validate.
func Load() (*Config, error) {
	var mode Mode
	switch getEnv("TABULA_MODE", "local") {
	case "gcp":
		mode = ModeGCP
	default:
		mode = ModeLocal
	}

	defaultProvider := ProviderOpenAI
	if mode == ModeLocal {
		defaultProvider = ProviderMock
	}

	temp, err := getFloatEnv("TABULA_TEMPERATURE", 0.7)
	if err != nil {
		return nil, err
	}
	maxUpload, err := getIntEnv("TABULA_MAX_UPLOAD_MB", 20)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Mode: mode,

		Port: getEnv("TABULA_PORT", "8080"),

		LLMProvider:   strings.ToLower(getEnv("TABULA_LLM_PROVIDER", defaultProvider)),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", os.Getenv("OPENAI_APIKEY")),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		GCPProjectID: getEnv("TABULA_GCP_PROJECT", ""),
		GCPLocation:  getEnv("TABULA_GCP_LOCATION", "us-central1"),

		DefaultModel:       getEnv("TABULA_DEFAULT_MODEL", "gpt-3.5-turbo"),
		DefaultTemperature: temp,

		StorageBackend: strings.ToLower(getEnv("TABULA_STORAGE_BACKEND", StorageMemory)),
		MaxUploadMB:    maxUpload,

		LogLevel: getEnv("TABULA_LOG_LEVEL", "info"),
	}
	return cfg, nil
}

// Validate reports every inconsistency at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY must be set for the openai provider"))
		}
	case ProviderVertex:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("TABULA_GCP_PROJECT must be set for the vertex provider"))
		}
	case ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown TABULA_LLM_PROVIDER %q", c.LLMProvider))
	}

	switch c.StorageBackend {
	case StorageMemory:
	case StorageFirestore:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("TABULA_GCP_PROJECT must be set for firestore storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TABULA_STORAGE_BACKEND %q", c.StorageBackend))
	}

	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		errs = append(errs, errors.New("TABULA_GCP_PROJECT must be set in gcp mode"))
	}
	if c.DefaultTemperature < 0 || c.DefaultTemperature > 2 {
		errs = append(errs, fmt.Errorf("TABULA_TEMPERATURE must be within [0, 2], got %g", c.DefaultTemperature))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("TABULA_MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("TABULA_PORT must not be empty"))
	}

	return errors.Join(errs...)
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
