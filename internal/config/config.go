// Package config loads the canvas runtime configuration.
//
// Precedence, lowest first: built-in defaults, the YAML file, the .env file,
// the process environment. Command flags are applied by the caller on top.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Model providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Thread store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Audit backends.
const (
	AuditNone = "none"
	AuditFile = "file"
	AuditS3   = "s3"
)

type Config struct {
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	Addr        string `mapstructure:"addr"`
	AssistantID string `mapstructure:"assistant_id"`

	Model  ModelConfig  `mapstructure:"model"`
	Store  StoreConfig  `mapstructure:"store"`
	Audit  AuditConfig  `mapstructure:"audit"`
	Search SearchConfig `mapstructure:"search"`
	Refine RefineConfig `mapstructure:"refine"`

	// LLMLogDir enables the per-call log when non-empty.
	LLMLogDir string `mapstructure:"llm_log_dir"`
}

type ModelConfig struct {
	Provider string `mapstructure:"provider"`
	Name     string `mapstructure:"name"`
	// Small serves titles and routing; Scoring serves evaluation. Both
	// default to Name.
	Small        string        `mapstructure:"small"`
	Scoring      string        `mapstructure:"scoring"`
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	OpenAIAPIKey string        `mapstructure:"openai_api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	Backend       string        `mapstructure:"backend"`
	Dir           string        `mapstructure:"dir"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
	// EncryptionKey is 64 hex characters (AES-256). Empty disables encryption.
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`
	MaskPII       bool     `mapstructure:"mask_pii"`
}

type AuditConfig struct {
	Backend   string `mapstructure:"backend"`
	Dir       string `mapstructure:"dir"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type SearchConfig struct {
	ExaAPIKey string `mapstructure:"exa_api_key"`
	BaseURL   string `mapstructure:"base_url"`
}

type RefineConfig struct {
	MaxIterations int     `mapstructure:"max_iterations"`
	MinScore      float64 `mapstructure:"min_score"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		Addr:        ":8080",
		AssistantID: "default",
		Model: ModelConfig{
			Provider: ProviderGemini,
			Name:     "gemini-2.5-flash",
			Timeout:  2 * time.Minute,
		},
		Store: StoreConfig{
			Backend: StoreFile,
			Dir:     ".canvas/threads",
		},
		Audit: AuditConfig{
			Backend: AuditNone,
			Dir:     ".canvas/audit",
			Region:  "us-east-1",
			Bucket:  "canvas-audit",
		},
		Refine: RefineConfig{
			MaxIterations: 5,
			MinScore:      90,
		},
	}
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error but a missing explicit config file is.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// godotenv never overrides variables already in the environment.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.LogLevel, "CANVAS_LOG_LEVEL")
	setString(&c.LogFormat, "CANVAS_LOG_FORMAT")
	setString(&c.Addr, "CANVAS_ADDR")
	setString(&c.AssistantID, "CANVAS_ASSISTANT_ID")
	setString(&c.LLMLogDir, "CANVAS_LLM_LOG_DIR")

	setString(&c.Model.Provider, "CANVAS_MODEL_PROVIDER")
	setString(&c.Model.Name, "CANVAS_MODEL")
	setString(&c.Model.Small, "CANVAS_SMALL_MODEL")
	setString(&c.Model.Scoring, "CANVAS_SCORING_MODEL")
	setString(&c.Model.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.Model.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.Model.BaseURL, "OPENAI_BASE_URL")

	setString(&c.Store.Backend, "CANVAS_STORE")
	setString(&c.Store.Dir, "CANVAS_STORE_DIR")
	setString(&c.Store.RedisAddr, "REDIS_ADDR")
	setString(&c.Store.RedisPassword, "REDIS_PASSWORD")
	setInt(&c.Store.RedisDB, "REDIS_DB")
	setDuration(&c.Store.TTL, "CANVAS_STORE_TTL")
	setString(&c.Store.EncryptionKey, "CANVAS_ENCRYPTION_KEY")
	if v := strings.TrimSpace(os.Getenv("CANVAS_ENCRYPTION_FALLBACK_KEYS")); v != "" {
		c.Store.FallbackKeys = strings.Split(v, ",")
	}
	setBool(&c.Store.MaskPII, "CANVAS_MASK_PII")

	setString(&c.Audit.Backend, "CANVAS_AUDIT")
	setString(&c.Audit.Dir, "CANVAS_AUDIT_DIR")
	setString(&c.Audit.Endpoint, "S3_ENDPOINT")
	setString(&c.Audit.Region, "S3_REGION")
	setString(&c.Audit.AccessKey, "S3_ACCESS_KEY")
	setString(&c.Audit.SecretKey, "S3_SECRET_KEY")
	setString(&c.Audit.Bucket, "S3_BUCKET")
	setBool(&c.Audit.UseSSL, "S3_USE_SSL")

	setString(&c.Search.ExaAPIKey, "EXA_API_KEY")
	setString(&c.Search.BaseURL, "EXA_BASE_URL")
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	switch c.Store.Backend {
	case StoreMemory, StoreFile:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("redis store requires redis_addr")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Audit.Backend {
	case AuditNone, AuditFile:
	case AuditS3:
		if c.Audit.Endpoint == "" {
			return errors.New("s3 audit requires an endpoint")
		}
	default:
		return fmt.Errorf("unknown audit backend %q", c.Audit.Backend)
	}
	if c.Refine.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.Refine.MaxIterations)
	}
	if _, _, err := c.Store.Keys(); err != nil {
		return err
	}
	return nil
}

// Keys decodes the encryption keys. A nil active key means encryption is off.
func (s StoreConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		return nil, nil, nil
	}
	active, err = decodeKey(s.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("encryption_key: %w", err)
	}
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// SmallModel returns the model used for titles and routing.
func (m ModelConfig) SmallModel() string {
	if m.Small != "" {
		return m.Small
	}
	return m.Name
}

// ScoringModel returns the model used for evaluation.
func (m ModelConfig) ScoringModel() string {
	if m.Scoring != "" {
		return m.Scoring
	}
	return m.Name
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			*dst = d
		}
	}
}
