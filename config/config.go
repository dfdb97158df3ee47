package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// EnvPath names the variable consulted when no --config flag is given.
const EnvPath = "VIDEOFACTORY_CONFIG"

type Config struct {
	DataDir   string `toml:"data_dir"`
	UploadDir string `toml:"upload_folder"`
	TempDir   string `toml:"temp_folder"`
	OutputDir string `toml:"output_folder"`
	// LockDir holds per-job lease files. cleanup never sweeps it.
	LockDir   string `toml:"lock_folder"`
	LogLevel  string `toml:"log_level"`
	LogDir    string `toml:"log_dir"`

	MaxUploadSizeMB    int `toml:"max_upload_size_mb"`
	MaxDurationSeconds int `toml:"max_duration_seconds"`
	CleanupMaxAgeHours int `toml:"cleanup_max_age_hours"`

	Jobs    JobsConfig    `toml:"jobs"`
	Storage StorageConfig `toml:"storage"`
	Tools   ToolsConfig   `toml:"tools"`
	LLM     LLMConfig     `toml:"llm"`
}

type JobsConfig struct {
	// Store is "sqlite" or "json".
	Store           string `toml:"store"`
	RedisAddr       string `toml:"redis_addr"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
}

type StorageConfig struct {
	Endpoint             string `toml:"endpoint"`
	Region               string `toml:"region"`
	Bucket               string `toml:"bucket"`
	AccessKeyID          string `toml:"access_key_id"`
	SecretAccessKey      string `toml:"secret_access_key"`
	RetryAttempts        int    `toml:"retry_attempts"`
	RetryBaseMS          int    `toml:"retry_base_ms"`
	RetryMaxMS           int    `toml:"retry_max_ms"`
	UsageCacheTTLSeconds int    `toml:"usage_cache_ttl_seconds"`
}

// Enabled reports whether any remote storage setting is present. Validate
// rejects a partial configuration.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" || s.Bucket != "" || s.AccessKeyID != "" || s.SecretAccessKey != ""
}

type ToolsConfig struct {
	FFmpegBin           string `toml:"ffmpeg_bin"`
	FFprobeBin          string `toml:"ffprobe_bin"`
	AutoEditorBin       string `toml:"auto_editor_bin"`
	AutoEditorArgs      string `toml:"auto_editor_args"`
	WhisperBin          string `toml:"whisper_bin"`
	WhisperModel        string `toml:"whisper_model"`
	WhisperLanguage     string `toml:"whisper_language"`
	NpxBin              string `toml:"npx_bin"`
	RemotionDir         string `toml:"remotion_dir"`
	RemotionComposition string `toml:"remotion_composition"`
}

type LLMConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func Default() Config {
	return Config{
		DataDir:            "./data",
		LogLevel:           "info",
		MaxUploadSizeMB:    100,
		MaxDurationSeconds: 600,
		CleanupMaxAgeHours: 24,
		Jobs: JobsConfig{
			Store:           "sqlite",
			CacheTTLSeconds: 30,
		},
		Storage: StorageConfig{
			Region:               "us-east-1",
			RetryAttempts:        3,
			RetryBaseMS:          1000,
			RetryMaxMS:           10000,
			UsageCacheTTLSeconds: 300,
		},
		Tools: ToolsConfig{
			FFmpegBin:           "ffmpeg",
			FFprobeBin:          "ffprobe",
			AutoEditorArgs:      "--no-open --margin 0.2sec",
			WhisperBin:          "whisper-cli",
			WhisperModel:        "models/ggml-base.bin",
			NpxBin:              "npx",
			RemotionComposition: "MainComposition",
		},
		LLM: LLMConfig{
			BaseURL:        "https://api.openai.com/v1/chat/completions",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 60,
		},
	}
}

// Load builds the configuration from defaults, then the TOML file at path
// (or $VIDEOFACTORY_CONFIG), then environment variables. Without either
// source of a path no file is read.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.derivePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) decodeFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := toml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := []struct {
		key string
		dst *string
	}{
		{"DATA_DIR", &c.DataDir},
		{"UPLOAD_FOLDER", &c.UploadDir},
		{"TEMP_FOLDER", &c.TempDir},
		{"OUTPUT_FOLDER", &c.OutputDir},
		{"LOCK_FOLDER", &c.LockDir},
		{"LOG_LEVEL", &c.LogLevel},
		{"LOG_DIR", &c.LogDir},
		{"JOB_STORE", &c.Jobs.Store},
		{"REDIS_ADDR", &c.Jobs.RedisAddr},
		{"WASABI_ENDPOINT", &c.Storage.Endpoint},
		{"WASABI_REGION", &c.Storage.Region},
		{"WASABI_BUCKET", &c.Storage.Bucket},
		{"WASABI_ACCESS_KEY_ID", &c.Storage.AccessKeyID},
		{"WASABI_SECRET_ACCESS_KEY", &c.Storage.SecretAccessKey},
		{"FFMPEG_BIN", &c.Tools.FFmpegBin},
		{"FFPROBE_BIN", &c.Tools.FFprobeBin},
		{"AUTO_EDITOR_BIN", &c.Tools.AutoEditorBin},
		{"AUTO_EDITOR_ARGS", &c.Tools.AutoEditorArgs},
		{"WHISPER_BIN", &c.Tools.WhisperBin},
		{"WHISPER_MODEL", &c.Tools.WhisperModel},
		{"WHISPER_LANGUAGE", &c.Tools.WhisperLanguage},
		{"NPX_BIN", &c.Tools.NpxBin},
		{"REMOTION_DIR", &c.Tools.RemotionDir},
		{"REMOTION_COMPOSITION", &c.Tools.RemotionComposition},
		{"LLM_API_KEY", &c.LLM.APIKey},
		{"LLM_BASE_URL", &c.LLM.BaseURL},
		{"LLM_MODEL", &c.LLM.Model},
	}
	for _, s := range strs {
		*s.dst = getEnv(s.key, *s.dst)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"MAX_UPLOAD_SIZE_MB", &c.MaxUploadSizeMB},
		{"MAX_DURATION_SECONDS", &c.MaxDurationSeconds},
		{"CLEANUP_MAX_AGE_HOURS", &c.CleanupMaxAgeHours},
		{"JOB_CACHE_TTL_SECONDS", &c.Jobs.CacheTTLSeconds},
		{"STORAGE_RETRY_ATTEMPTS", &c.Storage.RetryAttempts},
		{"STORAGE_RETRY_BASE_MS", &c.Storage.RetryBaseMS},
		{"STORAGE_RETRY_MAX_MS", &c.Storage.RetryMaxMS},
		{"USAGE_CACHE_TTL_SECONDS", &c.Storage.UsageCacheTTLSeconds},
		{"LLM_TIMEOUT_SECONDS", &c.LLM.TimeoutSeconds},
	}
	for _, i := range ints {
		raw := os.Getenv(i.key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", i.key, err)
		}
		*i.dst = v
	}
	return nil
}

// derivePaths fills the working directories that were left empty with
// subdirectories of DataDir.
func (c *Config) derivePaths() {
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join(c.DataDir, "uploads")
	}
	if c.TempDir == "" {
		c.TempDir = filepath.Join(c.DataDir, "temp")
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.DataDir, "output")
	}
	if c.LockDir == "" {
		c.LockDir = filepath.Join(c.DataDir, "locks")
	}
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE_MB must be positive, got %d", c.MaxUploadSizeMB)
	}
	if c.MaxDurationSeconds <= 0 {
		return fmt.Errorf("MAX_DURATION_SECONDS must be positive, got %d", c.MaxDurationSeconds)
	}
	if c.CleanupMaxAgeHours <= 0 {
		return fmt.Errorf("CLEANUP_MAX_AGE_HOURS must be positive, got %d", c.CleanupMaxAgeHours)
	}
	switch c.Jobs.Store {
	case "sqlite", "json":
	default:
		return fmt.Errorf("JOB_STORE must be sqlite or json, got %q", c.Jobs.Store)
	}
	if c.Jobs.CacheTTLSeconds < 0 {
		return fmt.Errorf("JOB_CACHE_TTL_SECONDS must not be negative")
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("LLM_TIMEOUT_SECONDS must be positive, got %d", c.LLM.TimeoutSeconds)
	}
	return nil
}

func (s StorageConfig) validate() error {
	if s.Enabled() {
		required := []struct{ key, value string }{
			{"WASABI_ENDPOINT", s.Endpoint},
			{"WASABI_BUCKET", s.Bucket},
			{"WASABI_ACCESS_KEY_ID", s.AccessKeyID},
			{"WASABI_SECRET_ACCESS_KEY", s.SecretAccessKey},
		}
		for _, r := range required {
			if r.value == "" {
				return fmt.Errorf("object storage partially configured: %s is missing", r.key)
			}
		}
	}
	if s.RetryAttempts < 1 {
		return fmt.Errorf("STORAGE_RETRY_ATTEMPTS must be at least 1, got %d", s.RetryAttempts)
	}
	if s.RetryBaseMS <= 0 || s.RetryMaxMS < s.RetryBaseMS {
		return fmt.Errorf("storage retry delays invalid: base %dms, max %dms", s.RetryBaseMS, s.RetryMaxMS)
	}
	if s.UsageCacheTTLSeconds < 0 {
		return fmt.Errorf("USAGE_CACHE_TTL_SECONDS must not be negative")
	}
	return nil
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeMB) << 20
}

func (c *Config) JobCacheTTL() time.Duration {
	return time.Duration(c.Jobs.CacheTTLSeconds) * time.Second
}

func (c *Config) CleanupMaxAge() time.Duration {
	return time.Duration(c.CleanupMaxAgeHours) * time.Hour
}

func (s StorageConfig) RetryBase() time.Duration {
	return time.Duration(s.RetryBaseMS) * time.Millisecond
}

func (s StorageConfig) RetryMax() time.Duration {
	return time.Duration(s.RetryMaxMS) * time.Millisecond
}

func (s StorageConfig) UsageCacheTTL() time.Duration {
	return time.Duration(s.UsageCacheTTLSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
