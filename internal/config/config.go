package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dgallion1/mdq/internal/parser"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth, optional. When set the API requires a bearer token.
	APIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Request limits
	MaxUploadBytes int64
	MaxQueryBytes  int

	// Job state
	JobTTL time.Duration

	// Query engine
	MaxDepth           int
	DefaultInputFormat string

	// PDF
	PDFFallbackPdftotext bool
}

// fileConfig is the YAML form read from MDQ_CONFIG. Zero values leave the
// defaults in place.
type fileConfig struct {
	Port                 string `yaml:"port"`
	APIKey               string `yaml:"api_key"`
	WorkerCount          int    `yaml:"worker_count"`
	MaxQueueSize         int    `yaml:"max_queue_size"`
	MaxUploadBytes       int64  `yaml:"max_upload_bytes"`
	MaxQueryBytes        int    `yaml:"max_query_bytes"`
	JobTTL               string `yaml:"job_ttl"`
	MaxDepth             int    `yaml:"max_depth"`
	DefaultInputFormat   string `yaml:"default_input_format"`
	PDFFallbackPdftotext *bool  `yaml:"pdf_fallback_pdftotext"`
}

func defaults() Config {
	return Config{
		Port:                 "8090",
		WorkerCount:          4,
		MaxQueueSize:         100,
		MaxUploadBytes:       52428800, // 50MB
		MaxQueryBytes:        16384,
		JobTTL:               1 * time.Hour,
		MaxDepth:             128,
		DefaultInputFormat:   "markdown",
		PDFFallbackPdftotext: false,
	}
}

// Load builds the configuration from defaults, an optional YAML file named
// by MDQ_CONFIG and the environment, in increasing priority. A .env file in
// the working directory is loaded first if present.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env file: %w", err)
	}

	cfg := defaults()
	if path := os.Getenv("MDQ_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("MDQ_API_KEY", cfg.APIKey)
	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.MaxQueryBytes = envInt("MAX_QUERY_BYTES", cfg.MaxQueryBytes)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.MaxDepth = envInt("MAX_DEPTH", cfg.MaxDepth)
	cfg.DefaultInputFormat = envOr("DEFAULT_INPUT_FORMAT", cfg.DefaultInputFormat)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	d := defaults()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = d.WorkerCount
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = d.MaxQueueSize
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = d.MaxUploadBytes
	}
	if cfg.MaxQueryBytes <= 0 {
		cfg.MaxQueryBytes = d.MaxQueryBytes
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = d.JobTTL
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = d.MaxDepth
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Port != "" {
		c.Port = fc.Port
	}
	if fc.APIKey != "" {
		c.APIKey = fc.APIKey
	}
	if fc.WorkerCount != 0 {
		c.WorkerCount = fc.WorkerCount
	}
	if fc.MaxQueueSize != 0 {
		c.MaxQueueSize = fc.MaxQueueSize
	}
	if fc.MaxUploadBytes != 0 {
		c.MaxUploadBytes = fc.MaxUploadBytes
	}
	if fc.MaxQueryBytes != 0 {
		c.MaxQueryBytes = fc.MaxQueryBytes
	}
	if fc.JobTTL != "" {
		d, err := time.ParseDuration(fc.JobTTL)
		if err != nil {
			return fmt.Errorf("parse config file %s: job_ttl: %w", path, err)
		}
		c.JobTTL = d
	}
	if fc.MaxDepth != 0 {
		c.MaxDepth = fc.MaxDepth
	}
	if fc.DefaultInputFormat != "" {
		c.DefaultInputFormat = fc.DefaultInputFormat
	}
	if fc.PDFFallbackPdftotext != nil {
		c.PDFFallbackPdftotext = *fc.PDFFallbackPdftotext
	}
	return nil
}

func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	if _, err := parser.ParseFormat(c.DefaultInputFormat); err != nil {
		return fmt.Errorf("DEFAULT_INPUT_FORMAT: %w", err)
	}
	if c.MaxDepth > 10000 {
		return fmt.Errorf("MAX_DEPTH must be at most 10000, got %d", c.MaxDepth)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
