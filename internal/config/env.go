package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ServerConfig defines HTTP server settings.
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// UploadConfig bounds document ingestion.
type UploadConfig struct {
	MaxBytes       int64
	ProbeThreshold int
}

// RenderConfig defines preview rendering behavior.
type RenderConfig struct {
	BufferPages int
	DPI         int
	Quality     int
	ColorMode   string // "rgb"|"gray"
}

// BatchConfig defines extract/merge execution limits.
type BatchConfig struct {
	Concurrency int
	JobTimeout  time.Duration
}

// StatusConfig defines where batch job status lives. An empty RedisURL
// selects the in-memory store.
type StatusConfig struct {
	RedisURL string
}

// ExportConfig defines optional S3 export of document bytes.
type ExportConfig struct {
	S3Bucket string
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Server  ServerConfig
	Upload  UploadConfig
	Render  RenderConfig
	Batch   BatchConfig
	Status  StatusConfig
	Export  ExportConfig
}

// FromEnv loads configuration from environment with sensible defaults. A
// .env file in the working directory is honored when present.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/pdfworkbench.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_pdfworkbench",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Server = ServerConfig{
		Port:            getEnv("PORT", "8080"),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
	}

	cfg.Upload = UploadConfig{
		MaxBytes:       parseInt64(getEnv("UPLOAD_MAX_BYTES", "134217728"), 128<<20),
		ProbeThreshold: parseInt(getEnv("TEXT_PROBE_THRESHOLD", "300"), 300),
	}

	cfg.Render = RenderConfig{
		BufferPages: parseInt(getEnv("RENDER_BUFFER_PAGES", "250"), 250),
		DPI:         parseInt(getEnv("RENDER_DPI", "120"), 120),
		Quality:     parseInt(getEnv("RENDER_JPEG_QUALITY", "80"), 80),
		ColorMode:   getEnv("RENDER_COLOR_MODE", "rgb"),
	}

	cfg.Batch = BatchConfig{
		Concurrency: parseInt(getEnv("BATCH_CONCURRENCY", "2"), 2),
		JobTimeout:  parseDuration(getEnv("BATCH_JOB_TIMEOUT", "120s"), 120*time.Second),
	}

	cfg.Status = StatusConfig{
		RedisURL: getEnv("REDIS_URL", ""),
	}

	cfg.Export = ExportConfig{
		S3Bucket: getEnv("EXPORT_S3_BUCKET", ""),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseInt64(s string, def int64) int64 {
	if s == "" {
		return def
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
