// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidPort is returned when PORT is outside 1-65535.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidMaxContentLength is returned when MAX_CONTENT_LENGTH is not positive.
	ErrInvalidMaxContentLength = errors.New("config: MAX_CONTENT_LENGTH must be positive")
	// ErrS3RegionRequired is returned when S3_BUCKET is set without S3_REGION.
	ErrS3RegionRequired = errors.New("config: S3_REGION is required when S3_BUCKET is set")
)

// DefaultEnvFile is read by Load when no file is named.
const DefaultEnvFile = ".env"

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port             int      `env:"PORT, default=8080" json:"port"`
	MaxContentLength int64    `env:"MAX_CONTENT_LENGTH, default=1073741824" json:"max_content_length"`
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Storage settings
	UploadDir     string `env:"UPLOAD_DIR, default=uploads" json:"upload_dir"`
	OutputDir     string `env:"OUTPUT_DIR, default=outputs" json:"output_dir"`
	TemplateStore string `env:"TEMPLATE_STORE, default=data/templates.json" json:"template_store"`

	// Media toolchain
	FFmpegPath  string   `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string   `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`
	FontFamily  string   `env:"FONT_FAMILY, default=arial.ttf" json:"font_family"`
	FontDirs    []string `env:"FONT_DIRS" json:"font_dirs,omitempty"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
// Variables found in envFiles (DefaultEnvFile when none are given) are loaded
// first without overriding the process environment; missing files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if len(cfg.FontDirs) == 0 {
		cfg.FontDirs = DefaultFontDirs()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the loaded values are usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.MaxContentLength <= 0 {
		return ErrInvalidMaxContentLength
	}
	if c.S3Bucket != "" && c.S3Region == "" {
		return ErrS3RegionRequired
	}
	return nil
}

// DefaultFontDirs lists the directories searched for the text overlay font.
func DefaultFontDirs() []string {
	return []string{
		"/usr/share/fonts/truetype/dejavu",
		"/usr/share/fonts/truetype/msttcorefonts",
		"/usr/share/fonts",
		"/Library/Fonts",
		"C:\\Windows\\Fonts",
	}
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo is NewLogger writing to w.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, MaxContentLength: %d, UploadDir: %s, OutputDir: %s, TemplateStore: %s, FFmpegPath: %s, S3Bucket: %s, S3Region: %s, AWSAccessKeyID: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.MaxContentLength,
		c.UploadDir,
		c.OutputDir,
		c.TemplateStore,
		c.FFmpegPath,
		c.S3Bucket,
		c.S3Region,
		mask(c.AWSAccessKeyID),
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
