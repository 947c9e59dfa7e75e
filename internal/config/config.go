package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imageresizer/internal/helpers"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"

	IndexStorage  = "storage"
	IndexPostgres = "postgres"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Index      IndexConfig      `mapstructure:"index"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Migrations MigrationsConfig `mapstructure:"migrations"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr               string `mapstructure:"addr"`
	GinMode            string `mapstructure:"gin_mode"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec"`
	ReadTimeoutSec     int    `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec    int    `mapstructure:"write_timeout_sec"`
	MaxUploadSizeMB    int    `mapstructure:"max_upload_size_mb"`
}

// MaxUploadBytes is the upload ceiling in bytes.
func (c ServerConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	LocalPath string `mapstructure:"local_path"`

	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3Prefix    string `mapstructure:"s3_prefix"`
	S3UseSSL    bool   `mapstructure:"s3_use_ssl"`
}

type IndexConfig struct {
	Type string `mapstructure:"type"`
}

type DatabaseConfig struct {
	DSN                  string `mapstructure:"dsn"`
	Slaves               string `mapstructure:"slaves"`
	MaxOpenConns         int    `mapstructure:"max_open_conns"`
	MaxIdleConns         int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSec   int    `mapstructure:"conn_max_lifetime_sec"`
	ConnectRetries       int    `mapstructure:"connect_retries"`
	ConnectRetryDelaySec int    `mapstructure:"connect_retry_delay_sec"`
	QueryAttempts        int    `mapstructure:"query_attempts"`
}

type MigrationsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type ProcessingConfig struct {
	JPEGQuality      int      `mapstructure:"jpeg_quality"`
	WatermarkText    string   `mapstructure:"watermark_text"`
	WatermarkFontPt  float64  `mapstructure:"watermark_font_pt"`
	WatermarkWidth   int      `mapstructure:"watermark_width"`
	WatermarkHeight  int      `mapstructure:"watermark_height"`
	WatermarkOpacity *int     `mapstructure:"watermark_opacity"`
	AutoOrient       bool     `mapstructure:"auto_orient"`
	AllowedMimeTypes []string `mapstructure:"allowed_mime_types"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns the configuration the service runs with when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	configPath := path
	if configPath == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			configPath = "config.yaml"
		} else if _, err := os.Stat("/app/config.yaml"); err == nil {
			configPath = "/app/config.yaml"
		}
	}

	appConfig := &Config{}
	if configPath != "" {
		envPath := ".env"
		if _, err := os.Stat(envPath); os.IsNotExist(err) {
			envPath = ""
		}

		cfg := config.New()
		if err := cfg.Load(configPath, envPath, "APP"); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Unmarshal(appConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	} else {
		zlog.Logger.Warn().Msg("config.yaml not found, running on defaults")
	}

	applyDefaults(appConfig)
	applyPortEnv(appConfig)

	if err := validateConfig(appConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	zlog.Logger.Info().
		Str("addr", appConfig.Server.Addr).
		Str("storage_type", appConfig.Storage.Type).
		Str("index_type", appConfig.Index.Type).
		Int("max_upload_size_mb", appConfig.Server.MaxUploadSizeMB).
		Bool("kafka_enabled", appConfig.Kafka.Enabled).
		Msg("Config loaded successfully via wbf")

	return appConfig, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3001"
	}
	if cfg.Server.GinMode == "" {
		cfg.Server.GinMode = "release"
	}
	if cfg.Server.ShutdownTimeoutSec == 0 {
		cfg.Server.ShutdownTimeoutSec = 10
	}
	if cfg.Server.ReadTimeoutSec == 0 {
		cfg.Server.ReadTimeoutSec = 30
	}
	if cfg.Server.WriteTimeoutSec == 0 {
		cfg.Server.WriteTimeoutSec = 30
	}
	if cfg.Server.MaxUploadSizeMB == 0 {
		cfg.Server.MaxUploadSizeMB = 5
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = StorageLocal
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "uploads"
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = IndexStorage
	}

	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.ConnectRetries == 0 {
		cfg.Database.ConnectRetries = 15
	}
	if cfg.Database.ConnectRetryDelaySec == 0 {
		cfg.Database.ConnectRetryDelaySec = 3
	}
	if cfg.Database.QueryAttempts == 0 {
		cfg.Database.QueryAttempts = 1
	}

	cfg.Kafka.Brokers = helpers.CleanList(cfg.Kafka.Brokers...)
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "images.stored"
	}

	p := &cfg.Processing
	if p.JPEGQuality == 0 {
		p.JPEGQuality = 80
	}
	if p.WatermarkText == "" {
		p.WatermarkText = "Image Resizer"
	}
	if p.WatermarkFontPt == 0 {
		p.WatermarkFontPt = 24
	}
	if p.WatermarkWidth == 0 {
		p.WatermarkWidth = 200
	}
	if p.WatermarkHeight == 0 {
		p.WatermarkHeight = 50
	}
	// nil means unset; an explicit 0 disables the overlay tint
	if p.WatermarkOpacity == nil {
		opacity := 50
		p.WatermarkOpacity = &opacity
	}
	p.AllowedMimeTypes = helpers.CleanList(p.AllowedMimeTypes...)
	if len(p.AllowedMimeTypes) == 0 {
		p.AllowedMimeTypes = []string{"image/jpeg", "image/png", "image/gif", "image/svg+xml"}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// applyPortEnv lets the conventional PORT variable override the listen port.
func applyPortEnv(cfg *Config) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		return
	}
	host := ""
	if i := strings.LastIndex(cfg.Server.Addr, ":"); i > 0 {
		host = cfg.Server.Addr[:i]
	}
	cfg.Server.Addr = host + ":" + port
}

func validateConfig(cfg *Config) error {
	// Server
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if cfg.Server.ShutdownTimeoutSec <= 0 {
		return fmt.Errorf("server.shutdown_timeout_sec must be positive")
	}
	if cfg.Server.ReadTimeoutSec <= 0 {
		return fmt.Errorf("server.read_timeout_sec must be positive")
	}
	if cfg.Server.WriteTimeoutSec <= 0 {
		return fmt.Errorf("server.write_timeout_sec must be positive")
	}
	if cfg.Server.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("server.max_upload_size_mb must be positive")
	}

	// Storage
	switch cfg.Storage.Type {
	case StorageLocal:
		if cfg.Storage.LocalPath == "" {
			return fmt.Errorf("storage.local_path is required for local storage")
		}
	case StorageS3:
		if cfg.Storage.S3Endpoint == "" {
			return fmt.Errorf("storage.s3_endpoint is required for s3 storage")
		}
		if cfg.Storage.S3Bucket == "" {
			return fmt.Errorf("storage.s3_bucket is required for s3 storage")
		}
		if cfg.Storage.S3AccessKey == "" || cfg.Storage.S3SecretKey == "" {
			return fmt.Errorf("storage.s3_access_key and storage.s3_secret_key are required for s3 storage")
		}
	default:
		return fmt.Errorf("storage.type must be 'local' or 's3'")
	}

	// Index
	switch cfg.Index.Type {
	case IndexStorage:
	case IndexPostgres:
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres index")
		}
		if cfg.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be positive")
		}
		if cfg.Database.MaxIdleConns < 0 {
			return fmt.Errorf("database.max_idle_conns must be non-negative")
		}
	default:
		return fmt.Errorf("index.type must be 'storage' or 'postgres'")
	}

	// Kafka
	if cfg.Kafka.Enabled {
		if len(cfg.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers must contain at least one broker")
		}
		if cfg.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required")
		}
	}

	// Processing
	if cfg.Processing.JPEGQuality < 1 || cfg.Processing.JPEGQuality > 100 {
		return fmt.Errorf("processing.jpeg_quality must be within 1..100")
	}
	if cfg.Processing.WatermarkFontPt <= 0 {
		return fmt.Errorf("processing.watermark_font_pt must be positive")
	}
	if cfg.Processing.WatermarkWidth <= 0 || cfg.Processing.WatermarkHeight <= 0 {
		return fmt.Errorf("processing.watermark_width and watermark_height must be positive")
	}
	if o := cfg.Processing.WatermarkOpacity; o == nil || *o < 0 || *o > 100 {
		return fmt.Errorf("processing.watermark_opacity must be within 0..100")
	}
	if len(cfg.Processing.AllowedMimeTypes) == 0 {
		return fmt.Errorf("processing.allowed_mime_types must contain at least one type")
	}

	return nil
}

// Opacity is the watermark opacity in percent.
func (p ProcessingConfig) Opacity() int {
	if p.WatermarkOpacity == nil {
		return 0
	}
	return *p.WatermarkOpacity
}
