package config

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Retention modes accepted by APP_RETENTION_MODE.
const (
	RetentionCalendar   = "calendar"
	RetentionDayOfMonth = "day-of-month"
)

type Config struct {
	Server ServerConfig
	App    AppConfig
	Log    LogConfig
}

type ServerConfig struct {
	Host string
	Port string
}

type AppConfig struct {
	UploadDir     string
	MaxUploadSize int64
	RetentionMode string
}

type LogConfig struct {
	Level     string
	Encoding  string
	ErrorFile string
}

// Addr returns the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("SERVER_HOST", "localhost")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("APP_UPLOAD_DIR", "./static/uploaded_img")
	v.SetDefault("APP_MAX_UPLOAD_SIZE", 10*1024*1024) // 10MB
	v.SetDefault("APP_RETENTION_MODE", RetentionCalendar)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENCODING", "json")
	v.SetDefault("LOG_ERROR_FILE", "error_log.log")

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetString("SERVER_PORT"),
		},
		App: AppConfig{
			UploadDir:     v.GetString("APP_UPLOAD_DIR"),
			MaxUploadSize: v.GetInt64("APP_MAX_UPLOAD_SIZE"),
			RetentionMode: v.GetString("APP_RETENTION_MODE"),
		},
		Log: LogConfig{
			Level:     v.GetString("LOG_LEVEL"),
			Encoding:  v.GetString("LOG_ENCODING"),
			ErrorFile: v.GetString("LOG_ERROR_FILE"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.App.UploadDir == "" {
		return fmt.Errorf("APP_UPLOAD_DIR must not be empty")
	}
	if c.App.MaxUploadSize <= 0 {
		return fmt.Errorf("APP_MAX_UPLOAD_SIZE must be positive, got %d", c.App.MaxUploadSize)
	}

	switch c.App.RetentionMode {
	case RetentionCalendar, RetentionDayOfMonth:
	default:
		return fmt.Errorf("unknown APP_RETENTION_MODE %q", c.App.RetentionMode)
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	switch c.Log.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("unknown LOG_ENCODING %q", c.Log.Encoding)
	}

	return nil
}
