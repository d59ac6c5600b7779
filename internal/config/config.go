package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Detection   DetectionConfig `mapstructure:"detection"`
	Alerts      AlertsConfig    `mapstructure:"alerts"`
	Security    SecurityConfig  `mapstructure:"security"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	EventTTL string `mapstructure:"event_ttl"`
}

// DetectionConfig holds the engine tuning parameters. It is read once at
// startup and handed to the engine as immutable configuration.
type DetectionConfig struct {
	DefaultContamination  float64 `mapstructure:"default_contamination"`
	SensitivityLow        float64 `mapstructure:"sensitivity_low"`
	SensitivityMedium     float64 `mapstructure:"sensitivity_medium"`
	SensitivityHigh       float64 `mapstructure:"sensitivity_high"`
	ZScoreThreshold       float64 `mapstructure:"z_score_threshold"`
	WindowSize            int     `mapstructure:"window_size"`
	GroupingWindowSeconds int     `mapstructure:"grouping_window_seconds"`
	AdvancedEnabled       bool    `mapstructure:"advanced_enabled"`
}

type AlertsConfig struct {
	TelegramBotToken  string  `mapstructure:"telegram_bot_token"`
	TelegramChatID    int64   `mapstructure:"telegram_chat_id"`
	PriorityThreshold float64 `mapstructure:"priority_threshold"`
}

type SecurityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" json:"-" yaml:"-"`
	JWTExpiry string `mapstructure:"jwt_expiry"`
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("security.jwt_secret", "JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind JWT_SECRET environment variable: %w", err)
	}
	if err := viper.BindEnv("alerts.telegram_bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	environment := strings.ToLower(config.Environment)

	// Validate JWT secret in non-development environments
	if environment != "development" && config.Security.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required in non-development environments")
	}

	// Validate JWT expiry duration
	if config.Security.JWTExpiry != "" {
		if _, err := time.ParseDuration(config.Security.JWTExpiry); err != nil {
			return nil, fmt.Errorf("invalid JWT expiry duration: %w", err)
		}
	}

	if err := validateDetection(&config.Detection); err != nil {
		return nil, err
	}

	config.Environment = environment

	return &config, nil
}

func validateDetection(cfg *DetectionConfig) error {
	if cfg.ZScoreThreshold <= 0 {
		return fmt.Errorf("z_score_threshold must be positive, got %g", cfg.ZScoreThreshold)
	}
	if cfg.WindowSize < 2 {
		return fmt.Errorf("window_size must be at least 2, got %d", cfg.WindowSize)
	}
	if cfg.GroupingWindowSeconds <= 0 {
		return fmt.Errorf("grouping_window_seconds must be positive, got %d", cfg.GroupingWindowSeconds)
	}
	for name, c := range map[string]float64{
		"default_contamination": cfg.DefaultContamination,
		"sensitivity_low":       cfg.SensitivityLow,
		"sensitivity_medium":    cfg.SensitivityMedium,
		"sensitivity_high":      cfg.SensitivityHigh,
	} {
		if c <= 0 || c >= 0.5 {
			return fmt.Errorf("%s must be in (0, 0.5), got %g", name, c)
		}
	}
	return nil
}

// GroupingWindow returns the event grouping window as a duration.
func (c DetectionConfig) GroupingWindow() time.Duration {
	return time.Duration(c.GroupingWindowSeconds) * time.Second
}

// EventTTLDuration parses the configured event cache TTL, falling back to
// ten minutes when the value is missing or malformed.
func (c RedisConfig) EventTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.EventTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "opspulse")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.event_ttl", "10m")

	// Detection
	viper.SetDefault("detection.default_contamination", 0.01)
	viper.SetDefault("detection.sensitivity_low", 0.05)
	viper.SetDefault("detection.sensitivity_medium", 0.01)
	viper.SetDefault("detection.sensitivity_high", 0.005)
	viper.SetDefault("detection.z_score_threshold", 3.0)
	viper.SetDefault("detection.window_size", 10)
	viper.SetDefault("detection.grouping_window_seconds", 300)
	viper.SetDefault("detection.advanced_enabled", true)

	// Alerts
	viper.SetDefault("alerts.telegram_bot_token", "")
	viper.SetDefault("alerts.telegram_chat_id", 0)
	viper.SetDefault("alerts.priority_threshold", 0.8)

	// Security
	viper.SetDefault("security.jwt_secret", "")
	viper.SetDefault("security.jwt_expiry", "24h")

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.otlp_endpoint", "")
}
