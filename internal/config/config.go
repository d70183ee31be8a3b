package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for VitaLink.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Security  SecurityConfig  `mapstructure:"security"`
	Reports   ReportsConfig   `mapstructure:"reports"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// AssistantConfig holds the generative completion provider settings.
type AssistantConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	Timeout   int    `mapstructure:"timeout"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// SchedulerConfig holds reminder sweep and rollover job settings.
type SchedulerConfig struct {
	SweepIntervalSeconds int    `mapstructure:"sweep_interval_seconds"`
	RolloverCron         string `mapstructure:"rollover_cron"`
}

// SecurityConfig holds auth and rate limit settings.
type SecurityConfig struct {
	JWTSecret      string   `mapstructure:"jwt_secret"`
	AllowOrigins   []string `mapstructure:"allow_origins"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
}

// ReportsConfig holds the asset-store credentials for report uploads.
type ReportsConfig struct {
	CloudName string `mapstructure:"cloud_name"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
}

// Load loads configuration from file, env, and defaults.
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	v.Set("storage.data_dir", dataDir)

	if configPath == "" {
		configPath = filepath.Join(dataDir, "vitalink.yaml")
	}
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (VITALINK_SERVER_PORT, VITALINK_ASSISTANT_API_KEY, etc.)
	v.SetEnvPrefix("VITALINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("assistant.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("assistant.model", "gemini-2.0-flash")
	v.SetDefault("assistant.timeout", 60)
	v.SetDefault("assistant.max_tokens", 2048)

	v.SetDefault("scheduler.sweep_interval_seconds", 30)
	v.SetDefault("scheduler.rollover_cron", "10 0 * * *")

	v.SetDefault("security.allow_origins", []string{"*"})
	v.SetDefault("security.rate_limit_rps", 10)
	v.SetDefault("security.rate_limit_burst", 20)

	v.SetDefault("reports.base_url", "https://api.cloudinary.com/v1_1")
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "vitalink")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".local", "share", "vitalink")
}

// loadEnvOverrides loads specific env vars that Viper does not pick up
// reliably when no config file is present.
func loadEnvOverrides(cfg *Config) {
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	cfg.Assistant.APIKey = getEnv("VITALINK_ASSISTANT_API_KEY", cfg.Assistant.APIKey)
	cfg.Assistant.BaseURL = getEnv("VITALINK_ASSISTANT_BASE_URL", cfg.Assistant.BaseURL)
	cfg.Assistant.Model = getEnv("VITALINK_ASSISTANT_MODEL", cfg.Assistant.Model)

	cfg.Security.JWTSecret = getEnv("VITALINK_SECURITY_JWT_SECRET", cfg.Security.JWTSecret)

	cfg.Reports.CloudName = getEnv("VITALINK_REPORTS_CLOUD_NAME", cfg.Reports.CloudName)
	cfg.Reports.APIKey = getEnv("VITALINK_REPORTS_API_KEY", cfg.Reports.APIKey)
	cfg.Reports.APISecret = getEnv("VITALINK_REPORTS_API_SECRET", cfg.Reports.APISecret)
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Scheduler.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("scheduler.sweep_interval_seconds must be positive")
	}

	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = generateRandomString(32)
	}

	return nil
}

func generateRandomString(n int) string {
	bytes := make([]byte, (n+1)/2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)[:n]
}
