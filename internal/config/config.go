package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Auth       AuthConfig       `yaml:"auth"`
	Email      EmailConfig      `yaml:"email"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
	// PublicBaseURL is the fallback origin for cancellation links when the
	// request carries no forwarding headers.
	PublicBaseURL string `yaml:"public_base_url"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// AuthConfig identifies staff. Bearer tokens are resolved against the
// identity provider and the resolved email must appear in AdminEmails.
type AuthConfig struct {
	IdentityProviderURL string `yaml:"identity_provider_url"`
	ServiceKey          string `yaml:"service_key"`
	AdminEmails         string `yaml:"admin_emails"`
}

// EmailConfig drives the Resend delivery client.
type EmailConfig struct {
	APIKey        string `yaml:"api_key"`
	FromAddress   string `yaml:"from_address"`
	NotifyAddress string `yaml:"notify_address"`
	// Endpoint overrides the Resend API URL; tests point it at a local server.
	Endpoint string `yaml:"endpoint"`
}

type RateLimitConfig struct {
	RPS             float64 `yaml:"rps"`
	Burst           int     `yaml:"burst"`
	PublicPerMinute int     `yaml:"public_per_minute"`
}

func Load(configPath string) (*Config, error) {
	// Best effort: a missing .env is fine in containerized deployments.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate enforces only the settings the process cannot start without.
// Auth and email settings are checked per request so that a partially
// configured server still serves the endpoints that do not need them.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}
	return nil
}

// AdminAllowList returns the configured admin emails, trimmed and
// lowercased, dropping empty entries.
func (c *AuthConfig) AdminAllowList() []string {
	parts := strings.Split(c.AdminEmails, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.ToLower(strings.TrimSpace(p)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 5
	}
	if c.RateLimit.PublicPerMinute == 0 {
		c.RateLimit.PublicPerMinute = 10
	}
	if c.Backup.Enabled {
		if c.Backup.Schedule == "" {
			c.Backup.Schedule = "24h"
		}
		if c.Backup.StoragePath == "" {
			c.Backup.StoragePath = "backups"
		}
	}
	if c.Email.Endpoint == "" {
		c.Email.Endpoint = "https://api.resend.com/emails"
	}
}
