package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Gateway  GatewayConfig
	Mail     MailConfig
	Admin    AdminConfig
	Worker   WorkerConfig
}

type AppConfig struct {
	Name           string
	Port           string
	Debug          bool
	LogPath        string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

// GatewayConfig holds the payment gateway credentials. Password doubles as
// the IPN signing secret for the "password" hash key.
type GatewayConfig struct {
	BaseURL   string
	Username  string
	Password  string
	HMACKey   string
	PublicKey string
	Timeout   time.Duration
}

// SigningSecrets maps kr-hash-key values to their HMAC secret
func (g GatewayConfig) SigningSecrets() map[string]string {
	secrets := make(map[string]string, 2)
	if g.HMACKey != "" {
		secrets["sha256_hmac"] = g.HMACKey
	}
	if g.Password != "" {
		secrets["password"] = g.Password
	}
	return secrets
}

type MailConfig struct {
	APIKey      string
	BaseURL     string
	From        string
	FromName    string
	ProfileURL  string
	MaxAttempts int
	RetryBase   time.Duration
}

type AdminConfig struct {
	Username     string
	PasswordHash string
}

type WorkerConfig struct {
	OutboxInterval time.Duration
	OutboxBatch    int
	Lease          time.Duration
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// Set defaults
	v.SetDefault("APP_NAME", "tour-booking")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("GATEWAY_BASE_URL", "https://api.micuentaweb.pe")
	v.SetDefault("GATEWAY_TIMEOUT", "10s")
	v.SetDefault("MAIL_BASE_URL", "https://api.brevo.com")
	v.SetDefault("MAIL_FROM_NAME", "Peru-Tourism")
	v.SetDefault("MAIL_MAX_ATTEMPTS", 8)
	v.SetDefault("MAIL_RETRY_BASE", "30s")
	v.SetDefault("OUTBOX_INTERVAL", "15s")
	v.SetDefault("OUTBOX_BATCH", 20)
	v.SetDefault("OUTBOX_LEASE", "2m")

	// .env is optional; the environment always wins
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	v.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:           v.GetString("APP_NAME"),
			Port:           v.GetString("PORT"),
			Debug:          v.GetBool("DEBUG"),
			LogPath:        v.GetString("LOG_PATH"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		Gateway: GatewayConfig{
			BaseURL:   strings.TrimRight(v.GetString("GATEWAY_BASE_URL"), "/"),
			Username:  v.GetString("GATEWAY_USERNAME"),
			Password:  v.GetString("GATEWAY_PASSWORD"),
			HMACKey:   v.GetString("GATEWAY_HMAC_KEY"),
			PublicKey: v.GetString("GATEWAY_PUBLIC_KEY"),
			Timeout:   v.GetDuration("GATEWAY_TIMEOUT"),
		},
		Mail: MailConfig{
			APIKey:      v.GetString("MAIL_API_KEY"),
			BaseURL:     strings.TrimRight(v.GetString("MAIL_BASE_URL"), "/"),
			From:        v.GetString("MAIL_FROM"),
			FromName:    v.GetString("MAIL_FROM_NAME"),
			ProfileURL:  v.GetString("MAIL_PROFILE_URL"),
			MaxAttempts: v.GetInt("MAIL_MAX_ATTEMPTS"),
			RetryBase:   v.GetDuration("MAIL_RETRY_BASE"),
		},
		Admin: AdminConfig{
			Username:     v.GetString("ADMIN_USERNAME"),
			PasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
		},
		Worker: WorkerConfig{
			OutboxInterval: v.GetDuration("OUTBOX_INTERVAL"),
			OutboxBatch:    v.GetInt("OUTBOX_BATCH"),
			Lease:          v.GetDuration("OUTBOX_LEASE"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate reports settings the service cannot start without
func (c *Config) Validate() error {
	var missing []string
	if c.Gateway.Username == "" {
		missing = append(missing, "GATEWAY_USERNAME")
	}
	if c.Gateway.Password == "" {
		missing = append(missing, "GATEWAY_PASSWORD")
	}
	if c.Gateway.PublicKey == "" {
		missing = append(missing, "GATEWAY_PUBLIC_KEY")
	}
	if c.Database.Name == "" {
		missing = append(missing, "DB_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive")
	}
	if c.Worker.OutboxInterval <= 0 || c.Worker.Lease <= 0 {
		return fmt.Errorf("OUTBOX_INTERVAL and OUTBOX_LEASE must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
