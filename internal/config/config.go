package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the export and sync pipelines.
type Config struct {
	CrossEngage CrossEngageConfig `yaml:"crossengage"`
	SendGrid    SendGridConfig    `yaml:"sendgrid"`
	Export      ExportConfig      `yaml:"export"`
	Sync        SyncConfig        `yaml:"sync"`
}

// CrossEngageConfig holds CrossEngage platform credentials and endpoints.
type CrossEngageConfig struct {
	APIKey          string `yaml:"api_key"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	WebTrackingKey  string `yaml:"web_tracking_key"`
	APIBaseURL      string `yaml:"api_base_url"`
	UIBaseURL       string `yaml:"ui_base_url"`
	TrackingBaseURL string `yaml:"tracking_base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c CrossEngageConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SendGridConfig holds SendGrid API configuration.
type SendGridConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	PageSize       int    `yaml:"page_size"`
}

// Timeout returns the configured timeout as a duration.
func (c SendGridConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ExportConfig holds statistics export settings.
type ExportConfig struct {
	KPIs []string `yaml:"kpis"`
}

// SyncConfig holds opt-out sync settings.
type SyncConfig struct {
	SegmentBatchSize int `yaml:"segment_batch_size"`
}

// DefaultKPIs is the fixed set of KPI names exported, in column order.
var DefaultKPIs = []string{
	"Sent",
	"Delivered",
	"Viewed",
	"Clicked",
	"Unique Viewed",
	"Unique Clicked",
	"Soft Bounced",
	"Hard Bounced",
	"Marked as Spam",
	"Unsubscribed",
}

// Load reads and parses the configuration file. A missing file is not an
// error: all values can be supplied through the environment instead.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Set defaults
	if cfg.CrossEngage.APIBaseURL == "" {
		cfg.CrossEngage.APIBaseURL = "https://api.crossengage.io"
	}
	if cfg.CrossEngage.UIBaseURL == "" {
		cfg.CrossEngage.UIBaseURL = "https://ui-api.crossengage.io/ui"
	}
	if cfg.CrossEngage.TrackingBaseURL == "" {
		cfg.CrossEngage.TrackingBaseURL = "https://trk-api.crossengage.io"
	}
	if cfg.CrossEngage.TimeoutSeconds == 0 {
		cfg.CrossEngage.TimeoutSeconds = 60
	}
	if cfg.SendGrid.BaseURL == "" {
		cfg.SendGrid.BaseURL = "https://api.sendgrid.com/v3"
	}
	if cfg.SendGrid.TimeoutSeconds == 0 {
		cfg.SendGrid.TimeoutSeconds = 60
	}
	if cfg.SendGrid.PageSize == 0 {
		cfg.SendGrid.PageSize = 500
	}
	if len(cfg.Export.KPIs) == 0 {
		cfg.Export.KPIs = append([]string(nil), DefaultKPIs...)
	}
	if cfg.Sync.SegmentBatchSize == 0 {
		cfg.Sync.SegmentBatchSize = 100
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on the scheduler.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if apiKey := os.Getenv("XNG_MASTER_API_KEY"); apiKey != "" {
		cfg.CrossEngage.APIKey = apiKey
	}
	if user := os.Getenv("XNG_APP_USER"); user != "" {
		cfg.CrossEngage.Username = user
	}
	if pass := os.Getenv("XNG_APP_PASSWORD"); pass != "" {
		cfg.CrossEngage.Password = pass
	}
	if trackingKey := os.Getenv("XNG_WEB_TRACKING_KEY"); trackingKey != "" {
		cfg.CrossEngage.WebTrackingKey = trackingKey
	}
	if baseURL := os.Getenv("XNG_API_BASE_URL"); baseURL != "" {
		cfg.CrossEngage.APIBaseURL = baseURL
	}
	if baseURL := os.Getenv("XNG_UI_BASE_URL"); baseURL != "" {
		cfg.CrossEngage.UIBaseURL = baseURL
	}
	if baseURL := os.Getenv("XNG_TRACKING_BASE_URL"); baseURL != "" {
		cfg.CrossEngage.TrackingBaseURL = baseURL
	}
	if apiKey := os.Getenv("SENDGRID_API_KEY"); apiKey != "" {
		cfg.SendGrid.APIKey = apiKey
	}
	if baseURL := os.Getenv("SENDGRID_BASE_URL"); baseURL != "" {
		cfg.SendGrid.BaseURL = baseURL
	}

	return cfg, nil
}

// ValidateExport checks that every value the export pipeline needs is set.
func (c *Config) ValidateExport() error {
	if c.CrossEngage.APIKey == "" {
		return fmt.Errorf("missing CrossEngage API key (XNG_MASTER_API_KEY)")
	}
	if c.CrossEngage.Username == "" {
		return fmt.Errorf("missing CrossEngage username (XNG_APP_USER)")
	}
	if c.CrossEngage.Password == "" {
		return fmt.Errorf("missing CrossEngage password (XNG_APP_PASSWORD)")
	}
	return nil
}

// ValidateSync checks that every value the opt-out sync pipeline needs is set.
func (c *Config) ValidateSync() error {
	if err := c.ValidateExport(); err != nil {
		return err
	}
	if c.CrossEngage.WebTrackingKey == "" {
		return fmt.Errorf("missing CrossEngage web tracking key (XNG_WEB_TRACKING_KEY)")
	}
	if c.SendGrid.APIKey == "" {
		return fmt.Errorf("missing SendGrid API key (SENDGRID_API_KEY)")
	}
	return nil
}
