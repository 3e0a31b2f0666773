package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Stacks      string `yaml:"stacks"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	ErrorsFile  string `yaml:"errors_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// MetaConfig holds credentials and tuning for the Meta Marketing API client.
type MetaConfig struct {
	AccessToken string `yaml:"access_token" envconfig:"META_ACCESS_TOKEN"`
	APIVersion  string `yaml:"api_version" envconfig:"META_API_VERSION"`
	BaseURL     string `yaml:"base_url" envconfig:"META_BASE_URL"`
	// PageSize bounds how many children one Graph page may carry.
	PageSize       int `yaml:"page_size" envconfig:"META_PAGE_SIZE"`
	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"META_TIMEOUT_SECONDS"`
	MaxRetries     int `yaml:"max_retries" envconfig:"META_MAX_RETRIES"`
	BackoffBaseMS  int `yaml:"backoff_base_ms" envconfig:"META_BACKOFF_BASE_MS"`
	BackoffCapMS   int `yaml:"backoff_cap_ms" envconfig:"META_BACKOFF_CAP_MS"`
}

// ReportConfig controls scheduled performance digests.
type ReportConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"REPORT_ENABLED"`
	// DailyAt is a wall-clock time in HH:MM, interpreted in Timezone.
	DailyAt  string `yaml:"daily_at" envconfig:"REPORT_DAILY_AT"`
	Timezone string `yaml:"timezone" envconfig:"REPORT_TIMEZONE"`
	// ChatID overrides the delivery chat; 0 falls back to telegram.admin_id.
	ChatID int64 `yaml:"chat_id" envconfig:"REPORT_CHAT_ID"`
}

// SessionConfig tunes the in-memory navigation session store.
type SessionConfig struct {
	IdleTTLMinutes       int `yaml:"idle_ttl_minutes" envconfig:"SESSION_IDLE_TTL_MINUTES"`
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds" envconfig:"SESSION_SWEEP_INTERVAL_SECONDS"`
}

// WorkspaceConfig points at the client workspace source of record.
type WorkspaceConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"WORKSPACE_BASE_URL"`
	Token          string `yaml:"token" envconfig:"WORKSPACE_TOKEN"`
	DatabaseID     string `yaml:"database_id" envconfig:"WORKSPACE_DATABASE_ID"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"WORKSPACE_TIMEOUT_SECONDS"`
}

// AdGenConfig points at the external ad generation service.
type AdGenConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"ADGEN_BASE_URL"`
	Token          string `yaml:"token" envconfig:"ADGEN_TOKEN"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"ADGEN_TIMEOUT_SECONDS"`
}

// Config aggregates application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database"`
	Meta      MetaConfig      `yaml:"meta"`
	Report    ReportConfig    `yaml:"report"`
	Session   SessionConfig   `yaml:"session"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	AdGen     AdGenConfig     `yaml:"adgen"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if cfg.Telegram.AdminID == 0 {
		return fmt.Errorf("telegram.admin_id is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback:    {},
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	normalizeDatabase(&cfg.Database)
	if err := normalizeMeta(&cfg.Meta); err != nil {
		return err
	}
	if err := normalizeReport(&cfg.Report); err != nil {
		return err
	}
	normalizeSession(&cfg.Session)
	normalizeOutbound(&cfg.Workspace, &cfg.AdGen)
	return nil
}

func normalizeDatabase(d *DatabaseConfig) {
	if strings.TrimSpace(d.Port) == "" {
		d.Port = "5432"
	}
	if strings.TrimSpace(d.SSLMode) == "" {
		d.SSLMode = "disable"
	}
	if d.MaxConnections <= 0 {
		d.MaxConnections = 10
	}
}

func normalizeMeta(m *MetaConfig) error {
	if strings.TrimSpace(m.AccessToken) == "" {
		return fmt.Errorf("meta.access_token is required")
	}
	if strings.TrimSpace(m.APIVersion) == "" {
		m.APIVersion = "v23.0"
	}
	if strings.TrimSpace(m.BaseURL) == "" {
		m.BaseURL = "https://graph.facebook.com"
	}
	m.BaseURL = strings.TrimRight(m.BaseURL, "/")
	if m.PageSize <= 0 {
		m.PageSize = 25
	}
	if m.TimeoutSeconds <= 0 {
		m.TimeoutSeconds = 30
	}
	if m.MaxRetries <= 0 {
		m.MaxRetries = 5
	}
	if m.BackoffBaseMS <= 0 {
		m.BackoffBaseMS = 1000
	}
	if m.BackoffCapMS <= 0 {
		m.BackoffCapMS = 30000
	}
	if m.BackoffCapMS < m.BackoffBaseMS {
		return fmt.Errorf("meta.backoff_cap_ms must be >= meta.backoff_base_ms")
	}
	return nil
}

func normalizeReport(r *ReportConfig) error {
	if !r.Enabled {
		return nil
	}
	if strings.TrimSpace(r.DailyAt) == "" {
		r.DailyAt = "09:00"
	}
	if _, err := time.Parse("15:04", strings.TrimSpace(r.DailyAt)); err != nil {
		return fmt.Errorf("invalid report.daily_at %q, expected HH:MM", r.DailyAt)
	}
	r.DailyAt = strings.TrimSpace(r.DailyAt)
	if strings.TrimSpace(r.Timezone) == "" {
		r.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		return fmt.Errorf("invalid report.timezone %q: %w", r.Timezone, err)
	}
	return nil
}

func normalizeSession(s *SessionConfig) {
	if s.IdleTTLMinutes <= 0 {
		s.IdleTTLMinutes = 30
	}
	if s.SweepIntervalSeconds <= 0 {
		s.SweepIntervalSeconds = 60
	}
}

func normalizeOutbound(w *WorkspaceConfig, g *AdGenConfig) {
	w.BaseURL = strings.TrimRight(strings.TrimSpace(w.BaseURL), "/")
	if w.TimeoutSeconds <= 0 {
		w.TimeoutSeconds = 30
	}
	g.BaseURL = strings.TrimRight(strings.TrimSpace(g.BaseURL), "/")
	if g.TimeoutSeconds <= 0 {
		g.TimeoutSeconds = 60
	}
}
