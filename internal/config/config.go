// Package config loads ghfeedback settings from the config file, the
// environment and command line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. GHFEEDBACK_REPO.
	EnvPrefix = "GHFEEDBACK"
	// FileName is the config file name without extension.
	FileName = ".ghfeedback"

	DeliveryGitHub = "github"
	DeliveryOutbox = "outbox"
)

// Config represents the full ghfeedback configuration
type Config struct {
	Repo       string         `mapstructure:"repo"`
	APIURL     string         `mapstructure:"api_url"`
	UserAgent  string         `mapstructure:"user_agent"`
	CachePath  string         `mapstructure:"cache_path"`
	AppVersion string         `mapstructure:"app_version"`
	Token      string         `mapstructure:"token"`
	Login      string         `mapstructure:"login"`
	Sync       SyncConfig     `mapstructure:"sync"`
	Feedback   FeedbackConfig `mapstructure:"feedback"`
}

// SyncConfig contains refresh settings
type SyncConfig struct {
	Cooldown          time.Duration `mapstructure:"cooldown"`
	UpdateInterval    time.Duration `mapstructure:"update_interval"`
	HideAfter         time.Duration `mapstructure:"hide_after"`
	MaxDuplicateDepth int           `mapstructure:"max_duplicate_depth"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	FeedbackLabels    []string      `mapstructure:"feedback_labels"`
	Maintainers       []string      `mapstructure:"maintainers"`
}

// FeedbackConfig contains response submission settings
type FeedbackConfig struct {
	MaxAttachmentBytes int64    `mapstructure:"max_attachment_bytes"`
	MinMessageLength   int      `mapstructure:"min_message_length"`
	Delivery           string   `mapstructure:"delivery"`
	OutboxDir          string   `mapstructure:"outbox_dir"`
	LogFiles           []string `mapstructure:"log_files"`
	NetLogFile         string   `mapstructure:"net_log_file"`
	Anonymous          bool     `mapstructure:"anonymous"`
}

// NewViper returns a viper instance reading GHFEEDBACK_* variables, with
// every key registered so that environment-only values are unmarshaled too.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("repo", "")
	v.SetDefault("api_url", "https://api.github.com")
	v.SetDefault("user_agent", "ghfeedback")
	v.SetDefault("cache_path", "")
	v.SetDefault("app_version", "dev")
	v.SetDefault("token", "")
	v.SetDefault("login", "")

	v.SetDefault("sync.cooldown", "60s")
	v.SetDefault("sync.update_interval", "24h")
	v.SetDefault("sync.hide_after", "720h")
	v.SetDefault("sync.max_duplicate_depth", 10)
	v.SetDefault("sync.requests_per_second", 0)
	v.SetDefault("sync.feedback_labels", []string{"help wanted", "waiting for reply"})
	v.SetDefault("sync.maintainers", []string{})

	v.SetDefault("feedback.max_attachment_bytes", 20*1024*1024)
	v.SetDefault("feedback.min_message_length", 10)
	v.SetDefault("feedback.delivery", DeliveryGitHub)
	v.SetDefault("feedback.outbox_dir", "")
	v.SetDefault("feedback.log_files", []string{})
	v.SetDefault("feedback.net_log_file", "")
	v.SetDefault("feedback.anonymous", false)
}

// Load reads the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills in the values derived from the environment
func applyDefaults(cfg *Config) error {
	if cfg.CachePath != "" && cfg.Feedback.OutboxDir != "" {
		return nil
	}

	dir, err := cacheDir()
	if err != nil {
		return err
	}

	if cfg.CachePath == "" {
		name := "cache"
		if cfg.Repo != "" {
			name = strings.ReplaceAll(cfg.Repo, "/", "_")
		}
		cfg.CachePath = filepath.Join(dir, name+".db")
	}

	if cfg.Feedback.OutboxDir == "" {
		cfg.Feedback.OutboxDir = filepath.Join(dir, "outbox")
	}
	return nil
}

func cacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "ghfeedback"), nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Repo == "" {
		return fmt.Errorf("repo is required (owner/repo)")
	}
	owner, repo, ok := strings.Cut(c.Repo, "/")
	if !ok || owner == "" || repo == "" {
		return fmt.Errorf("invalid repo %q: must be in the format owner/repo", c.Repo)
	}

	if c.Sync.Cooldown < 0 {
		return fmt.Errorf("sync.cooldown must not be negative")
	}
	if c.Sync.UpdateInterval < 0 {
		return fmt.Errorf("sync.update_interval must not be negative")
	}
	if c.Sync.MaxDuplicateDepth < 1 {
		return fmt.Errorf("sync.max_duplicate_depth must be at least 1")
	}
	if c.Sync.RequestsPerSecond < 0 {
		return fmt.Errorf("sync.requests_per_second must not be negative")
	}

	if c.Feedback.MaxAttachmentBytes <= 0 {
		return fmt.Errorf("feedback.max_attachment_bytes must be positive")
	}
	if c.Feedback.MinMessageLength < 0 {
		return fmt.Errorf("feedback.min_message_length must not be negative")
	}

	switch c.Feedback.Delivery {
	case DeliveryGitHub:
	case DeliveryOutbox:
		if c.Feedback.OutboxDir == "" {
			return fmt.Errorf("feedback.outbox_dir is required for outbox delivery")
		}
	default:
		return fmt.Errorf("invalid feedback.delivery: %s (must be github or outbox)", c.Feedback.Delivery)
	}

	return nil
}

// Owner returns the repository owner.
func (c *Config) Owner() string {
	owner, _, _ := strings.Cut(c.Repo, "/")
	return owner
}

// Name returns the repository name.
func (c *Config) Name() string {
	_, name, _ := strings.Cut(c.Repo, "/")
	return name
}
