// Package config loads the application configuration from viper,
// layering config file values under BILISORT_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"bilisort/internal/bili"
	"bilisort/internal/engine"
)

// Config is the fully resolved application configuration.
type Config struct {
	DatabasePath string
	Credentials  bili.Credentials
	BaseURL      string

	PageDelay         time.Duration
	RateLimitCooldown time.Duration
	SamplingDelay     time.Duration
	PagesPerWindow    int
	BatchSize         int
	BatchMaxRetries   int
	BackoffUnit       time.Duration
}

// Load resolves the configuration from viper. Every field has a
// sensible default so an empty config file is valid; only the remote
// credentials are genuinely required and their absence is reported by
// the client, not here.
func Load() Config {
	cfg := Config{
		DatabasePath: "$HOME/.local/share/bilisort/bilisort.db",
		Credentials: bili.Credentials{
			SESSDATA:   viper.GetString("bili.sessdata"),
			BiliJCT:    viper.GetString("bili.bili_jct"),
			DedeUserID: viper.GetString("bili.dedeuserid"),
		},
		BaseURL:           viper.GetString("bili.base_url"),
		PageDelay:         500 * time.Millisecond,
		RateLimitCooldown: 3 * time.Second,
		SamplingDelay:     500 * time.Millisecond,
		PagesPerWindow:    engine.DefaultPagesPerWindow,
		BatchSize:         10,
		BatchMaxRetries:   2,
		BackoffUnit:       2 * time.Second,
	}

	if v := viper.GetString("database.path"); v != "" {
		cfg.DatabasePath = v
	}
	cfg.DatabasePath = ExpandPath(cfg.DatabasePath)

	if v := viper.GetDuration("fetch.page_delay"); v > 0 {
		cfg.PageDelay = v
	}
	if v := viper.GetDuration("fetch.rate_limit_cooldown"); v > 0 {
		cfg.RateLimitCooldown = v
	}
	if v := viper.GetInt("fetch.pages_per_window"); v > 0 {
		cfg.PagesPerWindow = v
	}
	if v := viper.GetDuration("index.sampling_delay"); v > 0 {
		cfg.SamplingDelay = v
	}
	if v := viper.GetInt("classify.batch_size"); v > 0 {
		cfg.BatchSize = v
	}
	if viper.IsSet("classify.max_retries") {
		cfg.BatchMaxRetries = viper.GetInt("classify.max_retries")
	}
	if v := viper.GetDuration("classify.backoff_unit"); v > 0 {
		cfg.BackoffUnit = v
	}

	return cfg
}

// ExpandPath expands a leading ~ and $VAR references in a file path.
func ExpandPath(path string) string {
	switch {
	case path == "~":
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
	case strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// DefaultConfigDir is where the config file is looked up by default.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "bilisort"), nil
}
