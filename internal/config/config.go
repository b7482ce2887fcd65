// Package config loads runtime configuration and keeps it hot: the
// evaluation loop reads auto_close_seconds fresh on every tick, so an
// operator can retune the time-close dwell without a restart.
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Default values applied when the config file is absent or partial.
const (
	DefaultAutoCloseSeconds = int64(7200)
	DefaultScanInterval     = 2 * time.Second
	DefaultEvalInterval     = 1 * time.Second
)

// DefaultAllowedTags is the authorization allow-list: one tag per
// trusted generator. Signals whose source/engine tag is not listed are
// hard-rejected at ingestion and again at logging.
var DefaultAllowedTags = []string{"pulse_fx", "pulse_crypto"}

// Config is a point-in-time snapshot of runtime settings.
type Config struct {
	AutoCloseSeconds int64         `mapstructure:"auto_close_seconds"`
	ScanInterval     time.Duration `mapstructure:"scan_interval"`
	EvalInterval     time.Duration `mapstructure:"eval_interval"`
	AllowedTags      []string      `mapstructure:"allowed_tags"`
}

// Watcher owns the viper instance and republishes a Config snapshot
// whenever the underlying file changes. Readers always get a complete,
// consistent snapshot; they never observe a half-applied reload.
type Watcher struct {
	mu      sync.RWMutex
	current Config
	v       *viper.Viper
}

// Load reads the YAML config file at path and starts watching it for
// changes. A missing file is not an error: defaults apply, and the
// watcher only runs when the initial read succeeded.
func Load(path string) (*Watcher, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("auto_close_seconds", DefaultAutoCloseSeconds)
	v.SetDefault("scan_interval", DefaultScanInterval)
	v.SetDefault("eval_interval", DefaultEvalInterval)
	v.SetDefault("allowed_tags", DefaultAllowedTags)

	w := &Watcher{v: v}

	// A missing or unreadable file falls back to defaults; only a file
	// that parses gets watched for hot reload.
	fileFound := path != "" && v.ReadInConfig() == nil

	if err := w.reload(); err != nil {
		return nil, err
	}

	if fileFound {
		v.OnConfigChange(func(_ fsnotify.Event) {
			// A malformed edit keeps the previous snapshot in place.
			_ = w.reload()
		})
		v.WatchConfig()
	}

	return w, nil
}

// reload re-unmarshals the viper state into a fresh snapshot.
func (w *Watcher) reload() error {
	var cfg Config
	if err := w.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.AutoCloseSeconds <= 0 {
		cfg.AutoCloseSeconds = DefaultAutoCloseSeconds
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = DefaultScanInterval
	}
	if cfg.EvalInterval <= 0 {
		cfg.EvalInterval = DefaultEvalInterval
	}
	if len(cfg.AllowedTags) == 0 {
		cfg.AllowedTags = DefaultAllowedTags
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()
	return nil
}

// Current returns the latest snapshot.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	cfg := w.current
	tags := make([]string, len(cfg.AllowedTags))
	copy(tags, cfg.AllowedTags)
	cfg.AllowedTags = tags
	return cfg
}

// AutoCloseSeconds returns the current time-close dwell threshold.
func (w *Watcher) AutoCloseSeconds() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.AutoCloseSeconds
}
