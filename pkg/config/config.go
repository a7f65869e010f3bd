package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

const (
	xdgAppName = "gradesync"
	configFile = "config.yaml"
	envPrefix  = "GRADESYNC"

	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

type Config struct {
	TaskList string      `mapstructure:"task_list"`
	Store    StoreConfig `mapstructure:"store"`
	Sync     SyncConfig  `mapstructure:"sync"`
	Due      DueConfig   `mapstructure:"due"`
	LogFile  string      `mapstructure:"log_file"`
	Log      LogConfig   `mapstructure:"log"`

	// Dir is the directory the config was loaded from. Credentials, the token
	// and the default store live next to it.
	Dir string `mapstructure:"-"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

type SyncConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	Auto           bool          `mapstructure:"auto"`
	CleanupOrphans bool          `mapstructure:"cleanup_orphans"`
	Dedupe         bool          `mapstructure:"dedupe"`
	Input          string        `mapstructure:"input"`
}

type DueConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type LogConfig struct {
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
}

var defaults = map[string]any{
	"task_list":            "My Tasks",
	"store.backend":        BackendJSON,
	"store.path":           "",
	"sync.interval":        "60m",
	"sync.auto":            true,
	"sync.cleanup_orphans": false,
	"sync.dedupe":          true,
	"sync.input":           "",
	"due.timezone":         "",
	"log_file":             "",
	"log.max_size_mb":      10,
	"log.max_backups":      3,
	"log.max_age_days":     28,
}

// DefaultDir returns ~/.config/gradesync.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath(dir string) string {
	return filepath.Join(dir, configFile)
}

// Keys lists every recognised configuration key.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newViper(dir string) (*viper.Viper, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := readFile(v, dir); err != nil {
		return nil, err
	}
	return v, nil
}

// readFile reads the config file in dir into v. A missing file is not an error.
func readFile(v *viper.Viper, dir string) error {
	v.SetConfigFile(GetConfigPath(dir))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// Load reads the config from dir, applying defaults and GRADESYNC_*
// environment overrides. A missing file is not an error.
func Load(dir string) (*Config, error) {
	v, err := newViper(dir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Dir = dir

	switch cfg.Store.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return nil, fmt.Errorf("unknown store backend %q (want %s or %s)", cfg.Store.Backend, BackendJSON, BackendSQLite)
	}
	if cfg.Store.Path == "" {
		name := "sync.json"
		if cfg.Store.Backend == BackendSQLite {
			name = "sync.db"
		}
		cfg.Store.Path = filepath.Join(dir, name)
	}
	if cfg.Sync.Interval <= 0 {
		cfg.Sync.Interval = time.Hour
	}
	return &cfg, nil
}

// Location resolves due.timezone, falling back to the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Due.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Due.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid due.timezone %q: %w", c.Due.Timezone, err)
	}
	return loc, nil
}

// Set validates value for key and writes it to the config file in dir. Only
// keys already in the file and key itself are written; defaults and
// environment overrides stay out of the file.
func Set(dir, key, value string) error {
	if _, ok := defaults[key]; !ok {
		return fmt.Errorf("unknown config key %q (known keys: %s)", key, strings.Join(Keys(), ", "))
	}
	parsed, err := parseValue(key, value)
	if err != nil {
		return err
	}

	v := viper.New()
	if err := readFile(v, dir); err != nil {
		return err
	}
	v.Set(key, parsed)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(GetConfigPath(dir)); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func parseValue(key, value string) (any, error) {
	switch defaults[key].(type) {
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s expects true or false: %w", key, err)
		}
		return b, nil
	case int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s expects a number: %w", key, err)
		}
		return n, nil
	}

	switch key {
	case "sync.interval":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("sync.interval expects a positive duration such as 30m, got %q", value)
		}
	case "store.backend":
		if value != BackendJSON && value != BackendSQLite {
			return nil, fmt.Errorf("store.backend must be %s or %s", BackendJSON, BackendSQLite)
		}
	case "due.timezone":
		if _, err := time.LoadLocation(value); err != nil {
			return nil, fmt.Errorf("invalid due.timezone %q: %w", value, err)
		}
	}
	return value, nil
}
