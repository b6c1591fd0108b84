// Package config loads the application configuration from config.yaml and
// CLOVER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// StorageBackend selects where loadables are persisted
type StorageBackend string

const (
	BackendBolt     StorageBackend = "bolt"
	BackendPostgres StorageBackend = "postgres"
	BackendMemory   StorageBackend = "memory"
)

// Config holds all application configuration
type Config struct {
	Site    SiteConfig    `mapstructure:"site"`
	Network NetworkConfig `mapstructure:"network"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Storage StorageConfig `mapstructure:"storage"`
	UI      UIConfig      `mapstructure:"ui"`
	Viewer  ViewerConfig  `mapstructure:"viewer"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SiteConfig locates the imageboard API
type SiteConfig struct {
	ID        int    `mapstructure:"id" validate:"min=1"`
	Name      string `mapstructure:"name" validate:"required"`
	APIURL    string `mapstructure:"api_url" validate:"required,url"`
	MediaURL  string `mapstructure:"media_url" validate:"required,url"`
	MirrorURL string `mapstructure:"mirror_url" validate:"omitempty,url"`
}

// NetworkConfig configures the shared request queue
type NetworkConfig struct {
	Workers   int           `mapstructure:"workers" validate:"min=1,max=32"`
	UserAgent string        `mapstructure:"user_agent" validate:"required"`
	Proxy     string        `mapstructure:"proxy" validate:"omitempty,url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// CacheConfig configures the file cache for media
type CacheConfig struct {
	Dir        string `mapstructure:"dir"`
	CapacityMB int64  `mapstructure:"capacity_mb" validate:"min=1"`
}

// StorageConfig selects and configures the loadable store
type StorageConfig struct {
	Backend  StorageBackend `mapstructure:"backend" validate:"oneof=bolt postgres memory"`
	Dir      string         `mapstructure:"dir"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig is used when Backend is postgres
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"min=0,max=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode" validate:"omitempty,oneof=disable require verify-ca verify-full"`
}

// UIConfig holds UI configuration
type UIConfig struct {
	SettingsFile string `mapstructure:"settings_file"`
	DefaultBoard string `mapstructure:"default_board"`
}

// ViewerConfig selects the program downloaded files are opened in
type ViewerConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Command string   `mapstructure:"command"` // empty auto-detects
	Args    []string `mapstructure:"args"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level" validate:"omitempty,oneof=DEBUG INFO WARN WARNING ERROR debug info warn warning error"`
}

// MetricsConfig enables the prometheus endpoint when Addr is set
type MetricsConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:        1,
			Name:      "4chan",
			APIURL:    "https://a.4cdn.org",
			MediaURL:  "https://i.4cdn.org",
			MirrorURL: "https://is2.4chan.org",
		},
		Network: NetworkConfig{
			Workers:   4,
			UserAgent: "Clover/1.0",
			Timeout:   30 * time.Second,
		},
		Cache: CacheConfig{
			Dir:        defaultCachePath(),
			CapacityMB: 50,
		},
		Storage: StorageConfig{
			Backend: BackendBolt,
			Dir:     defaultDataPath(),
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				User:    "clover",
				DBName:  "clover",
				SSLMode: "disable",
			},
		},
		UI: UIConfig{
			SettingsFile: filepath.Join(defaultConfigPath(), "settings.toml"),
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "clover.log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "clover")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "clover")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "clover")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "clover")
	}
}

// defaultCachePath returns the default cache directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "clover", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".cache", "clover")
	}
}

// DefaultConfigFile returns the path LoadConfig reads when given none
func DefaultConfigFile() string {
	return filepath.Join(defaultConfigPath(), "config.yaml")
}

// keyValues flattens cfg into viper keys. Used for defaults and for saving,
// so every key is known to viper and can be overridden from the environment.
func keyValues(cfg *Config) map[string]any {
	return map[string]any{
		"site.id":         cfg.Site.ID,
		"site.name":       cfg.Site.Name,
		"site.api_url":    cfg.Site.APIURL,
		"site.media_url":  cfg.Site.MediaURL,
		"site.mirror_url": cfg.Site.MirrorURL,

		"network.workers":    cfg.Network.Workers,
		"network.user_agent": cfg.Network.UserAgent,
		"network.proxy":      cfg.Network.Proxy,
		"network.timeout":    cfg.Network.Timeout.String(),

		"cache.dir":         cfg.Cache.Dir,
		"cache.capacity_mb": cfg.Cache.CapacityMB,

		"storage.backend":           string(cfg.Storage.Backend),
		"storage.dir":               cfg.Storage.Dir,
		"storage.postgres.host":     cfg.Storage.Postgres.Host,
		"storage.postgres.port":     cfg.Storage.Postgres.Port,
		"storage.postgres.user":     cfg.Storage.Postgres.User,
		"storage.postgres.password": cfg.Storage.Postgres.Password,
		"storage.postgres.dbname":   cfg.Storage.Postgres.DBName,
		"storage.postgres.sslmode":  cfg.Storage.Postgres.SSLMode,

		"ui.settings_file": cfg.UI.SettingsFile,
		"ui.default_board": cfg.UI.DefaultBoard,

		"viewer.enabled": cfg.Viewer.Enabled,
		"viewer.command": cfg.Viewer.Command,
		"viewer.args":    cfg.Viewer.Args,

		"logging.file":  cfg.Logging.File,
		"logging.level": cfg.Logging.Level,

		"metrics.addr": cfg.Metrics.Addr,
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CLOVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range keyValues(DefaultConfig()) {
		v.SetDefault(k, val)
	}
	return v
}

// LoadConfig loads configuration from file and environment. An empty path
// searches the default config directory and the working directory.
func LoadConfig(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Storage.Backend == BackendPostgres && c.Storage.Postgres.Host == "" {
		return errors.New("invalid config: storage.postgres.host is required for the postgres backend")
	}
	if c.Storage.Backend == BackendBolt && c.Storage.Dir == "" {
		return errors.New("invalid config: storage.dir is required for the bolt backend")
	}
	return nil
}

func (c *Config) expandPaths() {
	for _, p := range []*string{&c.Cache.Dir, &c.Storage.Dir, &c.UI.SettingsFile, &c.Logging.File} {
		*p = ExpandHome(*p)
	}
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// SaveConfig writes cfg to path, or to the default config file when path is empty
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigFile()
	}

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	for k, val := range keyValues(cfg) {
		v.Set(k, val)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ClearCache removes all cached media
func (c *Config) ClearCache() error {
	if err := os.RemoveAll(c.Cache.Dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
