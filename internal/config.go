package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/semindex/internal/index"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Default document names inside the metadata directory.
const (
	DefaultIndexFile   = "semantic-index.json"
	DefaultSQLiteFile  = "semantic-index.db"
	DefaultMissLogFile = "miss-log.jsonl"
	LockFile           = ".semindex.lock"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Vault   VaultConfig       `yaml:"vault"`
	Index   IndexConfig       `yaml:"index"`
	MissLog MissLogConfig     `yaml:"misslog"`
	HTTP    HTTPConfig        `yaml:"http"`
	Watch   WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Vault.Validate(); err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	if err := c.Index.Validate(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return c.Watch.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatText, LogFormatJSON)),
	)
}

// VaultConfig describes the note vault and where index metadata lives in it.
type VaultConfig struct {
	Path       string   `yaml:"path"`
	MetaDir    string   `yaml:"meta_dir"`
	Extensions []string `yaml:"extensions"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.MetaDir, validation.Required),
		validation.Field(&c.Extensions, validation.Required),
	)
}

// MetaPath returns the absolute-or-relative metadata directory.
func (c *VaultConfig) MetaPath() string {
	if filepath.IsAbs(c.MetaDir) {
		return c.MetaDir
	}
	return filepath.Join(c.Path, c.MetaDir)
}

// IndexConfig selects the index backend and search defaults.
type IndexConfig struct {
	Backend              string `yaml:"backend"`
	File                 string `yaml:"file"`
	SQLitePath           string `yaml:"sqlite_path"`
	RequireRelatedExists bool   `yaml:"require_related_exists"`
	SearchLimit          int    `yaml:"search_limit"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(index.BackendJSON, index.BackendSQLite)),
		validation.Field(&c.SearchLimit, validation.Required, validation.Min(1)),
	)
}

// MissLogConfig locates the miss log.
type MissLogConfig struct {
	File string `yaml:"file"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// WatchConfig tunes the vault watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watcher configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// IndexPath returns the document path for the configured backend.
func (c *Config) IndexPath() string {
	if c.Index.Backend == index.BackendSQLite {
		return c.resolve(c.Index.SQLitePath, DefaultSQLiteFile)
	}
	return c.resolve(c.Index.File, DefaultIndexFile)
}

// MissLogPath returns the miss log document path.
func (c *Config) MissLogPath() string {
	return c.resolve(c.MissLog.File, DefaultMissLogFile)
}

// LockPath returns the writer lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Vault.MetaPath(), LockFile)
}

// resolve places relative file names inside the metadata directory.
func (c *Config) resolve(configured, fallback string) string {
	if configured == "" {
		configured = fallback
	}
	if filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(c.Vault.MetaPath(), configured)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelWarn,
			LogFormat: LogFormatText,
		},
		Vault: VaultConfig{
			Path:       "memory",
			MetaDir:    "meta",
			Extensions: []string{".md"},
		},
		Index: IndexConfig{
			Backend:     index.BackendJSON,
			SearchLimit: 10,
		},
		HTTP: HTTPConfig{
			Port: 8080,
		},
		Watch: WatchConfig{
			Debounce: index.DefaultDebounce,
		},
	}
}
