// Package config handles erdep configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/IgorPritula/entity-ref-dependency/internal/logging"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
)

// ErrUnknownDriver indicates an unsupported [database] driver.
var ErrUnknownDriver = errors.New("unknown database driver")

// Config represents the erdep configuration file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Content  ContentConfig  `toml:"content"`
	Cascade  CascadeConfig  `toml:"cascade"`
	Index    IndexConfig    `toml:"index"`
	Worker   WorkerConfig   `toml:"worker"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`

	// path is the file the config was loaded from; relative paths resolve
	// against its directory.
	path string
}

// DatabaseConfig selects the backing database.
type DatabaseConfig struct {
	// Driver is "sqlite" (local file) or "libsql" (remote).
	Driver string `toml:"driver"`
	// DSN is a file path for sqlite or a URL for libsql.
	DSN string `toml:"dsn"`
}

// ContentConfig locates the content model.
type ContentConfig struct {
	Model string `toml:"model"`
}

// CascadeConfig holds the operator's cascade delete settings.
type CascadeConfig struct {
	AllowCascadeDelete bool     `toml:"allow_cascade_delete"`
	AllowedEntityTypes []string `toml:"allowed_entity_types"`
	MaxDepth           int      `toml:"max_depth"`
}

// IndexConfig tunes indexing.
type IndexConfig struct {
	PageSize int `toml:"page_size"`
	// TargetTypes limits indexing to references pointing at these types.
	TargetTypes []string `toml:"target_types"`
}

// WorkerConfig tunes the deferred delete worker.
type WorkerConfig struct {
	Interval    Duration `toml:"interval"`
	TimeBudget  Duration `toml:"time_budget"`
	Lease       Duration `toml:"lease"`
	MaxAttempts int      `toml:"max_attempts"`
	Concurrency int      `toml:"concurrency"`
}

// ServerConfig configures `erdep serve`.
type ServerConfig struct {
	Addr        string   `toml:"addr"`
	CORSOrigins []string `toml:"cors_origins"`
}

// LogConfig configures diagnostics on stderr.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "erdep.db"},
		Content:  ContentConfig{Model: "content_model.yaml"},
		Cascade:  CascadeConfig{MaxDepth: 64},
		Index:    IndexConfig{PageSize: 50},
		Worker: WorkerConfig{
			Interval:    Duration{10 * time.Second},
			TimeBudget:  Duration{10 * time.Second},
			Lease:       Duration{time.Minute},
			MaxAttempts: 5,
			Concurrency: 1,
		},
		Server: ServerConfig{Addr: "127.0.0.1:8089"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load loads the configuration from path, or from DefaultPath when path is
// empty. Returns the defaults if the file doesn't exist.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		cfg.path = path
		return cfg, nil
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from a specific path. Keys absent from
// the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.path = path
	cfg.Cascade.AllowedEntityTypes = normalizeTypes(cfg.Cascade.AllowedEntityTypes)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultPath returns the default config file path: the user config
// directory's erdep/config.toml when it exists, else ./erdep.toml.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		p := filepath.Join(dir, "erdep", "config.toml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "erdep.toml"
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "libsql":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if c.Index.PageSize <= 0 {
		return fmt.Errorf("index.page_size must be positive, got %d", c.Index.PageSize)
	}
	if c.Cascade.MaxDepth < 0 {
		return fmt.Errorf("cascade.max_depth must not be negative, got %d", c.Cascade.MaxDepth)
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("worker.concurrency must be at least 1, got %d", c.Worker.Concurrency)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// Resolve makes a relative path relative to the config file's directory.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.path == "" {
		return p
	}
	return filepath.Join(filepath.Dir(c.path), filepath.FromSlash(p))
}

// DatabaseDSN returns the DSN with sqlite paths resolved.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Resolve(c.Database.DSN)
	}
	return c.Database.DSN
}

// ModelPath returns the resolved content model path.
func (c *Config) ModelPath() string {
	return c.Resolve(c.Content.Model)
}

// AllowedTypes returns the cascade allow-list as a set.
func (c *Config) AllowedTypes() model.TypeSet {
	return model.NewTypeSet(c.Cascade.AllowedEntityTypes...)
}

// SetCascade turns cascade deletion on or off.
func (c *Config) SetCascade(enabled bool) {
	c.Cascade.AllowCascadeDelete = enabled
}

// Allow adds entity types to the cascade allow-list and returns the ones
// that were not already present.
func (c *Config) Allow(types ...string) []string {
	set := c.AllowedTypes()
	var added []string
	for _, t := range normalizeTypes(types) {
		if !set.Has(t) {
			set[t] = struct{}{}
			added = append(added, t)
		}
	}
	c.Cascade.AllowedEntityTypes = set.Sorted()
	return added
}

// Disallow removes entity types from the cascade allow-list and returns the
// ones that were present.
func (c *Config) Disallow(types ...string) []string {
	set := c.AllowedTypes()
	var removed []string
	for _, t := range normalizeTypes(types) {
		if set.Has(t) {
			delete(set, t)
			removed = append(removed, t)
		}
	}
	c.Cascade.AllowedEntityTypes = set.Sorted()
	return removed
}

func normalizeTypes(types []string) []string {
	return model.NewTypeSet(types...).Sorted()
}

// Duration is a time.Duration that reads and writes TOML strings like "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// CreateDefault writes a commented config file if none exists.
func CreateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := `# erdep configuration

[database]
# "sqlite" (local file) or "libsql" (remote, e.g. libsql://db.example.turso.io?authToken=...)
driver = "sqlite"
dsn = "erdep.db"

[content]
model = "content_model.yaml"

[cascade]
allow_cascade_delete = false
allowed_entity_types = []
max_depth = 64

[index]
page_size = 50
# Only index references pointing at these types (empty = all).
target_types = []

[worker]
interval = "10s"
time_budget = "10s"
lease = "1m"
max_attempts = 5
concurrency = 1

[server]
addr = "127.0.0.1:8089"
cors_origins = []

[log]
level = "info"
format = "text"
`
	if err := os.WriteFile(path, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
