// Package config loads pagekit settings from the environment or from a YAML
// or TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment variable, e.g. PAGEKIT_REGISTRY_PAGE_DIR.
const EnvPrefix = "PAGEKIT"

// Config holds all pagekit configuration.
type Config struct {
	Registry  RegistryConfig  `yaml:"registry" toml:"registry"`
	Verify    VerifyConfig    `yaml:"verify" toml:"verify"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	NameCache NameCacheConfig `yaml:"name_cache" toml:"name_cache" envconfig:"NAME_CACHE"`
}

// RegistryConfig controls page discovery and object loading.
type RegistryConfig struct {
	PageDir           string `envconfig:"PAGE_DIR" yaml:"page_dir" toml:"page_dir"`
	PagePattern       string `envconfig:"PAGE_PATTERN" default:"**/*.prp" yaml:"page_pattern" toml:"page_pattern"`
	LoadMask          uint8  `envconfig:"LOAD_MASK" default:"255" yaml:"load_mask" toml:"load_mask"`
	PassiveKeys       bool   `envconfig:"PASSIVE_KEYS" default:"false" yaml:"passive_keys" toml:"passive_keys"`
	UseMmap           bool   `envconfig:"USE_MMAP" default:"true" yaml:"use_mmap" toml:"use_mmap"`
	RenameDuplicates  bool   `envconfig:"RENAME_DUPLICATES" default:"false" yaml:"rename_duplicates" toml:"rename_duplicates"`
	MaxRenameAttempts int    `envconfig:"MAX_RENAME_ATTEMPTS" default:"16" yaml:"max_rename_attempts" toml:"max_rename_attempts"`
	LocalOwnerID      uint32 `envconfig:"LOCAL_OWNER_ID" default:"1" yaml:"local_owner_id" toml:"local_owner_id"`
	Release           bool   `envconfig:"RELEASE" default:"false" yaml:"release" toml:"release"`
}

// VerifyConfig is the policy applied by the page verification pass.
type VerifyConfig struct {
	DeleteBadPages bool `envconfig:"DELETE_BAD_PAGES" default:"false" yaml:"delete_bad_pages" toml:"delete_bad_pages"`
	WarnNewerPages bool `envconfig:"WARN_NEWER_PAGES" default:"true" yaml:"warn_newer_pages" toml:"warn_newer_pages"`
	DeepVerify     bool `envconfig:"DEEP" default:"false" yaml:"deep" toml:"deep"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool   `envconfig:"DEV" default:"false" yaml:"development" toml:"development"`
}

// NameCacheConfig sizes the shared name decode cache.
type NameCacheConfig struct {
	Capacity int `envconfig:"CAPACITY" default:"8192" yaml:"capacity" toml:"capacity"`
}

// ErrUnknownFormat is returned by LoadFile for unrecognized extensions.
var ErrUnknownFormat = errors.New("config: unknown file format")

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Registry: RegistryConfig{
			PagePattern:       "**/*.prp",
			LoadMask:          0xFF,
			UseMmap:           true,
			MaxRenameAttempts: 16,
			LocalOwnerID:      1,
		},
		Verify: VerifyConfig{
			WarnNewerPages: true,
		},
		Logging: LogConfig{
			Level: "info",
		},
		NameCache: NameCacheConfig{
			Capacity: 8192,
		},
	}
}

// Load loads configuration from PAGEKIT_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile reads a YAML (.yaml, .yml) or TOML (.toml) file over the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the registry cannot run with.
func (c *Config) Validate() error {
	if c.Registry.MaxRenameAttempts < 0 {
		return fmt.Errorf("config: max_rename_attempts must be >= 0, got %d", c.Registry.MaxRenameAttempts)
	}
	if c.Registry.LoadMask == 0 {
		return errors.New("config: load_mask 0 would load nothing")
	}
	if c.NameCache.Capacity < 0 {
		return fmt.Errorf("config: name cache capacity must be >= 0, got %d", c.NameCache.Capacity)
	}
	return nil
}
