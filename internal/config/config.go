package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/dshills/apidocs/internal/searcher"
)

// DefaultPath is the configuration file looked up in the working directory
const DefaultPath = ".apidocs.yml"

// EnvPrefix prefixes every environment override
const EnvPrefix = "APIDOCS_"

// Config is the top-level apidocs configuration, corresponding to .apidocs.yml.
type Config struct {
	ReleasesDir    string       `yaml:"releases_dir" koanf:"releases_dir"`
	ReleasePattern string       `yaml:"release_pattern" koanf:"release_pattern"`
	DBPath         string       `yaml:"db_path" koanf:"db_path"`
	Workers        int          `yaml:"workers" koanf:"workers"`
	Verbose        bool         `yaml:"verbose" koanf:"verbose"`
	Search         SearchConfig `yaml:"search" koanf:"search"`
	HTTP           HTTPConfig   `yaml:"http" koanf:"http"`
}

// SearchConfig holds search defaults and result cache settings.
type SearchConfig struct {
	Limit     int           `yaml:"limit" koanf:"limit"`
	CacheSize int           `yaml:"cache_size" koanf:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl" koanf:"cache_ttl"`
}

// HTTPConfig holds settings for the JSON API server.
type HTTPConfig struct {
	Addr            string `yaml:"addr" koanf:"addr"`
	AllowAllOrigins bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// DefaultConfig returns the configuration used when no file or override is present.
func DefaultConfig() *Config {
	return &Config{
		ReleasesDir:    "releases",
		ReleasePattern: "**/*.md",
		DBPath:         ".apidocs/index.db",
		Search: SearchConfig{
			Limit:     searcher.DefaultLimit,
			CacheSize: searcher.DefaultCacheSize,
			CacheTTL:  searcher.DefaultCacheTTL,
		},
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (APIDOCS_*). A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// APIDOCS_DB_PATH -> db_path, APIDOCS_SEARCH_LIMIT -> search.limit
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// sections are the nested config groups addressable from the environment
var sections = []string{"search", "http"}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range sections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return section + "." + rest
		}
	}
	return key
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.ReleasesDir == "" {
		return fmt.Errorf("releases_dir is required")
	}
	if c.ReleasePattern == "" {
		return fmt.Errorf("release_pattern is required")
	}
	if !doublestar.ValidatePattern(c.ReleasePattern) {
		return fmt.Errorf("invalid release_pattern %q", c.ReleasePattern)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}
	if c.Search.Limit < 1 || c.Search.Limit > searcher.MaxLimit {
		return fmt.Errorf("search.limit must be between 1 and %d", searcher.MaxLimit)
	}
	if c.Search.CacheSize < 1 {
		return fmt.Errorf("search.cache_size must be positive")
	}
	if c.Search.CacheTTL <= 0 {
		return fmt.Errorf("search.cache_ttl must be positive")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	return nil
}

// SearchOptions converts the search settings into searcher options
func (c *Config) SearchOptions() *searcher.Options {
	return &searcher.Options{
		CacheSize: c.Search.CacheSize,
		CacheTTL:  c.Search.CacheTTL,
	}
}
