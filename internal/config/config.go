package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides. Nested keys use a double
// underscore: DOCNAV_SERVER__PORT sets server.port.
const EnvPrefix = "DOCNAV_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (DOCNAV_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// DOCNAV_DOCS_DIR -> docs_dir, DOCNAV_SEARCH__ROUTING -> search.routing.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
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

var validSources = map[SourceType]bool{
	SourceDir:    true,
	SourceSQLite: true,
}

var validNormalizations = map[Normalization]bool{
	NormalizationDoxygen: true,
	NormalizationFold:    true,
}

var validRoutings = map[Routing]bool{
	RoutingAll:         true,
	RoutingLeadingChar: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.DocsDir == "" {
		return fmt.Errorf("docs_dir is required")
	}

	if !validSources[c.Source] {
		return fmt.Errorf("invalid source %q: must be one of dir, sqlite", c.Source)
	}
	if c.Source == SourceSQLite && c.Database == "" {
		return fmt.Errorf("database is required when source is sqlite")
	}

	if len(c.Search.Shards) == 0 {
		return fmt.Errorf("search.shards needs at least one pattern")
	}
	if !validNormalizations[c.Search.Normalization] {
		return fmt.Errorf("invalid search.normalization %q: must be one of doxygen, fold", c.Search.Normalization)
	}
	if !validRoutings[c.Search.Routing] {
		return fmt.Errorf("invalid search.routing %q: must be one of all, leading-char", c.Search.Routing)
	}

	if c.Server.Port < 0 {
		return fmt.Errorf("server.port must be non-negative")
	}

	return nil
}
