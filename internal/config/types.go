package config

// SourceType selects where doc set scripts are read from.
type SourceType string

const (
	SourceDir    SourceType = "dir"
	SourceSQLite SourceType = "sqlite"
)

// Normalization selects how names are turned into search keys.
type Normalization string

const (
	NormalizationDoxygen Normalization = "doxygen"
	NormalizationFold    Normalization = "fold"
)

// Routing selects which shards a query requests.
type Routing string

const (
	RoutingAll         Routing = "all"
	RoutingLeadingChar Routing = "leading-char"
)

// Config is the top-level docnav configuration, loaded from .docnav.yml.
type Config struct {
	DocsDir  string       `yaml:"docs_dir" koanf:"docs_dir"`
	Source   SourceType   `yaml:"source" koanf:"source"`
	Database string       `yaml:"database" koanf:"database"`
	Search   SearchConfig `yaml:"search" koanf:"search"`
	Sync     SyncConfig   `yaml:"sync" koanf:"sync"`
	Server   ServerConfig `yaml:"server" koanf:"server"`
	Watch    bool         `yaml:"watch" koanf:"watch"`
}

// SearchConfig controls shard discovery and query evaluation.
type SearchConfig struct {
	Shards        []string      `yaml:"shards" koanf:"shards"`
	Exclude       []string      `yaml:"exclude" koanf:"exclude"`
	Normalization Normalization `yaml:"normalization" koanf:"normalization"`
	Routing       Routing       `yaml:"routing" koanf:"routing"`
}

// SyncConfig controls the tree/content synchroniser. Empty labels fall back
// to the captions shipped with the doc set.
type SyncConfig struct {
	EnabledLabel  string `yaml:"enabled_label,omitempty" koanf:"enabled_label"`
	DisabledLabel string `yaml:"disabled_label,omitempty" koanf:"disabled_label"`
	PageFallback  bool   `yaml:"page_fallback" koanf:"page_fallback"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
