package config

// DefaultFile is the config file docnav looks for in the working directory.
const DefaultFile = ".docnav.yml"

// DefaultShards matches Doxygen's search shard scripts.
var DefaultShards = []string{"search/*.js"}

// DefaultExcludes lists the scripts under search/ that are not shards.
var DefaultExcludes = []string{
	"search/search.js",
	"search/searchdata.js",
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DocsDir:  "doc/html",
		Source:   SourceDir,
		Database: ".docnav/docset.db",
		Search: SearchConfig{
			Shards:        append([]string(nil), DefaultShards...),
			Exclude:       append([]string(nil), DefaultExcludes...),
			Normalization: NormalizationDoxygen,
			Routing:       RoutingAll,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Watch: true,
	}
}
