package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/manifoldco/promptui"
)

// docsDirCandidates are the usual places Doxygen is configured to write HTML.
var docsDirCandidates = []string{
	"doc/html",
	"docs/html",
	"html",
	"build/doc/html",
	"build/docs/html",
}

// detectDocsDir returns the first candidate directory that holds a
// navigation tree script.
func detectDocsDir() string {
	for _, dir := range docsDirCandidates {
		if _, err := os.Stat(filepath.Join(dir, "navtreedata.js")); err == nil {
			return dir
		}
	}
	return ""
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .docnav.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to docnav! Let's configure your doc set.")
	fmt.Println()

	cfg := DefaultConfig()

	detected := detectDocsDir()
	if detected != "" {
		fmt.Printf("Found Doxygen output in %s\n\n", detected)
		cfg.DocsDir = detected
	}

	// 1. Docs directory.
	docsPrompt := promptui.Prompt{
		Label:   "Doxygen HTML directory",
		Default: cfg.DocsDir,
	}
	docsDir, err := docsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("docs dir: %w", err)
	}
	cfg.DocsDir = trimSpace(docsDir)

	// 2. Source.
	sourcePrompt := promptui.Select{
		Label: "Serve the doc set from",
		Items: []string{
			"dir    - read scripts straight from the docs directory",
			"sqlite - read scripts imported with docnav import",
		},
	}
	sourceIdx, _, err := sourcePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("source selection: %w", err)
	}
	cfg.Source = []SourceType{SourceDir, SourceSQLite}[sourceIdx]

	// 3. Shard routing.
	routingPrompt := promptui.Select{
		Label: "Which shards should a query load",
		Items: []string{
			"all          - every shard on the first query",
			"leading-char - only shards for the query's first letter",
		},
	}
	routingIdx, _, err := routingPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("routing selection: %w", err)
	}
	cfg.Search.Routing = []Routing{RoutingAll, RoutingLeadingChar}[routingIdx]

	// 4. Extra exclude patterns.
	excludePrompt := promptui.Prompt{
		Label:   "Extra shard exclude patterns (comma-separated, leave blank for defaults)",
		Default: "",
	}
	excludeStr, err := excludePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	if excludeStr != "" {
		cfg.Search.Exclude = append(cfg.Search.Exclude, splitAndTrim(excludeStr)...)
	}

	// 5. Port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(trimSpace(s))
			if err != nil || n < 0 {
				return fmt.Errorf("not a port: %s", s)
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(trimSpace(portStr))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Source == SourceSQLite {
		fmt.Printf("\nNote: run docnav import before docnav serve to fill %s.\n", cfg.Database)
	}

	if err := cfg.Save(DefaultFile); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultFile)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			token := trimSpace(s[start:i])
			if token != "" {
				result = append(result, token)
			}
			start = i + 1
		}
	}
	return result
}

func trimSpace(s string) string {
	i, j := 0, len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t') {
		j--
	}
	return s[i:j]
}
