package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// RepoOwner and RepoName identify the GitHub repository pages are
	// published to via the contents API.
	RepoOwner string `json:"repo_owner"`
	RepoName  string `json:"repo_name"`

	// RepoFolder is the path prefix inside the repository under which
	// published files are written.
	RepoFolder string `json:"repo_folder"`

	// RepoBranch is the target branch for publish commits.
	RepoBranch string `json:"repo_branch"`

	// BaseURL is the public URL prefix for published pages. The public
	// URL of a page is BaseURL + "/" + slug + ".html".
	BaseURL string `json:"base_url"`

	// SecretBinID identifies the JSONBin bin holding the GitHub token.
	SecretBinID string `json:"secret_bin_id"`

	// TokenCacheTTLMinutes is how long a fetched token stays cached.
	TokenCacheTTLMinutes int `json:"token_cache_ttl_minutes,omitempty"`

	// Model is the generation model identifier.
	Model string `json:"model,omitempty"`

	// Bind and Port are the defaults for the web UI server.
	Bind string `json:"bind,omitempty"`
	Port int    `json:"port,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from
	// registration. Unknown tool names are rejected at startup.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// Environment variable names for secrets. Secrets never live in
// config.json.
const (
	EnvAccessKey = "STATICFORGE_ACCESS_KEY" // secret-store access key
	EnvAPIKey    = "GEMINI_API_KEY"         // generation service key
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		RepoOwner:            "tehewdev",
		RepoName:             "tehew.space",
		RepoFolder:           "testeHTML",
		RepoBranch:           "main",
		BaseURL:              "https://tehew.space/testeHTML",
		SecretBinID:          "690bda10ae596e708f473581",
		TokenCacheTTLMinutes: 15,
		Model:                "gemini-2.5-flash",
		Bind:                 "127.0.0.1",
		Port:                 8374,
	}
}

// AccessKey returns the secret-store access key from the environment.
func (c *Config) AccessKey() string {
	return os.Getenv(EnvAccessKey)
}

// APIKey returns the generation service API key from the environment.
func (c *Config) APIKey() string {
	return os.Getenv(EnvAPIKey)
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of
// ~/.staticforge.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and
// deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.RepoOwner = overlayString(base.RepoOwner, overlay.RepoOwner)
	result.RepoName = overlayString(base.RepoName, overlay.RepoName)
	result.RepoFolder = overlayString(base.RepoFolder, overlay.RepoFolder)
	result.RepoBranch = overlayString(base.RepoBranch, overlay.RepoBranch)
	result.BaseURL = overlayString(base.BaseURL, overlay.BaseURL)
	result.SecretBinID = overlayString(base.SecretBinID, overlay.SecretBinID)
	result.Model = overlayString(base.Model, overlay.Model)
	result.Bind = overlayString(base.Bind, overlay.Bind)

	result.TokenCacheTTLMinutes = overlay.TokenCacheTTLMinutes
	if result.TokenCacheTTLMinutes == 0 {
		result.TokenCacheTTLMinutes = base.TokenCacheTTLMinutes
	}

	result.Port = overlay.Port
	if result.Port == 0 {
		result.Port = base.Port
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// overlayString returns the overlay value if non-empty, else the base.
func overlayString(base, overlay string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes
// duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
