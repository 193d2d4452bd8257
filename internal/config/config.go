// Package config handles loading and managing gmailsql configuration.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

// defaultTokenURI is Google's OAuth2 token endpoint.
const defaultTokenURI = "https://oauth2.googleapis.com/token"

// defaultScope grants read-only mailbox access, which is all the query
// surface needs.
const defaultScope = "https://www.googleapis.com/auth/gmail.readonly"

// Config represents the gmailsql configuration.
type Config struct {
	Gmail  GmailConfig  `toml:"gmail"`
	Fetch  FetchConfig  `toml:"fetch"`
	Server ServerConfig `toml:"server"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// GmailConfig holds the account credential material.
type GmailConfig struct {
	Token        string   `toml:"token"`
	RefreshToken string   `toml:"refresh_token"`
	TokenURI     string   `toml:"token_uri"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	Scopes       []string `toml:"scopes"`
}

// FetchConfig holds remote-call tuning.
type FetchConfig struct {
	RateLimitQPS     float64 `toml:"rate_limit_qps"`
	BatchConcurrency int     `toml:"batch_concurrency"`
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	APIPort int    `toml:"api_port"` // HTTP server port (default: 8080)
	APIKey  string `toml:"api_key"`  // API authentication key, empty disables auth
}

// DefaultHome returns the default gmailsql home directory.
// Respects the GMAILSQL_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("GMAILSQL_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gmailsql"
	}
	return filepath.Join(home, ".gmailsql")
}

// Load reads the configuration from the specified file.
// If path is empty, uses the default location (~/.gmailsql/config.toml).
// GMAIL_* environment variables override file values.
func Load(path string) (*Config, error) {
	homeDir := DefaultHome()

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		Fetch: FetchConfig{
			RateLimitQPS:     5,
			BatchConcurrency: 10,
		},
		Server: ServerConfig{
			APIPort: 8080,
		},
	}

	// Config file is optional - use defaults if not present
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.Gmail.TokenURI == "" {
		cfg.Gmail.TokenURI = defaultTokenURI
	}
	if len(cfg.Gmail.Scopes) == 0 {
		cfg.Gmail.Scopes = []string{defaultScope}
	}

	return cfg, nil
}

// applyEnv overlays GMAIL_* environment variables on the credential config.
func (c *Config) applyEnv() {
	for env, dst := range map[string]*string{
		"GMAIL_TOKEN":         &c.Gmail.Token,
		"GMAIL_REFRESH_TOKEN": &c.Gmail.RefreshToken,
		"GMAIL_TOKEN_URI":     &c.Gmail.TokenURI,
		"GMAIL_CLIENT_ID":     &c.Gmail.ClientID,
		"GMAIL_CLIENT_SECRET": &c.Gmail.ClientSecret,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("GMAIL_SCOPES"); v != "" {
		c.Gmail.Scopes = splitScopes(v)
	}
}

// splitScopes parses a comma-separated scope list.
func splitScopes(s string) []string {
	var scopes []string
	for _, scope := range strings.Split(s, ",") {
		if scope = strings.TrimSpace(scope); scope != "" {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}

// Validate checks that enough credential material is present to build a
// token source.
func (c *Config) Validate() error {
	g := c.Gmail
	if g.Token == "" && g.RefreshToken == "" {
		return fmt.Errorf("gmail credentials not configured: set token or refresh_token (config file or GMAIL_TOKEN / GMAIL_REFRESH_TOKEN)")
	}
	if g.RefreshToken != "" && (g.ClientID == "" || g.ClientSecret == "") {
		return fmt.Errorf("refresh_token requires client_id and client_secret")
	}
	return nil
}

// TokenSource builds an auto-refreshing OAuth2 token source from the
// credential config.
func (c *Config) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken:  c.Gmail.Token,
		RefreshToken: c.Gmail.RefreshToken,
	}

	if c.Gmail.RefreshToken == "" {
		// Static token, no refresh possible
		return oauth2.StaticTokenSource(token), nil
	}

	ocfg := &oauth2.Config{
		ClientID:     c.Gmail.ClientID,
		ClientSecret: c.Gmail.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: c.Gmail.TokenURI},
		Scopes:       c.Gmail.Scopes,
	}
	return ocfg.TokenSource(ctx, token), nil
}
