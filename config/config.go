// Package config loads the service configuration from a
// YAML file with environment overrides for secret
// material.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Environment variable names. Secrets can be supplied
// through the environment instead of the config file.
const (
	EnvListen           = "SUBMITD_LISTEN"
	EnvLogLevel         = "SUBMITD_LOG_LEVEL"
	EnvSharedSecret     = "SUBMITD_SHARED_SECRET"
	EnvGitHubPrivateKey = "SUBMITD_GITHUB_PRIVATE_KEY"
	EnvGitLabToken      = "SUBMITD_GITLAB_TOKEN"
)

// Defaults applied when the config file leaves a field
// empty.
const (
	DefaultListen   = "127.0.0.1:8790"
	DefaultLogLevel = "info"
)

// GitHub holds the GitHub App identity and repository
// coordinates.
type GitHub struct {
	// Owner is the user or organisation owning the
	// content repository.
	Owner string `yaml:"owner"`
	// Repo is the repository name (without owner).
	Repo string `yaml:"repo"`
	// AppID is the GitHub App identifier.
	AppID string `yaml:"app_id"`
	// InstallationID identifies the app installation
	// on the content repository.
	InstallationID int64 `yaml:"installation_id"`
	// PrivateKeyPath points at the app's RSA private
	// key PEM file.
	PrivateKeyPath string `yaml:"private_key_path"`
	// APIBaseURL overrides the GitHub API base URL.
	APIBaseURL string `yaml:"api_base_url"`

	// PrivateKeyPEM is populated at load time from
	// PrivateKeyPath or the environment. Never set in
	// the file itself.
	PrivateKeyPEM []byte `yaml:"-"`
}

// GitLab holds the GitLab coordinates and token.
type GitLab struct {
	// Host is the GitLab instance base URL.
	Host string `yaml:"host"`
	// Project is the full project path
	// (e.g. "org/project").
	Project string `yaml:"project"`
	// AccessToken authenticates repository calls. Can
	// also come from the environment.
	AccessToken string `yaml:"access_token"`
}

// Submission tunes the orchestrator.
type Submission struct {
	// BranchPrefix is prepended to submission branch
	// names.
	BranchPrefix string `yaml:"branch_prefix"`
	// IndexPath is the repository path of the shared
	// index document.
	IndexPath string `yaml:"index_path"`
	// PRTitle and PRBody are fasttemplate templates
	// for the pull request.
	PRTitle string `yaml:"pr_title"`
	PRBody  string `yaml:"pr_body"`
}

// Config is the full service configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`
	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`
	// SharedSecret, when set, must be presented as a
	// bearer credential on every submission request.
	SharedSecret string `yaml:"shared_secret"`
	// Provider selects the hosting backend: "github"
	// or "gitlab".
	Provider string `yaml:"provider"`
	// JournalPath enables the sqlite submission
	// journal when set.
	JournalPath string `yaml:"journal_path"`

	GitHub     GitHub     `yaml:"github"`
	GitLab     GitLab     `yaml:"gitlab"`
	Submission Submission `yaml:"submission"`
}

// Load reads path, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	const errCtx = "loading config"

	data, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf(
			"%s: parse yaml: %w", errCtx, err,
		)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.loadPrivateKey(); err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}

	if v := os.Getenv(EnvSharedSecret); v != "" {
		c.SharedSecret = v
	}

	if v := os.Getenv(EnvGitLabToken); v != "" {
		c.GitLab.AccessToken = v
	}

	if v := os.Getenv(EnvGitHubPrivateKey); v != "" {
		c.GitHub.PrivateKeyPEM = []byte(v)
	}
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}

	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	if c.Provider == "" {
		c.Provider = "github"
	}
}

// loadPrivateKey reads the key file unless the
// environment already supplied the PEM directly.
func (c *Config) loadPrivateKey() error {
	if len(c.GitHub.PrivateKeyPEM) > 0 ||
		c.GitHub.PrivateKeyPath == "" {
		return nil
	}

	pem, err := os.ReadFile(c.GitHub.PrivateKeyPath) //nolint:gosec // path from config file
	if err != nil {
		return fmt.Errorf(
			"read private key: %w", err,
		)
	}

	c.GitHub.PrivateKeyPEM = pem

	return nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case "github", "gitlab":
		return nil
	default:
		return fmt.Errorf(
			"unknown provider %q", c.Provider,
		)
	}
}
