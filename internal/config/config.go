package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the suggestd service
type Config struct {
	// Server settings
	Port int

	// Target repository
	RepoOwner  string
	RepoName   string
	BaseBranch string

	// GitHub auth: either a personal access token or GitHub App credentials
	GitHubToken      string
	GitHubAppID      string
	GitHubPrivateKey string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnvInt("PORT", 8000),
		RepoOwner:        os.Getenv("REPO_OWNER"),
		RepoName:         os.Getenv("REPO_NAME"),
		BaseBranch:       getEnv("BASE_BRANCH", "main"),
		GitHubToken:      os.Getenv("GITHUB_TOKEN"),
		GitHubAppID:      os.Getenv("GITHUB_APP_ID"),
		GitHubPrivateKey: normalizePrivateKey(os.Getenv("GITHUB_PRIVATE_KEY")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Repo returns the owner/name form of the target repository.
func (c *Config) Repo() string {
	return c.RepoOwner + "/" + c.RepoName
}

// UseAppAuth reports whether GitHub App credentials are configured. A
// static token takes precedence when both are present.
func (c *Config) UseAppAuth() bool {
	return c.GitHubToken == "" && c.GitHubAppID != ""
}

// validate checks that all required configuration is present
func (c *Config) validate() error {
	if c.RepoOwner == "" {
		return fmt.Errorf("REPO_OWNER is required")
	}
	if c.RepoName == "" {
		return fmt.Errorf("REPO_NAME is required")
	}
	if c.GitHubToken == "" {
		if c.GitHubAppID == "" {
			return fmt.Errorf("either GITHUB_TOKEN or GITHUB_APP_ID/GITHUB_PRIVATE_KEY is required")
		}
		if c.GitHubPrivateKey == "" {
			return fmt.Errorf("GITHUB_PRIVATE_KEY is required when GITHUB_APP_ID is set")
		}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	return nil
}

// normalizePrivateKey cleans up PEM blobs that arrive through env files:
// surrounding quotes, CRLF line endings, and literal \n escapes.
func normalizePrivateKey(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "\"") && strings.HasSuffix(trimmed, "\"") {
		trimmed = strings.TrimPrefix(trimmed, "\"")
		trimmed = strings.TrimSuffix(trimmed, "\"")
	}
	if strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'") {
		trimmed = strings.TrimPrefix(trimmed, "'")
		trimmed = strings.TrimSuffix(trimmed, "'")
	}

	trimmed = strings.ReplaceAll(trimmed, "\r\n", "\n")
	trimmed = strings.ReplaceAll(trimmed, "\r", "\n")
	if strings.Contains(trimmed, "\\n") {
		trimmed = strings.ReplaceAll(trimmed, "\\r", "")
		trimmed = strings.ReplaceAll(trimmed, "\\n", "\n")
	}

	return trimmed
}

// getEnv gets environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
