package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the JIRA agent tools
type Config struct {
	// JIRA connection settings
	JiraURL      string
	JiraUser     string
	JiraAPIToken string

	// Request settings
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
	MaxResults     int
}

// RequiredVars lists the environment variables that must be present and
// non-empty before the JIRA client can be constructed.
var RequiredVars = []string{"JIRA_URL", "JIRA_USER", "JIRA_API_TOKEN"}

// Load loads configuration from the process environment
func Load() (*Config, error) {
	return FromMap(EnvironMap(os.Environ()))
}

// FromMap builds configuration from an explicit environment map. The launcher
// assembles its environment as a map (dotenv file plus shell profile) before
// any process sees it, so validation runs against the map rather than the
// ambient process state.
func FromMap(env map[string]string) (*Config, error) {
	cfg := &Config{
		JiraURL:        strings.TrimRight(strings.TrimSpace(env["JIRA_URL"]), "/"),
		JiraUser:       strings.TrimSpace(env["JIRA_USER"]),
		JiraAPIToken:   strings.TrimSpace(env["JIRA_API_TOKEN"]),
		RequestTimeout: time.Duration(getInt(env, "JIRA_TIMEOUT_SECONDS", 30)) * time.Second,
		UploadTimeout:  time.Duration(getInt(env, "JIRA_UPLOAD_TIMEOUT_SECONDS", 60)) * time.Second,
		MaxResults:     getInt(env, "JIRA_MAX_RESULTS", 50),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present
func (c *Config) validate() error {
	if c.JiraURL == "" {
		return fmt.Errorf("JIRA_URL is required")
	}
	if !strings.HasPrefix(c.JiraURL, "http://") && !strings.HasPrefix(c.JiraURL, "https://") {
		return fmt.Errorf("JIRA_URL must start with http:// or https://, got %q", c.JiraURL)
	}
	if c.JiraUser == "" {
		return fmt.Errorf("JIRA_USER is required")
	}
	if c.JiraAPIToken == "" {
		return fmt.Errorf("JIRA_API_TOKEN is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("JIRA_TIMEOUT_SECONDS must be greater than 0")
	}
	if c.UploadTimeout <= 0 {
		return fmt.Errorf("JIRA_UPLOAD_TIMEOUT_SECONDS must be greater than 0")
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("JIRA_MAX_RESULTS must be greater than 0")
	}
	return nil
}

// MissingVars returns the required variables that are absent or empty in env.
func MissingVars(env map[string]string) []string {
	var missing []string
	for _, name := range RequiredVars {
		if strings.TrimSpace(env[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// RedactToken masks a credential for display: the first four characters are
// kept, the remainder is replaced with a fixed mask. Tokens of four
// characters or fewer are masked entirely.
func RedactToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}

// Summary returns a single-line description of the connection settings with
// the API token redacted. Safe to print to logs and terminals.
func (c *Config) Summary() string {
	return fmt.Sprintf("url=%s user=%s token=%s", c.JiraURL, c.JiraUser, RedactToken(c.JiraAPIToken))
}

// EnvironMap converts a KEY=VALUE slice (os.Environ form) into a map.
// Entries without '=' or with empty keys are skipped.
func EnvironMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// getInt gets an integer from the environment map with a default value
func getInt(env map[string]string, key string, defaultValue int) int {
	if value := env[key]; value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
