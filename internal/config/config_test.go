package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func validEnv() map[string]string {
	return map[string]string{
		"JIRA_URL":       "https://example.atlassian.net",
		"JIRA_USER":      "me@example.com",
		"JIRA_API_TOKEN": "abcd1234secret",
	}
}

func TestFromMap(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
		check   func(*testing.T, *Config)
	}{
		{
			name: "all required fields present",
			env:  validEnv(),
			check: func(t *testing.T, cfg *Config) {
				if cfg.JiraURL != "https://example.atlassian.net" {
					t.Errorf("JiraURL = %s, want https://example.atlassian.net", cfg.JiraURL)
				}
				if cfg.JiraUser != "me@example.com" {
					t.Errorf("JiraUser = %s, want me@example.com", cfg.JiraUser)
				}
				if cfg.RequestTimeout != 30*time.Second {
					t.Errorf("RequestTimeout = %s, want 30s", cfg.RequestTimeout)
				}
				if cfg.UploadTimeout != 60*time.Second {
					t.Errorf("UploadTimeout = %s, want 60s", cfg.UploadTimeout)
				}
				if cfg.MaxResults != 50 {
					t.Errorf("MaxResults = %d, want 50", cfg.MaxResults)
				}
			},
		},
		{
			name: "trailing slash stripped from URL",
			env: map[string]string{
				"JIRA_URL":       "https://example.atlassian.net/",
				"JIRA_USER":      "me@example.com",
				"JIRA_API_TOKEN": "tok",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.JiraURL != "https://example.atlassian.net" {
					t.Errorf("JiraURL = %s, want trailing slash removed", cfg.JiraURL)
				}
			},
		},
		{
			name: "custom timeouts and max results",
			env: func() map[string]string {
				env := validEnv()
				env["JIRA_TIMEOUT_SECONDS"] = "5"
				env["JIRA_UPLOAD_TIMEOUT_SECONDS"] = "120"
				env["JIRA_MAX_RESULTS"] = "10"
				return env
			}(),
			check: func(t *testing.T, cfg *Config) {
				if cfg.RequestTimeout != 5*time.Second {
					t.Errorf("RequestTimeout = %s, want 5s", cfg.RequestTimeout)
				}
				if cfg.UploadTimeout != 120*time.Second {
					t.Errorf("UploadTimeout = %s, want 2m", cfg.UploadTimeout)
				}
				if cfg.MaxResults != 10 {
					t.Errorf("MaxResults = %d, want 10", cfg.MaxResults)
				}
			},
		},
		{
			name: "invalid timeout falls back to default",
			env: func() map[string]string {
				env := validEnv()
				env["JIRA_TIMEOUT_SECONDS"] = "not-a-number"
				return env
			}(),
			check: func(t *testing.T, cfg *Config) {
				if cfg.RequestTimeout != 30*time.Second {
					t.Errorf("RequestTimeout = %s, want default 30s", cfg.RequestTimeout)
				}
			},
		},
		{
			name:    "missing URL",
			env:     map[string]string{"JIRA_USER": "me@example.com", "JIRA_API_TOKEN": "tok"},
			wantErr: "JIRA_URL",
		},
		{
			name:    "missing user",
			env:     map[string]string{"JIRA_URL": "https://x.atlassian.net", "JIRA_API_TOKEN": "tok"},
			wantErr: "JIRA_USER",
		},
		{
			name:    "missing token",
			env:     map[string]string{"JIRA_URL": "https://x.atlassian.net", "JIRA_USER": "me@example.com"},
			wantErr: "JIRA_API_TOKEN",
		},
		{
			name: "URL without scheme",
			env: map[string]string{
				"JIRA_URL":       "example.atlassian.net",
				"JIRA_USER":      "me@example.com",
				"JIRA_API_TOKEN": "tok",
			},
			wantErr: "http",
		},
		{
			name: "whitespace-only token counts as missing",
			env: map[string]string{
				"JIRA_URL":       "https://x.atlassian.net",
				"JIRA_USER":      "me@example.com",
				"JIRA_API_TOKEN": "   ",
			},
			wantErr: "JIRA_API_TOKEN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromMap(tt.env)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("FromMap() error = nil, want error mentioning %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("FromMap() error = %v, want mention of %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromMap() unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestMissingVars(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want []string
	}{
		{name: "nothing set", env: map[string]string{}, want: []string{"JIRA_URL", "JIRA_USER", "JIRA_API_TOKEN"}},
		{name: "all set", env: validEnv(), want: nil},
		{
			name: "token missing",
			env:  map[string]string{"JIRA_URL": "https://x", "JIRA_USER": "u"},
			want: []string{"JIRA_API_TOKEN"},
		},
		{
			name: "url and token missing",
			env:  map[string]string{"JIRA_USER": "u"},
			want: []string{"JIRA_URL", "JIRA_API_TOKEN"},
		},
		{
			name: "empty values count as missing",
			env:  map[string]string{"JIRA_URL": "", "JIRA_USER": "u", "JIRA_API_TOKEN": ""},
			want: []string{"JIRA_URL", "JIRA_API_TOKEN"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissingVars(tt.env)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MissingVars() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRedactToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"abcd1234secret", "abcd****"},
		{"abcde", "abcd****"},
		{"abcd", "****"},
		{"ab", "****"},
		{"", "****"},
	}

	for _, tt := range tests {
		if got := RedactToken(tt.token); got != tt.want {
			t.Errorf("RedactToken(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestSummaryNeverContainsFullToken(t *testing.T) {
	cfg, err := FromMap(validEnv())
	if err != nil {
		t.Fatalf("FromMap() unexpected error: %v", err)
	}

	summary := cfg.Summary()
	if strings.Contains(summary, "abcd1234secret") {
		t.Fatalf("Summary() leaked full token: %s", summary)
	}
	if !strings.Contains(summary, "abcd****") {
		t.Errorf("Summary() = %s, want redacted token abcd****", summary)
	}
	if !strings.Contains(summary, "https://example.atlassian.net") || !strings.Contains(summary, "me@example.com") {
		t.Errorf("Summary() = %s, want full URL and user", summary)
	}
}

func TestEnvironMap(t *testing.T) {
	got := EnvironMap([]string{"A=1", "B=two=parts", "noequals", "=empty", "C="})
	want := map[string]string{"A": "1", "B": "two=parts", "C": ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EnvironMap() = %v, want %v", got, want)
	}
}
