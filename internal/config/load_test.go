package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_Valid(t *testing.T) {
	t.Setenv("MS_CLIENT_SECRET", "shh-very-secret")

	path := writeConfig(t, `{
		"version": "v1",
		"auth": {
			"tenantId": "11111111-2222-3333-4444-555555555555",
			"clientId": "golden-review-spa",
			"clientSecret": {"$env": "MS_CLIENT_SECRET"},
			"redirectUri": "http://localhost:53682/auth/callback",
			"postLogoutRedirectUri": "http://localhost:53682/auth/signin"
		},
		"api": {
			"baseURL": "http://localhost:4000",
			"timeout": "30s"
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "golden-review-spa", cfg.Auth.ClientID)
	assert.Equal(t, Secret("shh-very-secret"), cfg.Auth.ClientSecret)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)

	// Defaults applied
	assert.Equal(t, DefaultAllowedDomain, cfg.Auth.AllowedDomain)
	assert.Equal(t, DefaultLoginScopes, cfg.Auth.Scopes)
}

func TestLoad_MissingEnvVar(t *testing.T) {
	path := writeConfig(t, `{
		"version": "v1",
		"auth": {
			"tenantId": "t",
			"clientId": "c",
			"clientSecret": {"$env": "GOLDEN_REVIEW_TEST_UNSET_VAR"},
			"redirectUri": "http://localhost:53682/auth/callback"
		},
		"api": {"baseURL": "http://localhost:4000"}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOLDEN_REVIEW_TEST_UNSET_VAR")
}

func TestLoad_VersionGate(t *testing.T) {
	tests := []struct {
		name        string
		version     string
		expectError string
	}{
		{name: "missing version", version: "", expectError: "config version is required"},
		{name: "wrong version", version: "v2", expectError: "unsupported config version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, `{
				"version": "`+tt.version+`",
				"auth": {"tenantId": "t", "clientId": "c", "redirectUri": "http://localhost/cb"},
				"api": {"baseURL": "http://localhost:4000"}
			}`)

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Version: "v1",
			Auth: AuthConfig{
				TenantID:    "tenant",
				ClientID:    "client",
				RedirectURI: "http://localhost:53682/auth/callback",
			},
			API: APIConfig{BaseURL: "http://localhost:4000"},
		}
	}

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError string
	}{
		{
			name:        "valid",
			mutate:      func(c *Config) {},
			expectError: "",
		},
		{
			name:        "missing tenant",
			mutate:      func(c *Config) { c.Auth.TenantID = "" },
			expectError: "auth.tenantId is required",
		},
		{
			name:        "missing client id",
			mutate:      func(c *Config) { c.Auth.ClientID = "" },
			expectError: "auth.clientId is required",
		},
		{
			name:        "relative redirect uri",
			mutate:      func(c *Config) { c.Auth.RedirectURI = "/auth/callback" },
			expectError: "must be an absolute URL",
		},
		{
			name:        "non-http scheme",
			mutate:      func(c *Config) { c.API.BaseURL = "ftp://localhost:4000" },
			expectError: "must use http or https",
		},
		{
			name:        "missing api base url",
			mutate:      func(c *Config) { c.API.BaseURL = "" },
			expectError: "api.baseURL is required",
		},
		{
			name:        "cache path without encryption key",
			mutate:      func(c *Config) { c.Auth.AccountCachePath = "/tmp/accounts" },
			expectError: "auth.cacheEncryptionKey is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := Validate(&cfg)
			if tt.expectError == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
			}
		})
	}
}
