package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/alfredo-dkl/golden-review-frontend/internal/envutil"
)

// SupportedVersion gates config files to the format this binary understands.
const SupportedVersion = "v1"

// Load reads and validates the config file, resolving env var references
// immediately.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	if config.Version == "" {
		return Config{}, fmt.Errorf("config version is required")
	}
	if !strings.HasPrefix(config.Version, SupportedVersion) {
		return Config{}, fmt.Errorf("unsupported config version: %s", config.Version)
	}

	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func applyDefaults(config *Config) {
	if config.Auth.AllowedDomain == "" {
		config.Auth.AllowedDomain = DefaultAllowedDomain
	}
	if len(config.Auth.Scopes) == 0 {
		config.Auth.Scopes = DefaultLoginScopes
	}
}

// Validate checks the config for missing or malformed fields.
func Validate(config *Config) error {
	if config.Auth.TenantID == "" {
		return fmt.Errorf("auth.tenantId is required")
	}
	if config.Auth.ClientID == "" {
		return fmt.Errorf("auth.clientId is required")
	}
	if config.Auth.RedirectURI == "" {
		return fmt.Errorf("auth.redirectUri is required")
	}
	if err := validateURL("auth.redirectUri", config.Auth.RedirectURI); err != nil {
		return err
	}
	if config.Auth.PostLogoutRedirectURI != "" {
		if err := validateURL("auth.postLogoutRedirectUri", config.Auth.PostLogoutRedirectURI); err != nil {
			return err
		}
	}
	if config.API.BaseURL == "" {
		return fmt.Errorf("api.baseURL is required")
	}
	if err := validateURL("api.baseURL", config.API.BaseURL); err != nil {
		return err
	}
	if config.Auth.AccountCachePath != "" && config.Auth.CacheEncryptionKey == "" && !envutil.IsDev() {
		return fmt.Errorf("auth.cacheEncryptionKey is required when auth.accountCachePath is set")
	}
	return nil
}

func validateURL(field, value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", field, value)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, value)
	}
	return nil
}
