package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// UnmarshalJSON accepts either a plain string or an {"$env": "VAR"} reference,
// resolving the environment variable immediately.
func (s *Secret) UnmarshalJSON(data []byte) error {
	value, err := resolveValue(data)
	if err != nil {
		return err
	}
	*s = Secret(value)
	return nil
}

// resolveValue parses a config value that may be a literal string or an
// environment variable reference of the form {"$env": "VAR_NAME"}.
func resolveValue(data []byte) (string, error) {
	var literal string
	if err := json.Unmarshal(data, &literal); err == nil {
		return literal, nil
	}

	var ref struct {
		Env string `json:"$env"`
	}
	if err := json.Unmarshal(data, &ref); err != nil {
		return "", fmt.Errorf("value must be a string or {\"$env\": \"VAR_NAME\"} reference")
	}
	if ref.Env == "" {
		return "", fmt.Errorf("$env reference missing variable name")
	}
	value, ok := os.LookupEnv(ref.Env)
	if !ok {
		return "", fmt.Errorf("environment variable %s is not set", ref.Env)
	}
	return value, nil
}

// AuthConfig configures the Microsoft Entra ID identity client.
type AuthConfig struct {
	TenantID              string   `json:"tenantId"`
	ClientID              string   `json:"clientId"`
	ClientSecret          Secret   `json:"clientSecret,omitempty"`
	RedirectURI           string   `json:"redirectUri"`
	PostLogoutRedirectURI string   `json:"postLogoutRedirectUri,omitempty"`
	AllowedDomain         string   `json:"allowedDomain,omitempty"`
	Scopes                []string `json:"scopes,omitempty"`
	AccountCachePath      string   `json:"accountCachePath,omitempty"`
	CacheEncryptionKey    Secret   `json:"cacheEncryptionKey,omitempty"`
}

// APIConfig configures the backend API client.
type APIConfig struct {
	BaseURL string        `json:"baseURL"`
	Timeout time.Duration `json:"-"`
}

// UnmarshalJSON parses the timeout duration string.
func (a *APIConfig) UnmarshalJSON(data []byte) error {
	type rawAPI struct {
		BaseURL string `json:"baseURL"`
		Timeout string `json:"timeout,omitempty"`
	}
	var raw rawAPI
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.BaseURL = raw.BaseURL
	if raw.Timeout != "" {
		timeout, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
		a.Timeout = timeout
	}
	return nil
}

// Config is the root configuration for the Golden Review client.
type Config struct {
	Version string     `json:"version"`
	Auth    AuthConfig `json:"auth"`
	API     APIConfig  `json:"api"`
}

// DefaultLoginScopes are requested when the config does not override them.
// User.Read and User.ReadBasic.All cover the Graph profile fetch.
var DefaultLoginScopes = []string{"User.Read", "User.ReadBasic.All", "openid", "profile", "email"}

// DefaultAllowedDomain restricts sign-in to corporate accounts.
const DefaultAllowedDomain = "goldentrust.com"
