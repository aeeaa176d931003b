package idp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/alfredo-dkl/golden-review-frontend/internal/crypto"
	"github.com/alfredo-dkl/golden-review-frontend/internal/ioutil"
	"github.com/alfredo-dkl/golden-review-frontend/internal/log"
)

// ErrNotInitialized is returned when an operation runs before Initialize.
var ErrNotInitialized = errors.New("identity client not initialized")

// ErrNoCachedToken is returned by AcquireToken for unknown accounts.
var ErrNoCachedToken = errors.New("no cached token for account")

// DefaultGraphMeURL is the Microsoft Graph profile endpoint.
const DefaultGraphMeURL = "https://graph.microsoft.com/v1.0/me"

// MicrosoftConfig configures the Entra ID client.
type MicrosoftConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string

	// DiscoveryURL overrides the tenant discovery document location (tests).
	DiscoveryURL string
	// GraphMeURL overrides the profile endpoint (tests).
	GraphMeURL string

	// CachePath persists known accounts between runs. Empty keeps the
	// cache in memory only.
	CachePath string
	// Encryptor seals the persisted cache. Required when CachePath is set
	// outside development.
	Encryptor crypto.Encryptor
}

// MicrosoftClient implements Client against Microsoft Entra ID.
type MicrosoftClient struct {
	cfg       MicrosoftConfig
	navigator Navigator
	returns   ReturnSource

	mu            sync.Mutex
	initialized   bool
	oauth         *oauth2.Config
	endSessionURL string
	graphMeURL    string
	cache         *accountCache
	pendingState  string
}

// discoveryDocument is the subset of the OIDC discovery document the client
// needs. Entra ID publishes end_session_endpoint alongside the OAuth ones.
type discoveryDocument struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	EndSessionEndpoint    string `json:"end_session_endpoint"`
	Issuer                string `json:"issuer"`
}

// NewMicrosoftClient creates an Entra ID client. Initialize must be called
// before any other operation.
func NewMicrosoftClient(cfg MicrosoftConfig, navigator Navigator, returns ReturnSource) *MicrosoftClient {
	return &MicrosoftClient{
		cfg:       cfg,
		navigator: navigator,
		returns:   returns,
		cache:     newAccountCache(cfg.CachePath, cfg.Encryptor),
	}
}

// Initialize discovers the tenant endpoints and loads the account cache.
// Idempotent: repeat calls after success are no-ops.
func (c *MicrosoftClient) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}

	discoveryURL := c.cfg.DiscoveryURL
	if discoveryURL == "" {
		if c.cfg.TenantID == "" {
			return fmt.Errorf("tenantId is required for Entra ID")
		}
		discoveryURL = fmt.Sprintf(
			"https://login.microsoftonline.com/%s/v2.0/.well-known/openid-configuration",
			c.cfg.TenantID,
		)
	}

	discovery, err := fetchDiscovery(ctx, discoveryURL)
	if err != nil {
		return fmt.Errorf("failed to fetch tenant discovery: %w", err)
	}

	scopes := c.cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}

	c.oauth = &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  c.cfg.RedirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  discovery.AuthorizationEndpoint,
			TokenURL: discovery.TokenEndpoint,
		},
	}
	c.endSessionURL = discovery.EndSessionEndpoint
	c.graphMeURL = c.cfg.GraphMeURL
	if c.graphMeURL == "" {
		c.graphMeURL = DefaultGraphMeURL
	}

	c.cache.load()
	c.pendingState = c.cache.pendingState
	c.initialized = true

	log.LogDebugWithFields("idp", "Identity client initialized", map[string]any{
		"issuer":   discovery.Issuer,
		"accounts": len(c.cache.list()),
	})
	return nil
}

func fetchDiscovery(ctx context.Context, discoveryURL string) (*discoveryDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery endpoint returned status %d: %s",
			resp.StatusCode, ioutil.ReadLimited(resp.Body, 1024))
	}

	var discovery discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&discovery); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}

	if discovery.AuthorizationEndpoint == "" || discovery.TokenEndpoint == "" {
		return nil, fmt.Errorf("discovery document missing required endpoints")
	}

	return &discovery, nil
}

// BeginLogin builds the hosted-login URL and hands it to the navigator. The
// state parameter survives a process restart via the account cache so the
// redirect return can be validated later.
func (c *MicrosoftClient) BeginLogin(ctx context.Context, req LoginRequest) error {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return ErrNotInitialized
	}

	state, err := crypto.GenerateSecureToken()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to generate state: %w", err)
	}
	c.pendingState = state
	c.cache.setPendingState(state)

	conf := *c.oauth
	if len(req.Scopes) > 0 {
		conf.Scopes = req.Scopes
	}

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if req.Hint != "" {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", req.Hint))
	}
	loginURL := conf.AuthCodeURL(state, opts...)
	c.mu.Unlock()

	log.LogDebugWithFields("idp", "Navigating to hosted login", map[string]any{
		"hint": req.Hint != "",
	})
	return c.navigator.Navigate(ctx, loginURL)
}

// HandleRedirectReturn resolves the redirect return, if any. It validates
// the state parameter, surfaces provider errors, exchanges the code, and
// caches the signed-in account.
func (c *MicrosoftClient) HandleRedirectReturn(ctx context.Context) (*RedirectResult, error) {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return nil, ErrNotInitialized
	}
	conf := *c.oauth
	c.mu.Unlock()

	returnURL, err := c.returns.ReturnURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read redirect return: %w", err)
	}
	if returnURL == nil {
		return nil, nil
	}

	query := returnURL.Query()
	if errCode := query.Get("error"); errCode != "" {
		desc := query.Get("error_description")
		if desc == "" {
			desc = errCode
		}
		return nil, fmt.Errorf("provider returned error %s: %s", errCode, desc)
	}

	code := query.Get("code")
	if code == "" {
		return nil, nil
	}

	c.mu.Lock()
	expected := c.pendingState
	c.pendingState = ""
	c.cache.setPendingState("")
	c.mu.Unlock()

	if expected == "" || query.Get("state") != expected {
		return nil, fmt.Errorf("state parameter mismatch on redirect return")
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	account := accountFromToken(token)

	c.mu.Lock()
	c.cache.put(account, token.RefreshToken)
	c.cache.save()
	c.mu.Unlock()

	log.LogDebugWithFields("idp", "Redirect return handled", map[string]any{
		"username": account.Username,
	})
	return &RedirectResult{Account: account, Token: token}, nil
}

// accountFromToken derives account bookkeeping data from the ID token
// claims. The claims are not signature-verified here: they only label the
// local cache entry, all authorization decisions happen server-side.
func accountFromToken(token *oauth2.Token) Account {
	account := Account{}
	idToken, _ := token.Extra("id_token").(string)
	if claims := parseJWTClaims(idToken); claims != nil {
		account.HomeID, _ = claims["oid"].(string)
		if account.HomeID == "" {
			account.HomeID, _ = claims["sub"].(string)
		}
		account.TenantID, _ = claims["tid"].(string)
		account.Username, _ = claims["preferred_username"].(string)
		if account.Username == "" {
			account.Username, _ = claims["email"].(string)
		}
		account.Name, _ = claims["name"].(string)
	}
	return account
}

func parseJWTClaims(raw string) map[string]any {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}
	return claims
}

// AcquireToken silently exchanges the account's cached refresh token for a
// fresh access token.
func (c *MicrosoftClient) AcquireToken(ctx context.Context, account Account, scopes []string) (*oauth2.Token, error) {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return nil, ErrNotInitialized
	}
	refreshToken := c.cache.refreshToken(account.HomeID)
	conf := *c.oauth
	if len(scopes) > 0 {
		conf.Scopes = scopes
	}
	c.mu.Unlock()

	if refreshToken == "" {
		return nil, ErrNoCachedToken
	}

	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire token silently: %w", err)
	}

	// Entra ID rotates refresh tokens; keep the newest one.
	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		c.mu.Lock()
		c.cache.put(account, token.RefreshToken)
		c.cache.save()
		c.mu.Unlock()
	}
	return token, nil
}

// Profile fetches the Graph /me record for the token.
func (c *MicrosoftClient) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return nil, ErrNotInitialized
	}
	conf := *c.oauth
	graphMeURL := c.graphMeURL
	c.mu.Unlock()

	client := conf.Client(ctx, token)
	resp, err := client.Get(graphMeURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get user profile: status %d: %s",
			resp.StatusCode, ioutil.ReadLimited(resp.Body, 1024))
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode user profile: %w", err)
	}
	return &profile, nil
}

// SignOut forgets the account locally and navigates to the hosted sign-out
// page so the provider-side session ends too.
func (c *MicrosoftClient) SignOut(ctx context.Context, account Account, postLogoutRedirect string) error {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	endSessionURL := c.endSessionURL
	c.cache.remove(account.HomeID)
	c.cache.save()
	c.mu.Unlock()

	if endSessionURL == "" {
		log.LogDebug("Tenant publishes no end_session_endpoint, skipping hosted sign-out")
		return nil
	}

	signOutURL, err := url.Parse(endSessionURL)
	if err != nil {
		return fmt.Errorf("invalid end session endpoint: %w", err)
	}
	query := signOutURL.Query()
	if postLogoutRedirect != "" {
		query.Set("post_logout_redirect_uri", postLogoutRedirect)
	}
	if account.Username != "" {
		query.Set("logout_hint", account.Username)
	}
	signOutURL.RawQuery = query.Encode()

	return c.navigator.Navigate(ctx, signOutURL.String())
}

// ListKnownAccounts returns the locally cached accounts.
func (c *MicrosoftClient) ListKnownAccounts() []Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.list()
}
