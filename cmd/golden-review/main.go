package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/alfredo-dkl/golden-review-frontend/internal/apiclient"
	"github.com/alfredo-dkl/golden-review-frontend/internal/config"
	"github.com/alfredo-dkl/golden-review-frontend/internal/crypto"
	"github.com/alfredo-dkl/golden-review-frontend/internal/emailutil"
	"github.com/alfredo-dkl/golden-review-frontend/internal/idp"
	"github.com/alfredo-dkl/golden-review-frontend/internal/log"
	"github.com/alfredo-dkl/golden-review-frontend/internal/loopback"
	"github.com/alfredo-dkl/golden-review-frontend/internal/session"
)

var BuildVersion = "dev"

const loginWaitTimeout = 5 * time.Minute

func generateDefaultConfig(path string) error {
	defaultConfig := map[string]any{
		"version": config.SupportedVersion,
		"auth": map[string]any{
			"tenantId":              map[string]string{"$env": "MS_TENANT_ID"},
			"clientId":              map[string]string{"$env": "MS_CLIENT_ID"},
			"redirectUri":           "http://localhost:53682/auth/callback",
			"postLogoutRedirectUri": "http://localhost:53682/auth/signin",
			"allowedDomain":         config.DefaultAllowedDomain,
			"accountCachePath":      ".golden-review/accounts",
			"cacheEncryptionKey":    map[string]string{"$env": "GOLDEN_REVIEW_CACHE_KEY"},
		},
		"api": map[string]any{
			"baseURL": "http://localhost:4000",
			"timeout": "30s",
		},
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// decodeKey accepts the cache encryption key either as 32 raw bytes or
// base64-encoded.
func decodeKey(value string) ([]byte, error) {
	if len(value) == 32 {
		return []byte(value), nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil && len(decoded) == 32 {
		return decoded, nil
	}
	if decoded, err := base64.URLEncoding.DecodeString(value); err == nil && len(decoded) == 32 {
		return decoded, nil
	}
	return nil, fmt.Errorf("key must be 32 bytes, raw or base64-encoded")
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: golden-review [flags] <command> [command flags]

Commands:
  login     sign in via the Microsoft hosted login page
  whoami    show the current session's user
  logout    end the backend session and sign out of the provider
  policies  list audit policies (new business by default)

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "golden-review.json", "path to config file")
	generate := flag.Bool("generate-config", false, "write a starter config file and exit")
	validate := flag.Bool("validate", false, "validate the config file and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println(BuildVersion)
		return
	}
	if *generate {
		if err := generateDefaultConfig(*configPath); err != nil {
			log.LogError("Failed to generate config: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote starter config to %s\n", *configPath)
		return
	}

	if *validate {
		if _, err := config.Load(*configPath); err != nil {
			log.LogError("Config validation failed: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Config %s is valid\n", *configPath)
		return
	}

	command := flag.Arg(0)
	if command == "" {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	if err := run(context.Background(), cfg, command, flag.Args()[1:]); err != nil {
		log.LogError("Command %s failed: %v", command, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, command string, args []string) error {
	listener, err := loopback.New(cfg.Auth.RedirectURI)
	if err != nil {
		return err
	}
	defer listener.Close()

	var encryptor crypto.Encryptor
	if cfg.Auth.CacheEncryptionKey != "" {
		key, err := decodeKey(string(cfg.Auth.CacheEncryptionKey))
		if err != nil {
			return fmt.Errorf("invalid cache encryption key: %w", err)
		}
		if encryptor, err = crypto.NewEncryptor(key); err != nil {
			return err
		}
	}

	provider := idp.NewMicrosoftClient(idp.MicrosoftConfig{
		TenantID:     cfg.Auth.TenantID,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: string(cfg.Auth.ClientSecret),
		RedirectURI:  cfg.Auth.RedirectURI,
		Scopes:       cfg.Auth.Scopes,
		CachePath:    cfg.Auth.AccountCachePath,
		Encryptor:    encryptor,
	}, listener, listener)

	api, err := apiclient.New(cfg.API.BaseURL, cfg.API.Timeout)
	if err != nil {
		return err
	}

	sessionCfg := session.Config{
		LoginScopes:           cfg.Auth.Scopes,
		PostLogoutRedirectURI: cfg.Auth.PostLogoutRedirectURI,
	}
	coordinator := session.New(provider, api, sessionCfg)

	switch command {
	case "login":
		return runLogin(ctx, cfg, coordinator, listener, provider, api, sessionCfg, args)
	case "whoami":
		return runWhoami(ctx, coordinator)
	case "logout":
		return coordinator.Logout(ctx)
	case "policies":
		return runPolicies(ctx, coordinator, api, args)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func runLogin(ctx context.Context, cfg config.Config, coordinator *session.Coordinator, listener *loopback.Listener, provider idp.Client, api *apiclient.Client, sessionCfg session.Config, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email hint for the hosted login page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email != "" && cfg.Auth.AllowedDomain != "" {
		if emailutil.ExtractDomain(emailutil.Normalize(*email)) != cfg.Auth.AllowedDomain {
			return fmt.Errorf("only @%s accounts are allowed", cfg.Auth.AllowedDomain)
		}
	}

	if err := coordinator.Initialize(ctx); err != nil {
		return err
	}
	if err := listener.Start(); err != nil {
		return err
	}
	if err := coordinator.Login(ctx, *email); err != nil {
		return err
	}

	fmt.Println("Waiting for sign-in to complete in the browser...")
	waitCtx, cancel := context.WithTimeout(ctx, loginWaitTimeout)
	defer cancel()
	if err := listener.Wait(waitCtx); err != nil {
		return err
	}

	// The redirect has landed. Complete the callback the way the callback
	// page would after its reload: a fresh coordinator over the same
	// collaborators initializes, captures the redirect result, and
	// consumes it.
	callbackCoordinator := session.New(provider, api, sessionCfg)
	result, err := callbackCoordinator.HandleCallback(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s (%s)\n", result.User.Fullname, result.User.Email)
	return nil
}

func runWhoami(ctx context.Context, coordinator *session.Coordinator) error {
	user := coordinator.Verify(ctx)
	if user == nil {
		fmt.Println("Not signed in")
		return nil
	}
	fmt.Printf("%s <%s>\n", user.Fullname, user.Email)
	if user.Occupation != "" {
		fmt.Printf("  position: %s\n", user.Occupation)
	}
	if user.IsAdmin {
		fmt.Println("  role: administrator")
	}
	return nil
}

func runPolicies(ctx context.Context, coordinator *session.Coordinator, api *apiclient.Client, args []string) error {
	fs := flag.NewFlagSet("policies", flag.ExitOnError)
	renewals := fs.Bool("renewals", false, "list renewals instead of new business")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "rows per page")
	search := fs.String("search", "", "search filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if user := coordinator.Verify(ctx); user == nil {
		return fmt.Errorf("not signed in, run `golden-review login` first")
	}

	params := apiclient.PageParams{Page: *page, Limit: *limit, Search: *search}
	var (
		listing *apiclient.PolicyPage
		err     error
	)
	if *renewals {
		listing, err = api.Renewals(ctx, params)
	} else {
		listing, err = api.NewBusiness(ctx, params)
	}
	if err != nil {
		return err
	}

	for _, policy := range listing.Data {
		premium := "-"
		if policy.Premium != nil {
			premium = fmt.Sprintf("%.2f", *policy.Premium)
		}
		fmt.Printf("%-16s %-30s %-20s %10s  %s\n",
			policy.PolicyNumber, policy.InsuredName, policy.Carrier,
			premium, policy.EffectiveDate.Format("2006-01-02"))
	}
	fmt.Printf("page %d of %d (%d policies)\n", listing.Page, listing.TotalPages, listing.Count)
	return nil
}
