// Package session owns the client-side authentication session lifecycle:
// single-flight initialization of the identity client, one-shot capture and
// consumption of the hosted-login redirect result, exchange of the external
// identity for a cookie-backed backend session, and teardown.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alfredo-dkl/golden-review-frontend/internal/apiclient"
	"github.com/alfredo-dkl/golden-review-frontend/internal/idp"
	"github.com/alfredo-dkl/golden-review-frontend/internal/log"
)

var (
	// ErrInitializationFailed wraps identity-client construction or
	// redirect-capture failures surfaced by Initialize.
	ErrInitializationFailed = errors.New("authentication initialization failed")

	// ErrLoginFailed wraps failures before the hosted-login navigation.
	ErrLoginFailed = errors.New("microsoft login failed")

	// ErrCallbackFailed wraps any failure while completing the callback:
	// missing account information, token exchange, profile fetch, or
	// backend session creation.
	ErrCallbackFailed = errors.New("authentication callback failed")

	// ErrNoRedirectResponse is returned when HandleCallback runs without a
	// captured redirect result to consume.
	ErrNoRedirectResponse = errors.New("no response from authentication")
)

// defaultCaptureTimeout bounds how long HandleCallback waits for an
// in-flight initialization (and its redirect capture) before giving up.
const defaultCaptureTimeout = 5 * time.Second

const initKey = "initialize"

// Config carries the coordinator's own settings; collaborators are passed
// to New directly.
type Config struct {
	// LoginScopes are requested from the hosted login page.
	LoginScopes []string
	// PostLogoutRedirectURI is where the hosted sign-out page returns to.
	PostLogoutRedirectURI string
	// CaptureTimeout bounds how long HandleCallback waits for an
	// in-flight redirect capture. Zero means defaultCaptureTimeout.
	CaptureTimeout time.Duration
}

// CallbackResult is what HandleCallback hands back to the callback page.
type CallbackResult struct {
	Success bool  `json:"success"`
	User    *User `json:"user"`
}

// Coordinator mediates between the identity provider client, the backend
// session API, and the presentation layer. Construct exactly one per
// process at bootstrap and share it by reference.
type Coordinator struct {
	provider idp.Client
	api      *apiclient.Client
	cfg      Config

	initGroup singleflight.Group

	mu              sync.Mutex
	initialized     bool
	pendingRedirect *idp.RedirectResult

	user          *User
	sessionActive bool

	verifySeq     uint64
	verifyApplied uint64
}

// New creates the coordinator. Initialize must still be called (by any
// number of consumers; only one initialization runs).
func New(provider idp.Client, api *apiclient.Client, cfg Config) *Coordinator {
	if cfg.CaptureTimeout <= 0 {
		cfg.CaptureTimeout = defaultCaptureTimeout
	}
	return &Coordinator{
		provider: provider,
		api:      api,
		cfg:      cfg,
	}
}

// Initialize constructs the identity client once per process lifetime and
// captures a pending redirect result if this process was reached via a
// hosted-login return. Safe to call many times, concurrently or
// sequentially: all callers converge on the same in-flight attempt and
// observe the same outcome. On failure the state resets so a later call
// can retry.
func (c *Coordinator) Initialize(ctx context.Context) error {
	result := <-c.initAsync(ctx)
	return result.Err
}

// initAsync returns the completion signal for the current (or a freshly
// started) initialization attempt. singleflight guarantees one underlying
// attempt regardless of how many callers are waiting, and forgets the key
// once the attempt finishes so a failed attempt can be retried.
func (c *Coordinator) initAsync(ctx context.Context) <-chan singleflight.Result {
	return c.initGroup.DoChan(initKey, func() (any, error) {
		c.mu.Lock()
		if c.initialized {
			c.mu.Unlock()
			return nil, nil
		}
		c.mu.Unlock()

		if err := c.provider.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInitializationFailed, err)
		}

		redirect, err := c.provider.HandleRedirectReturn(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInitializationFailed, err)
		}

		c.mu.Lock()
		c.pendingRedirect = redirect
		c.initialized = true
		c.mu.Unlock()

		if redirect != nil {
			log.LogDebugWithFields("session", "Captured redirect result", map[string]any{
				"username": redirect.Account.Username,
			})
		}
		return nil, nil
	})
}

// Login navigates to the hosted login page. The hint pre-fills the page
// and is passed through unvalidated. On the success path navigation takes
// over and the caller never regains control; a failure before navigation
// is returned.
func (c *Coordinator) Login(ctx context.Context, hint string) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}

	// Each login attempt starts a fresh redirect round trip.
	c.mu.Lock()
	c.pendingRedirect = nil
	c.mu.Unlock()

	if err := c.provider.BeginLogin(ctx, idp.LoginRequest{Hint: hint, Scopes: c.cfg.LoginScopes}); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	return nil
}

// HandleCallback completes the hosted-login round trip on the page the
// provider redirects back to. It waits out any in-flight initialization
// (bounded by captureTimeout), consumes the captured redirect result
// exactly once, exchanges it for profile data, creates the backend
// session, and returns the mapped user. Every failure surfaces; no
// half-authenticated state is left behind, and no sign-out is attempted on
// failure.
func (c *Coordinator) HandleCallback(ctx context.Context) (*CallbackResult, error) {
	select {
	case result := <-c.initAsync(ctx):
		if result.Err != nil {
			return nil, result.Err
		}
	case <-time.After(c.cfg.CaptureTimeout):
		return nil, fmt.Errorf("%w: timed out waiting for redirect capture", ErrCallbackFailed)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Consume the one-shot buffer, clearing it at the point of read so a
	// concurrent second caller can never re-consume the same result.
	c.mu.Lock()
	redirect := c.pendingRedirect
	c.pendingRedirect = nil
	c.mu.Unlock()

	if redirect == nil {
		return nil, ErrNoRedirectResponse
	}
	if redirect.Account == (idp.Account{}) {
		return nil, fmt.Errorf("%w: redirect response carries no account information", ErrCallbackFailed)
	}

	token := redirect.Token
	if token == nil || !token.Valid() {
		acquired, err := c.provider.AcquireToken(ctx, redirect.Account, c.cfg.LoginScopes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCallbackFailed, err)
		}
		token = acquired
	}

	profile, err := c.provider.Profile(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCallbackFailed, err)
	}

	created, err := c.api.CreateSession(ctx, apiclient.SessionUser{
		Email:       profile.Email(),
		MicrosoftID: profile.ID,
		Name:        profile.DisplayName,
		FirstName:   profile.GivenName,
		LastName:    profile.Surname,
		Position:    profile.JobTitle,
		Department:  profile.Department,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCallbackFailed, err)
	}
	if !created.Success {
		return nil, fmt.Errorf("%w: %s", ErrCallbackFailed, created.Message)
	}

	user := MapBackendUser(created.User)

	c.mu.Lock()
	c.user = &user
	c.sessionActive = true
	c.mu.Unlock()

	log.LogInfoWithFields("session", "Session established", map[string]any{
		"username": user.Username,
	})
	return &CallbackResult{Success: true, User: &user}, nil
}

// CurrentUser asks the backend whether a valid session exists and fetches
// the user if so. It never returns an error: "no session" and "failed to
// check" both yield nil, a deliberate simplification the presentation
// layer relies on.
func (c *Coordinator) CurrentUser(ctx context.Context) *User {
	if err := c.Initialize(ctx); err != nil {
		log.LogDebug("CurrentUser: initialization failed: %v", err)
		return nil
	}

	validated, err := c.api.ValidateSession(ctx)
	if err != nil {
		log.LogDebug("CurrentUser: session validation failed: %v", err)
		return nil
	}
	if !validated.Valid {
		return nil
	}

	me, err := c.api.CurrentUser(ctx)
	if err != nil {
		log.LogDebug("CurrentUser: profile fetch failed: %v", err)
		return nil
	}

	user := MapBackendUser(me.User)
	return &user
}

// Logout invalidates the backend session, signs out of the provider when a
// known account exists, and always clears the local user and session
// handle. A backend invalidation failure is logged and swallowed so the
// client-side sign-out still proceeds; a provider sign-out failure
// propagates.
func (c *Coordinator) Logout(ctx context.Context) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}

	defer func() {
		c.mu.Lock()
		c.user = nil
		c.sessionActive = false
		c.mu.Unlock()
	}()

	if _, err := c.api.Logout(ctx); err != nil {
		log.LogWarn("Backend logout failed, continuing local sign-out: %v", err)
	}

	accounts := c.provider.ListKnownAccounts()
	if len(accounts) == 0 {
		return nil
	}
	if err := c.provider.SignOut(ctx, accounts[0], c.cfg.PostLogoutRedirectURI); err != nil {
		return fmt.Errorf("provider sign-out failed: %w", err)
	}
	return nil
}

// Verify re-checks the session against the backend and updates the local
// user and session handle, keeping them in sync with the authoritative
// cookie-backed session on every route change. Calls may overlap on rapid
// navigation; each call takes a sequence number and a call that finishes
// after a newer one has already applied its outcome is discarded, so a
// slow stale check cannot overwrite a fresher one.
func (c *Coordinator) Verify(ctx context.Context) *User {
	c.mu.Lock()
	c.verifySeq++
	seq := c.verifySeq
	c.mu.Unlock()

	user := c.CurrentUser(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < c.verifyApplied {
		return c.user
	}
	c.verifyApplied = seq
	if user != nil {
		c.user = user
		c.sessionActive = true
	} else {
		c.user = nil
		c.sessionActive = false
	}
	return c.user
}

// User returns the locally held authenticated user, nil when signed out.
func (c *Coordinator) User() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// IsAuthenticated reports whether a session handle is held. The handle is
// optimistic: it assumes the cookie-backed session is valid until a
// validation call says otherwise.
func (c *Coordinator) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionActive
}

// IsAdmin reports whether the locally held user is an administrator.
func (c *Coordinator) IsAdmin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user != nil && c.user.IsAdmin
}
