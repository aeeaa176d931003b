package idp

import (
	"context"
	"net/url"

	"golang.org/x/oauth2"
)

// Account is a locally cached identity-provider account, the minimum needed
// to acquire tokens silently and to sign out.
type Account struct {
	HomeID   string `json:"home_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	TenantID string `json:"tenant_id"`
}

// RedirectResult is the one-shot outcome of a hosted-login redirect round
// trip: the account that signed in and the token material from the code
// exchange. Produced at most once per redirect return.
type RedirectResult struct {
	Account Account
	Token   *oauth2.Token
}

// Profile is the user record returned by the provider's profile endpoint
// (Microsoft Graph /v1.0/me).
type Profile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	GivenName         string `json:"givenName"`
	Surname           string `json:"surname"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	JobTitle          string `json:"jobTitle"`
	Department        string `json:"department"`
}

// Email returns the best email address for the profile. Guest and
// cloud-only accounts often have an empty mail attribute, so fall back to
// the user principal name.
func (p Profile) Email() string {
	if p.Mail != "" {
		return p.Mail
	}
	return p.UserPrincipalName
}

// LoginRequest carries the inputs for BeginLogin. Hint pre-fills the hosted
// login page and is passed through without validation.
type LoginRequest struct {
	Hint   string
	Scopes []string
}

// Navigator hands control to a hosted provider page (login or sign-out).
// In the desktop client this opens a browser; in tests it records the URL.
type Navigator interface {
	Navigate(ctx context.Context, rawURL string) error
}

// ReturnSource reports the redirect-return URL the process was reached
// through, if any. A nil URL means this is not a redirect return.
type ReturnSource interface {
	ReturnURL(ctx context.Context) (*url.URL, error)
}

// Client abstracts the identity provider operations the session coordinator
// depends on.
type Client interface {
	// Initialize performs one-time construction: endpoint discovery and
	// account-cache loading. May fail.
	Initialize(ctx context.Context) error

	// HandleRedirectReturn resolves the RedirectResult if the current
	// process was reached via a hosted-login redirect, nil otherwise.
	HandleRedirectReturn(ctx context.Context) (*RedirectResult, error)

	// BeginLogin navigates to the hosted login page. On navigation paths
	// that replace the process it does not return.
	BeginLogin(ctx context.Context, req LoginRequest) error

	// AcquireToken silently exchanges a known account for an access token.
	AcquireToken(ctx context.Context, account Account, scopes []string) (*oauth2.Token, error)

	// Profile fetches the user profile using the given token.
	Profile(ctx context.Context, token *oauth2.Token) (*Profile, error)

	// SignOut navigates to the hosted sign-out page and forgets the account.
	SignOut(ctx context.Context, account Account, postLogoutRedirect string) error

	// ListKnownAccounts returns the locally cached accounts.
	ListKnownAccounts() []Account
}
