package testutil

import (
	"context"
	"net/url"
	"sync"

	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"

	"github.com/alfredo-dkl/golden-review-frontend/internal/idp"
)

// MockIdentityClient is a testify mock for idp.Client.
type MockIdentityClient struct {
	mock.Mock
}

func (m *MockIdentityClient) Initialize(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockIdentityClient) HandleRedirectReturn(ctx context.Context) (*idp.RedirectResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*idp.RedirectResult), args.Error(1)
}

func (m *MockIdentityClient) BeginLogin(ctx context.Context, req idp.LoginRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockIdentityClient) AcquireToken(ctx context.Context, account idp.Account, scopes []string) (*oauth2.Token, error) {
	args := m.Called(ctx, account, scopes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

func (m *MockIdentityClient) Profile(ctx context.Context, token *oauth2.Token) (*idp.Profile, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*idp.Profile), args.Error(1)
}

func (m *MockIdentityClient) SignOut(ctx context.Context, account idp.Account, postLogoutRedirect string) error {
	args := m.Called(ctx, account, postLogoutRedirect)
	return args.Error(0)
}

func (m *MockIdentityClient) ListKnownAccounts() []idp.Account {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]idp.Account)
}

// RecordingNavigator records navigation targets instead of opening them.
type RecordingNavigator struct {
	mu   sync.Mutex
	urls []string
}

func (n *RecordingNavigator) Navigate(_ context.Context, rawURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, rawURL)
	return nil
}

// URLs returns the recorded navigation targets in order.
func (n *RecordingNavigator) URLs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.urls...)
}

// Last returns the most recent navigation target, empty when none.
func (n *RecordingNavigator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.urls) == 0 {
		return ""
	}
	return n.urls[len(n.urls)-1]
}

// StaticReturnSource serves a fixed redirect-return URL, nil by default.
type StaticReturnSource struct {
	mu  sync.Mutex
	url *url.URL
	err error
}

// Set installs the redirect-return URL subsequent ReturnURL calls resolve.
func (s *StaticReturnSource) Set(u *url.URL) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = u
}

// SetErr makes subsequent ReturnURL calls fail.
func (s *StaticReturnSource) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *StaticReturnSource) ReturnURL(_ context.Context) (*url.URL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, s.err
}
