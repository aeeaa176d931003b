// Package loopback serves the redirect URI on localhost during a hosted
// login round trip. It plays the browser's part for the desktop client:
// Navigate opens the hosted page, and the listener captures the provider's
// redirect back as the return URL.
package loopback

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/alfredo-dkl/golden-review-frontend/internal/log"
)

// Listener implements idp.Navigator and idp.ReturnSource over a local HTTP
// server bound to the redirect URI.
type Listener struct {
	redirect *url.URL

	mu       sync.Mutex
	server   *http.Server
	returned *url.URL
	received chan struct{}
}

// New creates a listener for the given redirect URI, which must be a
// loopback address.
func New(redirectURI string) (*Listener, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}
	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" && host != "::1" {
		return nil, fmt.Errorf("redirect URI must be a loopback address, got %q", host)
	}
	return &Listener{
		redirect: u,
		received: make(chan struct{}),
	}, nil
}

// Start binds the redirect address and begins serving. Call before
// navigating to the hosted login page.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.server != nil {
		return nil
	}

	ln, err := net.Listen("tcp", l.redirect.Host)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", l.redirect.Host, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(l.redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		l.mu.Lock()
		first := l.returned == nil
		if first {
			captured := *r.URL
			captured.Scheme = l.redirect.Scheme
			captured.Host = l.redirect.Host
			l.returned = &captured
			close(l.received)
		}
		l.mu.Unlock()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><p>Sign-in complete. You can return to the terminal.</p></body></html>")
	})

	l.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := l.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.LogError("Loopback listener failed: %v", err)
		}
	}()
	return nil
}

// Wait blocks until the provider redirects back or the context expires.
func (l *Listener) Wait(ctx context.Context) error {
	select {
	case <-l.received:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for redirect return: %w", ctx.Err())
	}
}

// Close shuts the local server down.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.server == nil {
		return nil
	}
	return l.server.Close()
}

// ReturnURL reports the captured redirect return, nil before one arrives.
func (l *Listener) ReturnURL(_ context.Context) (*url.URL, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.returned, nil
}

// Navigate opens the hosted page in the user's browser, falling back to
// printing the URL when no browser can be launched.
func (l *Listener) Navigate(_ context.Context, rawURL string) error {
	if err := openBrowser(rawURL); err != nil {
		log.LogDebug("Could not open browser: %v", err)
		fmt.Printf("Open this URL in your browser:\n\n  %s\n\n", rawURL)
	}
	return nil
}

func openBrowser(rawURL string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		cmd = exec.Command("xdg-open", rawURL)
	}
	return cmd.Start()
}
