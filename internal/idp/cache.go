package idp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/alfredo-dkl/golden-review-frontend/internal/crypto"
	"github.com/alfredo-dkl/golden-review-frontend/internal/log"
)

// accountCache holds known accounts and their refresh tokens. When a path
// is configured the cache persists between runs, sealed by the encryptor.
// A missing or unreadable cache file degrades to an empty cache, never an
// error: the user simply signs in again.
//
// Callers synchronize access; the cache itself is not goroutine safe.
type accountCache struct {
	path      string
	encryptor crypto.Encryptor

	accounts      map[string]Account // keyed by home ID
	refreshTokens map[string]string
	pendingState  string
}

type cacheFile struct {
	Accounts      []Account         `json:"accounts"`
	RefreshTokens map[string]string `json:"refresh_tokens,omitempty"`
	PendingState  string            `json:"pending_state,omitempty"`
}

func newAccountCache(path string, encryptor crypto.Encryptor) *accountCache {
	return &accountCache{
		path:          path,
		encryptor:     encryptor,
		accounts:      make(map[string]Account),
		refreshTokens: make(map[string]string),
	}
}

func (c *accountCache) load() {
	if c.path == "" {
		return
	}
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.LogDebug("Account cache unreadable, starting empty: %v", err)
		}
		return
	}

	contents := string(raw)
	if c.encryptor != nil {
		contents, err = c.encryptor.Decrypt(contents)
		if err != nil {
			log.LogWarn("Account cache failed to decrypt, starting empty: %v", err)
			return
		}
	}

	var file cacheFile
	if err := json.Unmarshal([]byte(contents), &file); err != nil {
		log.LogWarn("Account cache corrupted, starting empty: %v", err)
		return
	}

	for _, account := range file.Accounts {
		c.accounts[account.HomeID] = account
	}
	for homeID, token := range file.RefreshTokens {
		c.refreshTokens[homeID] = token
	}
	c.pendingState = file.PendingState
}

func (c *accountCache) save() {
	if c.path == "" {
		return
	}

	file := cacheFile{
		RefreshTokens: c.refreshTokens,
		PendingState:  c.pendingState,
	}
	for _, account := range c.accounts {
		file.Accounts = append(file.Accounts, account)
	}
	sort.Slice(file.Accounts, func(i, j int) bool {
		return file.Accounts[i].HomeID < file.Accounts[j].HomeID
	})

	raw, err := json.Marshal(file)
	if err != nil {
		log.LogError("Failed to marshal account cache: %v", err)
		return
	}

	contents := string(raw)
	if c.encryptor != nil {
		contents, err = c.encryptor.Encrypt(contents)
		if err != nil {
			log.LogError("Failed to encrypt account cache: %v", err)
			return
		}
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		log.LogError("Failed to create account cache directory: %v", err)
		return
	}
	if err := os.WriteFile(c.path, []byte(contents), 0o600); err != nil {
		log.LogError("Failed to write account cache: %v", err)
	}
}

func (c *accountCache) put(account Account, refreshToken string) {
	if account.HomeID == "" {
		return
	}
	c.accounts[account.HomeID] = account
	if refreshToken != "" {
		c.refreshTokens[account.HomeID] = refreshToken
	}
}

func (c *accountCache) remove(homeID string) {
	delete(c.accounts, homeID)
	delete(c.refreshTokens, homeID)
}

func (c *accountCache) refreshToken(homeID string) string {
	return c.refreshTokens[homeID]
}

func (c *accountCache) list() []Account {
	accounts := make([]Account, 0, len(c.accounts))
	for _, account := range c.accounts {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].HomeID < accounts[j].HomeID
	})
	return accounts
}

func (c *accountCache) setPendingState(state string) {
	c.pendingState = state
	c.save()
}
