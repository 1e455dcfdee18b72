package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// Account holds the browser-session cookies feedbot signs in with. The two
// tokens together form one logged-in web session.
type Account struct {
	Username     string    `json:"username"`
	AuthToken    string    `json:"auth_token"`
	CSRFToken    string    `json:"csrf_token"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is one backend accounts can be kept in
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(username string) (*Account, error)
	List() ([]*Account, error)
	Delete(username string) error
}

// Manager chains credential stores in preference order: the system
// keychain when one is reachable, then an encrypted file, then the
// environment.
type Manager struct {
	stores []CredentialStore
}

// NewManager builds the store chain for this machine
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	// The keychain check fails on headless machines; skip it there.
	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	dir, err := configDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("open encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store writes the account to the first store that will take it
func (m *Manager) Store(account *Account) error {
	switch {
	case account.Username == "":
		return fmt.Errorf("%w: username is required", ErrInvalidCredentials)
	case account.AuthToken == "":
		return fmt.Errorf("%w: auth token is required", ErrInvalidCredentials)
	case account.CSRFToken == "":
		return fmt.Errorf("%w: CSRF token is required", ErrInvalidCredentials)
	}

	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		lastErr = store.Store(account)
		if lastErr == nil {
			return nil
		}
	}
	if lastErr != nil {
		return fmt.Errorf("store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve returns the named account from the first store that has it
func (m *Manager) Retrieve(username string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(username); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, username)
}

// RetrieveDefault picks an account when the user named none: environment
// credentials win, otherwise the first stored account.
func (m *Manager) RetrieveDefault() (*Account, error) {
	if envStore, ok := m.stores[len(m.stores)-1].(*EnvironmentStore); ok {
		if account, err := envStore.Retrieve(""); err == nil && account != nil {
			return account, nil
		}
	}

	accounts, err := m.List()
	if err == nil && len(accounts) > 0 {
		return accounts[0], nil
	}
	return nil, ErrCredentialsNotFound
}

// List merges the accounts of every store, deduplicated by username. When
// a username appears in several stores the most recently modified copy
// wins.
func (m *Manager) List() ([]*Account, error) {
	byName := make(map[string]*Account)
	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			have, ok := byName[account.Username]
			if !ok || account.LastModified.After(have.LastModified) {
				byName[account.Username] = account
			}
		}
	}

	var result []*Account
	for _, account := range byName {
		result = append(result, account)
	}
	return result, nil
}

// Delete removes the account from every store holding it
func (m *Manager) Delete(username string) error {
	deleted := false
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w: %s", ErrCredentialsNotFound, username)
}

// DeleteAll removes every stored account
func (m *Manager) DeleteAll() error {
	accounts, err := m.List()
	if err != nil {
		return err
	}
	for _, account := range accounts {
		_ = m.Delete(account.Username)
	}
	return nil
}

// SanitizeAccount returns a copy safe to print: tokens are masked down to
// their first and last characters.
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}
	return &Account{
		Username:     account.Username,
		AuthToken:    maskToken(account.AuthToken),
		CSRFToken:    maskToken(account.CSRFToken),
		UserAgent:    account.UserAgent,
		LastModified: account.LastModified,
	}
}

func maskToken(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// configDir returns feedbot's per-user config directory, creating it on
// first use.
func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "feedbot")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return dir, nil
}
