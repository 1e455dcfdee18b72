package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// Useful for CI and container deployments where no keychain exists.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	authToken := os.Getenv("FEEDBOT_AUTH_TOKEN")
	csrfToken := os.Getenv("FEEDBOT_CSRF_TOKEN")
	userAgent := os.Getenv("FEEDBOT_USER_AGENT")

	if authToken == "" || csrfToken == "" {
		return nil, ErrCredentialsNotFound
	}

	// Environment variables don't carry a username, so default one
	if username == "" {
		username = os.Getenv("FEEDBOT_USERNAME")
	}
	if username == "" {
		username = "default"
	}

	return &Account{
		Username:     username,
		AuthToken:    authToken,
		CSRFToken:    csrfToken,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}
