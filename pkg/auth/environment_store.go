package auth

import (
	"os"
	"strings"
	"time"
)

// TokenEnvVar holds a bot token supplied through the environment
const TokenEnvVar = "PHOTOPOST_TELEGRAM_TOKEN"

// EnvironmentStore implements CredentialStore on top of PHOTOPOST_TELEGRAM_TOKEN.
// It is read-only and answers for any profile.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment token under the requested profile name
func (e *EnvironmentStore) Retrieve(profile string) (*Credential, error) {
	token := strings.TrimSpace(os.Getenv(TokenEnvVar))
	if token == "" {
		return nil, ErrCredentialsNotFound
	}
	if profile == "" {
		profile = DefaultProfile
	}

	return &Credential{
		Profile:      profile,
		Token:        token,
		LastModified: time.Time{},
	}, nil
}

// List returns a single credential if the variable is set
func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve("env")
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}

// Exists reports whether the variable is set
func (e *EnvironmentStore) Exists(profile string) bool {
	return strings.TrimSpace(os.Getenv(TokenEnvVar)) != ""
}
