package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const sampleToken = "123456789:AAE-secret-token-value"

func TestManagerRoundTrip(t *testing.T) {
	manager, mockStore := NewMockManager()

	cred := &Credential{Profile: "photos", Token: "  " + sampleToken + "\n", BotUsername: "poster_bot"}
	require.NoError(t, manager.Store(cred))
	assert.False(t, cred.LastModified.IsZero())

	got, err := manager.Retrieve("photos")
	require.NoError(t, err)
	assert.Equal(t, sampleToken, got.Token)
	assert.Equal(t, "poster_bot", got.BotUsername)

	list, err := manager.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "photos", list[0].Profile)

	require.NoError(t, manager.Delete("photos"))
	assert.Equal(t, 0, mockStore.Count())

	_, err = manager.Retrieve("photos")
	assert.True(t, errors.Is(err, ErrCredentialsNotFound))
}

func TestManagerDefaultProfile(t *testing.T) {
	manager, mockStore := NewMockManager()

	require.NoError(t, manager.Store(&Credential{Token: sampleToken}))
	assert.True(t, mockStore.Exists(DefaultProfile))

	got, err := manager.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile, got.Profile)
}

func TestManagerRejectsMalformedToken(t *testing.T) {
	manager, mockStore := NewMockManager()

	for _, token := range []string{"", "nocolon", ":secret", "123:", "abc:secret"} {
		err := manager.Store(&Credential{Profile: "p", Token: token})
		assert.True(t, errors.Is(err, ErrInvalidCredentials), "token %q", token)
	}
	assert.Equal(t, 0, mockStore.Count())
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	failing := NewMockStore()
	failing.StoreError = errors.New("keychain locked")
	working := NewMockStore()

	manager := NewManagerWithStores(failing, working)
	require.NoError(t, manager.Store(&Credential{Profile: "p", Token: sampleToken}))

	assert.Equal(t, 0, failing.Count())
	assert.Equal(t, 1, working.Count())

	got, err := manager.Retrieve("p")
	require.NoError(t, err)
	assert.Equal(t, sampleToken, got.Token)
}

func TestManagerStoreAllFail(t *testing.T) {
	failing := NewMockStore()
	failing.StoreError = errors.New("boom")

	err := NewManagerWithStores(failing).Store(&Credential{Profile: "p", Token: sampleToken})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestManagerDeleteMissing(t *testing.T) {
	manager := NewManagerWithStores(NewMockStore(), NewEnvironmentStore())
	err := manager.Delete("ghost")
	assert.True(t, errors.Is(err, ErrCredentialsNotFound))
}

func TestManagerListSorted(t *testing.T) {
	manager, _ := NewMockManager()
	for _, p := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, manager.Store(&Credential{Profile: p, Token: sampleToken}))
	}

	list, err := manager.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Profile)
	assert.Equal(t, "mid", list[1].Profile)
	assert.Equal(t, "zeta", list[2].Profile)
}

func TestSanitizeToken(t *testing.T) {
	assert.Equal(t, "123456789:AAE-...alue", SanitizeToken(sampleToken))
	assert.Equal(t, "1:********", SanitizeToken("1:short"))
	assert.Equal(t, "********", SanitizeToken("x"))

	cred := &Credential{Profile: "p", Token: sampleToken}
	masked := SanitizeCredential(cred)
	assert.NotEqual(t, sampleToken, masked.Token)
	assert.Equal(t, sampleToken, cred.Token)
	assert.Nil(t, SanitizeCredential(nil))
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(&Credential{Profile: "b", Token: sampleToken}))
	require.NoError(t, store.Store(&Credential{Profile: "a", Token: "1:other-token"}))
	assert.True(t, store.Exists("a"))

	got, err := store.Retrieve("b")
	require.NoError(t, err)
	assert.Equal(t, sampleToken, got.Token)

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Profile)
	assert.Equal(t, "b", list[1].Profile)

	require.NoError(t, store.Delete("a"))
	assert.False(t, store.Exists("a"))
	assert.True(t, errors.Is(store.Delete("a"), ErrCredentialsNotFound))

	list, err = store.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = store.Retrieve("a")
	assert.True(t, errors.Is(err, ErrCredentialsNotFound))
}

func TestKeyringStoreUnavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("no dbus session"))
	defer keyring.MockInit()

	_, err := NewKeyringStore()
	assert.Error(t, err)
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnvVar, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "creds", "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(&Credential{Profile: "photos", Token: sampleToken}))
	require.NoError(t, store.Store(&Credential{Profile: "other", Token: "1:other-token"}))

	got, err := store.Retrieve("photos")
	require.NoError(t, err)
	assert.Equal(t, sampleToken, got.Token)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), sampleToken)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// a second store with the same passphrase reads the same file
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	list, err := reopened.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, store.Delete("photos"))
	require.NoError(t, store.Delete("other"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.True(t, errors.Is(store.Delete("other"), ErrCredentialsNotFound))
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(PassphraseEnvVar, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credential{Profile: "p", Token: sampleToken}))

	t.Setenv(PassphraseEnvVar, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("p")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCredentialsNotFound))
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnvVar, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credential{Profile: "p", Token: sampleToken}))

	passFile := filepath.Join(dir, ".passphrase")
	require.FileExists(t, passFile)

	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	got, err := reopened.Retrieve("p")
	require.NoError(t, err)
	assert.Equal(t, sampleToken, got.Token)
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv(TokenEnvVar, "")
	_, err := store.Retrieve("any")
	assert.True(t, errors.Is(err, ErrCredentialsNotFound))
	assert.False(t, store.Exists("any"))

	t.Setenv(TokenEnvVar, sampleToken)
	got, err := store.Retrieve("photos")
	require.NoError(t, err)
	assert.Equal(t, "photos", got.Profile)
	assert.Equal(t, sampleToken, got.Token)

	list, err := store.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, store.Store(got), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("photos"), ErrStoreUnavailable)
}

func TestManagerEnvironmentFallback(t *testing.T) {
	t.Setenv(TokenEnvVar, sampleToken)
	manager := NewManagerWithStores(NewMockStore(), NewEnvironmentStore())

	got, err := manager.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, sampleToken, got.Token)
}
