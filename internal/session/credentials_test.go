package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/chat-sentry/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCredentialStore_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store := NewFileCredentialStore(path)

	creds := &core.Credentials{
		Cookies:      []core.Cookie{{Name: "sid", Value: "abc", Domain: ".example.com"}},
		LocalStorage: map[string]string{"token": "xyz"},
		SavedAt:      time.Now().Truncate(time.Second),
	}
	require.NoError(t, store.Save(creds))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "sid", loaded.Cookies[0].Name)
	assert.Equal(t, "xyz", loaded.LocalStorage["token"])
	assert.True(t, creds.SavedAt.Equal(loaded.SavedAt))
}

func TestFileCredentialStore_MissingFile(t *testing.T) {
	store := NewFileCredentialStore(filepath.Join(t.TempDir(), "credentials.json"))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded, "missing blob is not an error")
}

func TestFileCredentialStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewFileCredentialStore(path)

	require.NoError(t, store.Save(&core.Credentials{SavedAt: time.Now()}))
	require.NoError(t, store.Clear())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Clearing again is a no-op
	require.NoError(t, store.Clear())
}
