package credentials

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatehq/estatectl/internal/api"
)

func testUser() *api.User {
	return &api.User{
		ID:          1,
		Name:        "A",
		Email:       "a@b.com",
		Role:        "admin",
		Permissions: []string{"posts.manage"},
	}
}

func TestNewStore(t *testing.T) {
	t.Run("creates directory with correct permissions", func(t *testing.T) {
		tmpDir := t.TempDir()
		sessionDir := filepath.Join(tmpDir, "session")

		store, err := NewStore(sessionDir)
		require.NoError(t, err)
		assert.NotNil(t, store)

		info, err := os.Stat(sessionDir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	})
}

func TestStore_Load(t *testing.T) {
	t.Run("empty store yields empty state", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		st := store.Load()
		assert.Empty(t, st.Token)
		assert.Nil(t, st.User)
		assert.True(t, st.ExpiresAt.IsZero())
	})

	t.Run("round trips a saved session", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		require.NoError(t, store.Save(State{Token: "T1", User: testUser(), ExpiresAt: expiresAt}))

		st := store.Load()
		assert.Equal(t, "T1", st.Token)
		require.NotNil(t, st.User)
		assert.Equal(t, testUser(), st.User)
		assert.True(t, st.ExpiresAt.Equal(expiresAt))
	})

	t.Run("expired token clears the store eagerly", func(t *testing.T) {
		tmpDir := t.TempDir()
		store, err := NewStore(tmpDir)
		require.NoError(t, err)

		require.NoError(t, store.Save(State{
			Token:     "T1",
			User:      testUser(),
			ExpiresAt: time.Now().Add(-time.Minute),
		}))

		st := store.Load()
		assert.Empty(t, st.Token)
		assert.Nil(t, st.User)

		// The entries themselves must be gone, not just ignored.
		for _, entry := range []string{"auth_token", "user", "token_expires_at"} {
			_, err := os.Stat(filepath.Join(tmpDir, entry))
			assert.True(t, os.IsNotExist(err), "expected %s to be removed", entry)
		}
	})

	t.Run("token without user record is discarded", func(t *testing.T) {
		tmpDir := t.TempDir()
		store, err := NewStore(tmpDir)
		require.NoError(t, err)

		require.NoError(t, store.Save(State{Token: "T1"}))

		st := store.Load()
		assert.Empty(t, st.Token)
		assert.Nil(t, st.User)

		_, err = os.Stat(filepath.Join(tmpDir, "auth_token"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("malformed expiry clears the store", func(t *testing.T) {
		tmpDir := t.TempDir()
		store, err := NewStore(tmpDir)
		require.NoError(t, err)

		require.NoError(t, store.Save(State{Token: "T1", User: testUser()}))
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "token_expires_at"), []byte("not-a-time"), 0600))

		st := store.Load()
		assert.Empty(t, st.Token)
		assert.Nil(t, st.User)
	})
}

func TestStore_Save(t *testing.T) {
	t.Run("partial save rewrites only the user record", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		require.NoError(t, store.Save(State{Token: "T1", User: testUser(), ExpiresAt: expiresAt}))

		updated := testUser()
		updated.Name = "B"
		require.NoError(t, store.Save(State{User: updated}))

		st := store.Load()
		assert.Equal(t, "T1", st.Token)
		assert.Equal(t, "B", st.User.Name)
		assert.True(t, st.ExpiresAt.Equal(expiresAt))
	})

	t.Run("session without expiry never expires", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, store.Save(State{Token: "T1", User: testUser()}))

		st := store.Load()
		assert.Equal(t, "T1", st.Token)
		assert.True(t, st.ExpiresAt.IsZero())
		assert.False(t, st.IsExpired())
	})

	t.Run("new token without expiry drops a stale expiry", func(t *testing.T) {
		tmpDir := t.TempDir()
		store, err := NewStore(tmpDir)
		require.NoError(t, err)

		require.NoError(t, store.Save(State{Token: "T1", User: testUser(), ExpiresAt: time.Now().Add(time.Hour)}))
		require.NoError(t, store.Save(State{Token: "T2", User: testUser()}))

		st := store.Load()
		assert.Equal(t, "T2", st.Token)
		assert.True(t, st.ExpiresAt.IsZero())

		_, err = os.Stat(filepath.Join(tmpDir, "token_expires_at"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("stores expiry as RFC3339", func(t *testing.T) {
		tmpDir := t.TempDir()
		store, err := NewStore(tmpDir)
		require.NoError(t, err)

		expiresAt := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, store.Save(State{Token: "T1", User: testUser(), ExpiresAt: expiresAt}))

		data, err := os.ReadFile(filepath.Join(tmpDir, "token_expires_at"))
		require.NoError(t, err)
		assert.Equal(t, "2026-09-01T12:00:00Z", string(data))
	})
}

func TestStore_Clear(t *testing.T) {
	t.Run("removes all entries", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, store.Save(State{Token: "T1", User: testUser(), ExpiresAt: time.Now().Add(time.Hour)}))
		store.Clear()

		st := store.Load()
		assert.Empty(t, st.Token)
		assert.Nil(t, st.User)
	})

	t.Run("clearing an empty store is a no-op", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		store.Clear()
		store.Clear()
	})
}
