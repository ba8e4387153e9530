package session

import (
	"os"
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeCases(t *testing.T) map[string]Store {
	t.Helper()
	app := test.NewTempApp(t)
	return map[string]Store{
		"preferences": NewPreferencesStore(app.Preferences()),
		"file":        NewFileStore(filepath.Join(t.TempDir(), "nested", "session.yaml")),
	}
}

func TestStores_RoundTripAndClear(t *testing.T) {
	for name, store := range storeCases(t) {
		t.Run(name, func(t *testing.T) {
			s, err := Restore(store)
			require.NoError(t, err)
			assert.False(t, s.Authenticated())

			require.NoError(t, store.Save(Session{Token: "admin-token", Role: RoleAdmin}))
			s, err = Restore(store)
			require.NoError(t, err)
			assert.Equal(t, Session{Token: "admin-token", Role: RoleAdmin}, s)

			require.NoError(t, store.Save(Session{Token: "new-token"}))
			s, err = store.Load()
			require.NoError(t, err)
			assert.Equal(t, Session{Token: "new-token"}, s)

			require.NoError(t, store.Clear())
			require.NoError(t, store.Clear())
			s, err = Restore(store)
			require.NoError(t, err)
			assert.Equal(t, Session{}, s)
		})
	}
}

func TestFileStore_UnknownRoleIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: abc\nuserRole: OWNER\n"), 0o600))

	s, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, Session{Token: "abc", Role: RoleNone}, s)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: [unclosed"), 0o600))

	_, err := Restore(NewFileStore(path))
	assert.Error(t, err)
}

func TestRestore_NilStore(t *testing.T) {
	_, err := Restore(nil)
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("ADMIN"))
	assert.Equal(t, RoleUser, ParseRole(" user "))
	assert.Equal(t, RoleNone, ParseRole(""))
	assert.Equal(t, RoleNone, ParseRole("root"))
	assert.True(t, RoleAdmin.IsAdmin())
	assert.False(t, RoleUser.IsAdmin())
}

func TestEmptyCredentials(t *testing.T) {
	assert.Equal(t, Credentials{Role: RoleUser}, EmptyCredentials())
	assert.False(t, Session{Token: "  "}.Authenticated())
}
