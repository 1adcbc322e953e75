package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestLoadState_MissingFileReturnsEmptyState(t *testing.T) {
	state, err := LoadState(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	assert.Empty(t, state.UnsealKeys)
	assert.Nil(t, state.RootToken)
	assert.False(t, state.HasRootToken())
	assert.False(t, state.HasSecretID())
}

func TestSaveState_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	state := &State{
		UnsealKeys:      []string{"k1", "k2", "k3"},
		RootToken:       strptr("root"),
		AppRoleRoleID:   strptr("role-id"),
		AppRoleSecretID: strptr("secret-id"),
	}
	require.NoError(t, SaveState(path, state))

	loaded, err := LoadState(path)
	require.NoError(t, err)
	assert.Equal(t, state.UnsealKeys, loaded.UnsealKeys)
	assert.Equal(t, "root", *loaded.RootToken)
	assert.Equal(t, "role-id", *loaded.AppRoleRoleID)
	assert.Equal(t, "secret-id", *loaded.AppRoleSecretID)
}

func TestSaveState_RestrictsPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, SaveState(path, &State{}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSaveState_LeavesNoTemporaryFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, SaveState(path, &State{UnsealKeys: []string{"k"}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}

func TestSaveState_EmptyKeysSerializeAsList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, SaveState(path, &State{}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"unseal_keys": []`)
}

func TestLoadState_NullOptionalFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	payload := `{"unseal_keys": ["k1"], "root_token": null, "approle_role_id": null, "approle_secret_id": null}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	state, err := LoadState(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1"}, state.UnsealKeys)
	assert.Nil(t, state.RootToken)
}

func TestLoadState_RejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadState(path)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, ErrStateCorrupt))
}

func TestLoadState_RejectsWrongFieldTypes(t *testing.T) {
	cases := map[string]string{
		"unseal_keys not a list":    `{"unseal_keys": "k1"}`,
		"unseal_keys mixed types":   `{"unseal_keys": ["k1", 2]}`,
		"root_token not a string":   `{"root_token": 42}`,
		"role_id not a string":      `{"approle_role_id": ["x"]}`,
		"secret_id not a string":    `{"approle_secret_id": {}}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

			_, err := LoadState(path)
			require.Error(t, err)
			assert.True(t, cerr.Is(err, ErrStateCorrupt))
		})
	}
}
