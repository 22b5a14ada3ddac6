package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jotvault/jotvault/internal/vault"
)

func testVaultFile() *vault.File {
	return &vault.File{
		Version:    vault.FormatVersion,
		Ciphertext: "Y2lwaGVy",
		IV:         "aXZpdml2aXZpdml2",
		Salt:       "c2FsdHNhbHRzYWx0c2FsdA==",
	}
}

func TestLocalStorage_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	ls := NewLocalStorage(filepath.Join(dir, "home", "vault.json"), filepath.Join(dir, "backups"))

	assert.False(t, ls.Exists())
	_, err := ls.LoadVaultFile()
	assert.Error(t, err)

	require.NoError(t, ls.SaveVaultFile(testVaultFile()))
	assert.True(t, ls.Exists())

	info, err := os.Stat(ls.VaultPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := ls.LoadVaultFile()
	require.NoError(t, err)
	assert.Equal(t, testVaultFile(), got)
}

func TestLocalStorage_BackupAndList(t *testing.T) {
	dir := t.TempDir()
	ls := NewLocalStorage(filepath.Join(dir, "vault.json"), filepath.Join(dir, "backups"))

	backups, err := ls.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, backups)

	_, err = ls.Backup("")
	assert.Error(t, err, "backup without a vault must fail")

	require.NoError(t, ls.SaveVaultFile(testVaultFile()))

	plain, err := ls.Backup("")
	require.NoError(t, err)
	labeled, err := ls.Backup("pre-rotate")
	require.NoError(t, err)
	assert.NotEqual(t, plain, labeled)
	assert.True(t, strings.HasPrefix(filepath.Base(labeled), "vault-pre-rotate-"))

	require.NoError(t, os.WriteFile(filepath.Join(ls.BackupDir, "notes.txt"), []byte("x"), 0600))

	backups, err = ls.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	for _, b := range backups {
		assert.Positive(t, b.Size)
		f, err := ReadVaultFile(b.Path)
		require.NoError(t, err)
		assert.Equal(t, vault.FormatVersion, f.Version)
	}
}

func TestReadVaultFile_RejectsEnvelope(t *testing.T) {
	path := filepath.Join(t.TempDir(), "envelope.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ciphertext":"YQ==","iv":"YQ==","salt":"YQ=="}`), 0600))

	_, err := ReadVaultFile(path)
	assert.ErrorIs(t, err, vault.ErrMalformedVaultFile)
}
