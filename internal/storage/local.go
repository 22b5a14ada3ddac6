package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jotvault/jotvault/internal/vault"
)

const backupTimeFormat = "2006-01-02T15-04-05Z"

// LocalStorage handles the vault file and its backups on disk
type LocalStorage struct {
	VaultPath string
	BackupDir string
}

// BackupInfo holds information about a backup file
type BackupInfo struct {
	Path      string
	CreatedAt time.Time
	Size      int64
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(vaultPath, backupDir string) *LocalStorage {
	return &LocalStorage{
		VaultPath: vaultPath,
		BackupDir: backupDir,
	}
}

// EnsureDir ensures the vault directory exists
func (ls *LocalStorage) EnsureDir() error {
	return os.MkdirAll(filepath.Dir(ls.VaultPath), 0700)
}

// Exists checks if the vault file exists
func (ls *LocalStorage) Exists() bool {
	_, err := os.Stat(ls.VaultPath)
	return err == nil
}

// SaveVaultFile writes a vault file to the vault path
func (ls *LocalStorage) SaveVaultFile(f *vault.File) error {
	if err := ls.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}
	return WriteVaultFile(ls.VaultPath, f)
}

// LoadVaultFile reads and parses the vault file
func (ls *LocalStorage) LoadVaultFile() (*vault.File, error) {
	if !ls.Exists() {
		return nil, fmt.Errorf("vault not found at %s. Run 'jotvault init' first", ls.VaultPath)
	}
	return ReadVaultFile(ls.VaultPath)
}

// Backup copies the current vault file into the backup directory
func (ls *LocalStorage) Backup(label string) (string, error) {
	f, err := ls.LoadVaultFile()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(ls.BackupDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := "vault-"
	if label != "" {
		name += label + "-"
	}
	name += time.Now().UTC().Format(backupTimeFormat) + ".json"
	path := filepath.Join(ls.BackupDir, name)

	if err := WriteVaultFile(path, f); err != nil {
		return "", err
	}
	return path, nil
}

// ListBackups lists backup files, newest first
func (ls *LocalStorage) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(ls.BackupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "vault-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Path:      filepath.Join(ls.BackupDir, name),
			CreatedAt: info.ModTime(),
			Size:      info.Size(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// WriteVaultFile writes a vault file with owner-only permissions
func WriteVaultFile(path string, f *vault.File) error {
	data, err := f.Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize vault file: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write vault file: %w", err)
	}
	return nil
}

// ReadVaultFile reads and parses a vault file from any path
func ReadVaultFile(path string) (*vault.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault file: %w", err)
	}
	return vault.ParseFile(data)
}
