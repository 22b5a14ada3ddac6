package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jotvault/jotvault/internal/crypto"
	"github.com/jotvault/jotvault/internal/field"
	"github.com/jotvault/jotvault/internal/journal"
	"github.com/jotvault/jotvault/internal/secrets"
	"github.com/jotvault/jotvault/internal/session"
	"github.com/jotvault/jotvault/internal/storage"
	"github.com/jotvault/jotvault/internal/vault"
)

// unlockedBundle is the credentials bundle for this invocation
var unlockedBundle *vault.CredentialsBundle

// fieldCodec always derives with the default parameters: field envelopes
// do not record theirs, so every record in a store must share them
func fieldCodec() *field.Codec {
	return field.NewCodec(crypto.DefaultCodec())
}

// vaultCodec writes vault files with the configured KDF parameters
func vaultCodec() (*vault.Codec, error) {
	c, err := crypto.NewCodec(cfg.VaultKDF)
	if err != nil {
		return nil, fmt.Errorf("invalid vault_kdf configuration: %w", err)
	}
	return vault.NewCodec(c), nil
}

// importVault decrypts the vault file at the configured path
func importVault(masterPassword string) (*vault.CredentialsBundle, error) {
	f, err := localStore.LoadVaultFile()
	if err != nil {
		return nil, err
	}
	codec, err := vaultCodec()
	if err != nil {
		return nil, err
	}
	return codec.Import(f, masterPassword)
}

// unlockWithPrompt asks for the master password and starts a session
func unlockWithPrompt() error {
	if !localStore.Exists() {
		return fmt.Errorf("vault not found. Run 'jotvault init' first")
	}

	password, err := readPassword("Enter master password: ")
	if err != nil {
		return err
	}
	defer crypto.Zeroize(password)

	bundle, err := importVault(string(password))
	if err != nil {
		return err
	}

	unlockedBundle = bundle
	if err := sessionMgr.Save(bundle); err != nil {
		logger.Warn("failed to save session", "error", err)
	}
	return nil
}

// ensureUnlocked ensures the bundle is available, prompting if necessary
func ensureUnlocked(cmd *cobra.Command) error {
	if unlockedBundle != nil {
		return nil
	}

	bundle, err := sessionMgr.Load()
	if err == nil {
		unlockedBundle = bundle
		return nil
	}
	if !errors.Is(err, session.ErrNoSession) {
		logger.WarnContext(cmd.Context(), "failed to load session", "error", err)
	}

	return unlockWithPrompt()
}

// openJournal connects to the record store named in the bundle and
// resolves the field key
func openJournal(cmd *cobra.Command) (*journal.Service, error) {
	if err := ensureUnlocked(cmd); err != nil {
		return nil, err
	}
	ctx := cmd.Context()

	store, err := storage.Open(ctx, unlockedBundle.StoreURL, unlockedBundle.StoreKey)
	if err != nil {
		return nil, err
	}

	source, err := secrets.Resolve(ctx, cfg.KeySource, secrets.Options{
		SecretName: cfg.FieldKeySecretName,
		Region:     cfg.AWSRegion,
		Bundle:     unlockedBundle,
	})
	if err != nil {
		return nil, err
	}
	fieldKey, err := source.FieldKey(ctx)
	if err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "journal opened", "key_source", cfg.KeySource)
	return journal.NewService(store, fieldCodec(), fieldKey, logger), nil
}

// userMessage turns errors from the core into something a person can act on
func userMessage(err error) string {
	var incomplete *vault.IncompleteCredentialsError
	switch {
	case errors.Is(err, vault.ErrWrongMasterPassword):
		return "incorrect master password"
	case errors.Is(err, vault.ErrMalformedVaultFile):
		return fmt.Sprintf("not a jotvault vault file (%v)", err)
	case errors.Is(err, vault.ErrCorruptVaultFile):
		return "the vault file decrypted but its contents are damaged; restore from a backup"
	case errors.As(err, &incomplete):
		return fmt.Sprintf("the vault is missing required credentials: %v", incomplete.Missing)
	case errors.Is(err, journal.ErrKeyMismatch):
		return fmt.Sprintf("none of the stored entries could be decrypted; the field key from key_source %q does not match this journal", cfg.KeySource)
	case errors.Is(err, secrets.ErrNoFieldKey):
		return fmt.Sprintf("no field encryption key available: %v", err)
	case errors.Is(err, crypto.ErrWeakKDFParams):
		return fmt.Sprintf("refusing weak key derivation settings: %v", err)
	default:
		return err.Error()
	}
}
