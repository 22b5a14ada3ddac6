package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jotvault/jotvault/internal/crypto"
	"github.com/jotvault/jotvault/internal/secrets"
	"github.com/jotvault/jotvault/internal/storage"
	"github.com/jotvault/jotvault/internal/vault"
)

var (
	initStoreURL string
	initAPIKey   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new vault",
	Long: `Create a new vault file holding the record store credentials and the
field encryption key, protected by a master password.

Leave the encryption key empty to generate a random one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if localStore.Exists() {
			return fmt.Errorf("vault already exists at %s. Use 'jotvault unlock' to access it", cfg.VaultPath)
		}

		storeURL := initStoreURL
		if storeURL == "" {
			var err error
			if storeURL, err = readLine("Record store URL", cfg.DefaultStoreURL()); err != nil {
				return err
			}
		}

		storeKey, err := readPassword("Record store key (access key id:secret, or any token): ")
		if err != nil {
			return err
		}
		if len(storeKey) == 0 {
			storeKey = []byte("none")
		}

		encryptionKey, err := readPassword("Field encryption key (empty to generate): ")
		if err != nil {
			return err
		}
		generated := len(encryptionKey) == 0
		if generated {
			key, err := secrets.GenerateFieldKey()
			if err != nil {
				return err
			}
			encryptionKey = []byte(key)
		}

		apiKey := initAPIKey
		if apiKey == "" {
			if apiKey, err = readLine("API key", "none"); err != nil {
				return err
			}
		}

		bundle := vault.NewBundle(storeURL, string(storeKey), string(encryptionKey), apiKey)
		crypto.Zeroize(storeKey)
		crypto.Zeroize(encryptionKey)
		if err := bundle.Validate(); err != nil {
			return err
		}

		// reject unusable store URLs before sealing them
		if _, err := storage.Open(cmd.Context(), bundle.StoreURL, bundle.StoreKey); err != nil {
			return fmt.Errorf("failed to open record store: %w", err)
		}

		masterPassword, err := readNewPassword("master password")
		if err != nil {
			return err
		}
		defer crypto.Zeroize(masterPassword)

		codec, err := vaultCodec()
		if err != nil {
			return err
		}
		f, err := codec.Export(bundle, string(masterPassword))
		if err != nil {
			return err
		}
		if err := localStore.SaveVaultFile(f); err != nil {
			return fmt.Errorf("failed to save vault: %w", err)
		}

		if cfg.KeySource == secrets.SourceSecretsManager {
			sm, err := secrets.NewSecretsManagerSourceFromConfig(cmd.Context(), cfg.FieldKeySecretName, cfg.AWSRegion)
			if err != nil {
				return err
			}
			if err := storeFieldKey(cmd.Context(), sm, bundle.EncryptionKey); err != nil {
				logger.WarnContext(cmd.Context(), "field key not stored in secrets manager", "error", err)
			}
		}

		unlockedBundle = bundle
		if err := sessionMgr.Save(bundle); err != nil {
			logger.WarnContext(cmd.Context(), "failed to save session", "error", err)
		}
		if err := cfg.SaveConfig(); err != nil {
			logger.WarnContext(cmd.Context(), "failed to save config", "error", err)
		}

		fmt.Printf("Vault created at %s\n", cfg.VaultPath)
		if generated {
			fmt.Println("A new field encryption key was generated. Keep a backup of the vault file (jotvault export).")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initStoreURL, "store-url", "", "Record store URL (dynamodb://table?region=..., file:///path, memory://)")
	initCmd.Flags().StringVar(&initAPIKey, "api-key", "", "API key to keep in the vault")
}
