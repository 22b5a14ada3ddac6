package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jotvault/jotvault/internal/secrets"
)

var keygenStore bool

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a field encryption key",
	Long: `Generate a random 256-bit field encryption key and print it base64 encoded.
With --store the key is written to the AWS Secrets Manager secret named by
field_key_secret_name instead of being printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := secrets.GenerateFieldKey()
		if err != nil {
			return err
		}

		if !keygenStore {
			fmt.Println(key)
			return nil
		}

		source, err := secrets.NewSecretsManagerSourceFromConfig(cmd.Context(), cfg.FieldKeySecretName, cfg.AWSRegion)
		if err != nil {
			return err
		}
		if err := storeFieldKey(cmd.Context(), source, key); err != nil {
			return err
		}

		fmt.Printf("Field key stored in secret '%s'\n", source.SecretName())
		return nil
	},
}

// storeFieldKey writes key to Secrets Manager once the service answers
func storeFieldKey(ctx context.Context, source *secrets.SecretsManagerSource, key string) error {
	if !source.IsAvailable(ctx) {
		return fmt.Errorf("secrets manager is not reachable for secret '%s'; check AWS credentials and region", source.SecretName())
	}
	if err := source.PutFieldKey(ctx, key); err != nil {
		return fmt.Errorf("failed to store field key: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().BoolVar(&keygenStore, "store", false, "Store the key in AWS Secrets Manager")
}
