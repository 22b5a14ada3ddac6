package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jotvault/jotvault/internal/config"
	"github.com/jotvault/jotvault/internal/session"
	"github.com/jotvault/jotvault/internal/storage"
)

var (
	cfg        *config.Config
	logger     *slog.Logger
	localStore *storage.LocalStorage
	sessionMgr *session.Manager

	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jotvault",
	Short: "An end-to-end encrypted journal",
	Long: `jotvault keeps a journal in a shared record store with every field
encrypted on this machine. The store only ever sees ciphertext.

Credentials for the store and the field key live in a vault file protected
by a master password. Unlock it once per session.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.LogLevel
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		logger, err = config.NewLogger(os.Stderr, level)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		timeout, err := cfg.Timeout()
		if err != nil {
			return err
		}

		localStore = storage.NewLocalStorage(cfg.VaultPath, cfg.BackupDir)
		sessionMgr = session.NewManager(cfg.GetSessionPath(), timeout, logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", userMessage(err))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}
