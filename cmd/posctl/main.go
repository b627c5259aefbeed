package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/prudhvinik1/possync/internal/config"
	"github.com/prudhvinik1/possync/internal/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "posctl",
	Short: "Operate the POS sync agent of this device",
	Long: `posctl works directly against the agent's local store and the remote
database configured in the environment (or CONFIG_FILE).

It can issue terminal tokens, run a sync, inspect the mutation queue
and create the remote schema.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		godotenv.Load()

		loaded, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if err := logger.InitLogger(loaded.LogLevel, "console", loaded.LogFile); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func main() {
	rootCmd.AddCommand(tokenCmd, syncCmd, statusCmd, queueCmd, migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
