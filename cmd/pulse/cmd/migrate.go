package cmd

import (
	"fmt"

	"github.com/pulsehq/pulse-go/store"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Prepare the persistent state store schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	url := resolveStateStoreURL()
	if url == "" {
		return fmt.Errorf("--state-store-url required")
	}

	st, err := store.Open(url, nil)
	if err != nil {
		return fmt.Errorf("failed to prepare state store: %w", err)
	}
	defer st.Close()

	newLogger().Info("state store ready", "url", url)
	return nil
}

// resolveStateStoreURL prefers the flag over the config file.
func resolveStateStoreURL() string {
	if stateStoreURL != "" {
		return stateStoreURL
	}
	cfg, err := loadConfig()
	if err != nil {
		return ""
	}
	return cfg.StateStoreURL
}
