package cmd

import (
	"context"
	"fmt"

	"github.com/javi11/huntarr/internal/config"
	"github.com/javi11/huntarr/internal/history"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func init() {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear the hunt history",
	}

	clearCmd := &cobra.Command{
		Use:   "clear [app_type]",
		Short: "Clear history of one app type, or of every app",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistoryClear,
	}
	clearCmd.Flags().String("instance", "", "Only clear this instance")

	historyCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	appType := history.AllApps
	if len(args) == 1 {
		appType = args[0]
	}
	instance, _ := cmd.Flags().GetString("instance")

	store := history.NewStore(afero.NewOsFs(), cfg.HistoryDir())
	if err := store.Clear(context.Background(), appType, instance); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "History cleared for %s\n", appType)
	return nil
}
