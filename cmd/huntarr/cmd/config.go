package cmd

import (
	"fmt"
	"os"

	"github.com/javi11/huntarr/internal/config"
	"github.com/sethvargo/go-password/password"
	"github.com/spf13/cobra"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the boot configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE:  runConfigInit,
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration file",
		RunE:  runConfigValidate,
	}

	configCmd.AddCommand(initCmd, validateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(configFile); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", configFile)
	}

	cfg := config.DefaultConfig()

	secret, err := password.Generate(48, 10, 0, false, true)
	if err != nil {
		return fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	cfg.Auth.JWTSecret = secret

	if err := config.SaveToFile(cfg, configFile); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", configFile)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration OK: listening on %s, database %s, history in %s\n",
		cfg.ListenAddr(), cfg.Database.Path, cfg.HistoryDir())
	return nil
}
