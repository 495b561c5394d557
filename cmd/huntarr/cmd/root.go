package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	appVersion = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "huntarr",
	Short: "Huntarr searches the Arr apps for missing and upgradable media",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./config.yaml", "config file (default is ./config.yaml)")
}

// Execute runs the root command.
func Execute(version string) {
	appVersion = version
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
