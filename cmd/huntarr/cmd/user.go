package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/javi11/huntarr/internal/auth"
	"github.com/javi11/huntarr/internal/config"
	"github.com/javi11/huntarr/internal/database"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func init() {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the web UI account",
	}

	resetCmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password for the account",
		RunE:  runResetPassword,
	}

	disable2FACmd := &cobra.Command{
		Use:   "disable-2fa",
		Short: "Turn off two-factor authentication for the account",
		RunE:  runDisable2FA,
	}

	userCmd.AddCommand(resetCmd, disable2FACmd)
	rootCmd.AddCommand(userCmd)
}

func openDatabase() (*database.DB, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return database.NewDB(database.Config{DatabasePath: cfg.Database.Path})
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		return string(b), err
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runResetPassword(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	user, err := db.Users.GetFirstUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("no account exists yet, open the web UI to run setup")
	}

	pass, err := readSecret(cmd, "New password: ")
	if err != nil {
		return err
	}
	confirm, err := readSecret(cmd, "Confirm password: ")
	if err != nil {
		return err
	}
	if pass != confirm {
		return errors.New("passwords do not match")
	}

	svc, err := auth.NewService(auth.Config{JWTSecret: "cli"}, db.Users)
	if err != nil {
		return err
	}
	if err := svc.SetPassword(ctx, user.Username, pass); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", user.Username)
	return nil
}

func runDisable2FA(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	user, err := db.Users.GetFirstUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("no account exists yet")
	}

	if err := db.Users.Disable2FA(ctx, user.Username); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Two-factor authentication disabled for %s\n", user.Username)
	return nil
}
