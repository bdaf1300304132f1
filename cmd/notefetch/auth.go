package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"notefetch/pkg/auth"
	"notefetch/pkg/config"
	"notefetch/pkg/logger"
	"notefetch/pkg/notestore"
	"notefetch/pkg/ui"
)

var (
	verifyLogin bool
	logoutAll   bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored account credentials",
	Long: `Manage stored note service credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables NOTEFETCH_USERNAME / NOTEFETCH_PASSWORD (read-only)`,
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store account credentials securely",
	Example: `  # Interactive login
  notefetch auth login

  # Check the credentials against the service before storing them
  notefetch auth login alice --verify`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove stored credentials",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().BoolVar(&verifyLogin, "verify", false, "authenticate against the service before storing")
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove every stored account")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = strings.TrimSpace(args[0])
	}
	if username == "" {
		fmt.Print("Username: ")
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return fmt.Errorf("failed to read username: %w", err)
		}
		username = strings.TrimSpace(input)
	}
	if username == "" {
		return errors.New("username is required")
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		fmt.Printf("Account '%s' already exists. Update credentials? (y/N): ", username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return errors.New("password is required")
	}

	cfg, err := config.Load(configFile, map[string]interface{}{"log-level": logLevelOverride(cmd)})
	if err != nil {
		return err
	}

	if verifyLogin {
		if err := logger.Initialize(&cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		client := notestore.NewClientFromConfig(cfg, logger.GetLogger())
		if _, err := client.Authenticate(context.Background(), username, password); err != nil {
			auth.ExplainAuthFailure(os.Stderr, err, cfg.Service.Host, cfg.Service.ConsumerKey)
			return fmt.Errorf("credentials were not accepted: %w", err)
		}
		ui.PrintSuccess(os.Stdout, "Credentials accepted by "+cfg.Service.Host)
	}

	account := &auth.Account{
		Username: username,
		Password: password,
		Host:     cfg.Service.Host,
	}
	if err := manager.Store(account); err != nil {
		return err
	}

	ui.PrintSuccess(os.Stdout, "Account saved: "+username)
	if auth.IsKeyringAvailable() {
		fmt.Println("Stored in the system keychain, with the encrypted file as fallback.")
	} else {
		fmt.Println("Stored in the encrypted credentials file.")
	}
	fmt.Printf("\nFetch images with:\n  notefetch fetch --account %s\n", username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if logoutAll {
		accounts, err := manager.List()
		if err != nil {
			return err
		}
		for _, account := range accounts {
			if err := manager.Delete(account.Username); err != nil && !errors.Is(err, auth.ErrCredentialsNotFound) {
				return err
			}
		}
		ui.PrintSuccess(os.Stdout, fmt.Sprintf("Removed %d account(s)", len(accounts)))
		return nil
	}

	if len(args) == 0 {
		return errors.New("specify a username or --all")
	}

	if err := manager.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}
	ui.PrintSuccess(os.Stdout, "Account removed: "+args[0])
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	if len(accounts) == 0 {
		ui.PrintInfo(os.Stdout, "No stored accounts", "use 'notefetch auth login' to add one")
		return nil
	}

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Username: %s\n", i+1, sanitized.Username)
		fmt.Printf("   Password: %s\n", sanitized.Password)
		if sanitized.Host != "" {
			fmt.Printf("   Host: %s\n", sanitized.Host)
		}
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format(time.DateTime))
	}
	return nil
}
