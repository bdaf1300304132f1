package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"notefetch/pkg/config"
	"notefetch/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage notefetch configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (NOTEFETCH_*)
  - .env files (./.env, ~/.notefetch.env)
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration, secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".notefetch.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}

	ui.PrintSuccess(os.Stdout, "Configuration file created: "+configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Set service.consumer_key and service.consumer_secret")
	fmt.Println("2. Run 'notefetch config validate'")
	fmt.Println("3. Run 'notefetch auth login' to store your account")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo(os.Stdout, "Validating configuration", configFile)
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	var warnings []string
	if cfg.Service.ConsumerKey == "" {
		warnings = append(warnings, "service.consumer_key is not set; authentication will be rejected")
	}
	if cfg.Account.Password != "" {
		warnings = append(warnings, "account.password is stored in plain text; prefer 'notefetch auth login'")
	}

	var problems []error
	if abs, err := filepath.Abs(cfg.Output.Directory); err == nil {
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			problems = append(problems, fmt.Errorf("output directory %s exists and is not a directory", abs))
		}
	}
	if len(problems) > 0 {
		return errors.Join(problems...)
	}

	for _, w := range warnings {
		ui.PrintWarning(os.Stdout, "warning: "+w)
	}
	ui.PrintSuccess(os.Stdout, "Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Service host: %s\n", cfg.Service.Host)
	fmt.Printf("  Output directory: %s\n", cfg.Output.Directory)
	fmt.Printf("  Concurrent downloads: %d\n", cfg.Download.ConcurrentDownloads)
	fmt.Printf("  Page size: %d\n", cfg.Download.PageSize)
	fmt.Printf("  Max attempts: %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
