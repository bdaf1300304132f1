package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"notefetch/pkg/auth"
	"notefetch/pkg/config"
	"notefetch/pkg/fetcher"
	"notefetch/pkg/logger"
	"notefetch/pkg/notestore"
	"notefetch/pkg/ui"
)

var (
	// Fetch command flags
	outputDir       string
	concurrent      int
	pageSize        int
	maxRetries      int
	downloadTimeout time.Duration
	accountName     string
)

var errIncompatibleVersion = errors.New("incompatible protocol version")

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [username] [password]",
	Short: "Save every image attachment of an account",
	Long: `Authenticate, list every notebook, page through its notes and save each
GIF, JPEG or PNG resource as {guid}_{fileName} in the output directory.

A resource that cannot be fetched or written is reported and skipped; a
notebook whose notes cannot be listed is reported and the next one is
processed. The exit code is 1 only when setup fails or the notebooks cannot
be listed.`,
	Example: `  # Credentials on the command line
  notefetch fetch alice s3cret

  # Prompt for the password
  notefetch fetch alice

  # Stored account, custom output directory, 4 workers
  notefetch fetch --account alice --output ./images --concurrent 4`,
	Args: cobra.MaximumNArgs(2),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	for _, cmd := range []*cobra.Command{fetchCmd, rootCmd} {
		cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default \"note_images\")")
		cmd.Flags().IntVar(&concurrent, "concurrent", 0, "number of concurrent downloads, 1-10 (default 1)")
		cmd.Flags().IntVar(&pageSize, "page-size", 0, "notes requested per page (default 100)")
		cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "attempts per call on transient service errors (default 3)")
		cmd.Flags().DurationVar(&downloadTimeout, "download-timeout", 0, "timeout of each HTTP request (default 30s)")
		cmd.Flags().StringVarP(&accountName, "account", "a", "", "use a stored account")
	}

	// notefetch [username] [password] behaves like notefetch fetch
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 && isKnownCommand(args[0]) {
			return cmd.Help()
		}
		if len(args) > 2 {
			return fmt.Errorf("accepts at most 2 arg(s), received %d", len(args))
		}
		return runFetch(cmd, args)
	}
}

func isKnownCommand(arg string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == arg || cmd.HasAlias(arg) {
			return true
		}
	}
	return false
}

func runFetch(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"output":           outputDir,
		"concurrent":       concurrent,
		"page-size":        pageSize,
		"max-retries":      maxRetries,
		"download-timeout": downloadTimeout,
		"log-level":        logLevelOverride(cmd),
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.WithFields(map[string]interface{}{
		"run_id":  uuid.NewString(),
		"command": "fetch",
	})

	creds, err := resolveCredentials(args, accountName, cfg, auth.NewManager, promptPassword)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := executeFetch(ctx, cfg, creds, os.Stdout, os.Stderr, quiet, log)
	if report != nil && report.HasFailures() {
		log.WarnWithFields("Some resources were not saved", map[string]interface{}{
			"failed":            report.Failed,
			"notebook_failures": len(report.NotebookFailures),
		})
	}
	return err
}

// credentials is the account a run logs in with
type credentials struct {
	Username string
	Password string
}

// resolveCredentials picks the account in order: positional arguments,
// --account, the config file or environment, the default stored account.
// A known username without a password is looked up in the credential
// stores, then prompted for.
func resolveCredentials(
	args []string,
	account string,
	cfg *config.Config,
	newManager func() (*auth.Manager, error),
	prompt func(label string) (string, error),
) (credentials, error) {
	var creds credentials
	if len(args) > 0 {
		creds.Username = strings.TrimSpace(args[0])
	}
	if len(args) > 1 {
		creds.Password = args[1]
	}

	var manager *auth.Manager
	getManager := func() (*auth.Manager, error) {
		if manager != nil {
			return manager, nil
		}
		m, err := newManager()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
		}
		manager = m
		return m, nil
	}

	switch {
	case creds.Username != "":
	case account != "":
		m, err := getManager()
		if err != nil {
			return creds, err
		}
		stored, err := m.Retrieve(account)
		if err != nil {
			return creds, fmt.Errorf("account %q not found, see 'notefetch auth list': %w", account, err)
		}
		return credentials{Username: stored.Username, Password: stored.Password}, nil
	case cfg.Account.Username != "":
		creds.Username = cfg.Account.Username
		creds.Password = cfg.Account.Password
	default:
		m, err := getManager()
		if err != nil {
			return creds, err
		}
		stored, err := m.RetrieveDefault()
		if err != nil {
			return creds, errors.New("no credentials found: pass username and password, or run 'notefetch auth login'")
		}
		return credentials{Username: stored.Username, Password: stored.Password}, nil
	}

	if creds.Password == "" {
		if m, err := getManager(); err == nil {
			if stored, err := m.Retrieve(creds.Username); err == nil {
				creds.Password = stored.Password
			}
		}
	}
	if creds.Password == "" {
		password, err := prompt(fmt.Sprintf("Password for %s: ", creds.Username))
		if err != nil {
			return creds, fmt.Errorf("failed to read password: %w", err)
		}
		creds.Password = password
	}
	if creds.Password == "" {
		return creds, errors.New("password is required")
	}

	return creds, nil
}

// executeFetch checks the protocol version, authenticates and runs the
// fetch, printing progress to stdout and diagnostics to stderr
func executeFetch(
	ctx context.Context,
	cfg *config.Config,
	creds credentials,
	stdout, stderr io.Writer,
	quietOutput bool,
	log logger.Logger,
) (*fetcher.Report, error) {
	client := notestore.NewClientFromConfig(cfg, log)

	compatible, err := client.CheckVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check protocol version: %w", err)
	}
	if !compatible {
		ui.PrintError(stderr, "Incompatible client protocol version")
		return nil, errIncompatibleVersion
	}

	session, err := client.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		auth.ExplainAuthFailure(stderr, err, cfg.Service.Host, cfg.Service.ConsumerKey)
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	log.WithField("username", session.Username).Info("Authenticated")
	fmt.Fprintf(stdout, "Successfully authenticated as %s\n", session.Username)
	if !quietOutput {
		ui.PrintInfo(stdout, "Output directory", cfg.Output.Directory)
	}

	reporter := ui.NewConsoleReporter(stdout, quietOutput)
	report, err := fetcher.NewFromConfig(cfg, client, reporter, log).Run(ctx, session)
	if report != nil {
		reporter.PrintSummary(report)
	}
	return report, err
}

// promptPassword reads a password without echo when stdin is a terminal
func promptPassword(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(password), nil
	}

	input, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
