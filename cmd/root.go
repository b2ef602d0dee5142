// Package cmd wires the page-watcher CLI.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Exit codes. Schedulers key off these: 2 means the deployment is
// misconfigured and rerunning will not help, 1 means the run itself failed.
const (
	exitOK     = 0
	exitRunErr = 1
	exitConfig = 2
)

// configError marks failures that happen before any network work.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

var envFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page-watcher",
		Short: "Watches a web page for content and keyword changes.",
		Long: `page-watcher performs one check of a configured web page: it fetches the
page, extracts the watched content, compares it against the previous run's
fingerprint, and sends notifications when something changed. It is designed
to be invoked by cron or a CI scheduler; all configuration comes from
environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before reading the environment")

	cmd.AddCommand(newRunCmd())

	return cmd
}

// loadEnvFile loads the dotenv file when it exists. A missing file is fine;
// production deployments set real environment variables instead.
func loadEnvFile() error {
	if envFile == "" {
		return nil
	}
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("load env file %s: %w", envFile, err)
	}
	return nil
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "page-watcher: %v\n", err)
		var cfgErr *configError
		if errors.As(err, &cfgErr) {
			return exitConfig
		}
		return exitRunErr
	}
	return exitOK
}
