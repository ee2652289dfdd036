// Package cli provides the command-line interface for ragadmin.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/config"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/console"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Built in PersistentPreRunE, torn down in PersistentPostRun.
	app        *console.App
	logCleanup func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ragadmin",
	Short: "Administrative console for the RAG ingestion platform",
	Long: `Ragadmin drives and observes the RAG platform's ingestion engine:
watch running jobs live, manage the pending queue and recurring schedules,
and tail backend logs.

Reads combine a server-push stream with background polling; writes are
guarded against duplicate submissions.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		level := cfg.Level()
		if verbose {
			level = slog.LevelDebug
		}
		logger, cleanup := config.SetupLogger(cfg.LogFile, level)
		logCleanup = cleanup

		app = console.New(cfg, logger)

		// Command start is the opportunistic revalidation trigger: the
		// process may have been idle since the token was last checked.
		app.Session.Wake(cmd.Context())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.Close()
		}
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// notifyExpired prints the session-expiry notice once, only for users who
// actually had a session.
func notifyExpired() {
	if app.Session.Snapshot().Expired {
		fmt.Fprintln(os.Stderr, "Your session has expired, please log in again.")
	}
}
