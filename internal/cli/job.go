package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/guard"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Control the current ingestion job",
}

var jobPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the running job",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobOp(cmd.Context(), "pause", app.Pause)
	},
}

var jobResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused job",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobOp(cmd.Context(), "resume", app.Resume)
	},
}

var jobStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running job",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobOp(cmd.Context(), "stop", app.Stop)
	},
}

func init() {
	jobCmd.AddCommand(jobPauseCmd)
	jobCmd.AddCommand(jobResumeCmd)
	jobCmd.AddCommand(jobStopCmd)
	rootCmd.AddCommand(jobCmd)
}

func runJobOp(ctx context.Context, name string, op func(context.Context) error) error {
	if err := op(ctx); err != nil {
		if errors.Is(err, guard.ErrRejected) {
			return fmt.Errorf("%s not sent: %w", name, err)
		}
		notifyExpired()
		return fmt.Errorf("%s job: %w", name, err)
	}
	fmt.Printf("Job %s requested.\n", name)
	return nil
}
