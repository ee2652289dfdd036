package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/models"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current ingestion job",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "machine-readable output")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := app.RefreshStatus(ctx); err != nil {
		notifyExpired()
		return fmt.Errorf("fetch job status: %w", err)
	}

	job, ok := app.Reconciler.Job()
	if !ok {
		fmt.Println("No current job.")
		return nil
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	}

	printJob(job, time.Now())
	return nil
}

func printJob(job models.JobStatus, now time.Time) {
	fmt.Printf("Job: %s\n", job.ID)
	fmt.Printf("  State: %s\n", job.State)
	if job.Phase != "" && job.State.Live() {
		fmt.Printf("  Phase: %s\n", job.Phase)
	}
	if job.TotalFiles > 0 {
		fmt.Printf("  Files: %d/%d", job.ProcessedFiles, job.TotalFiles)
		if job.FailedFiles > 0 {
			fmt.Printf(" (%d failed)", job.FailedFiles)
		}
		fmt.Println()
	}
	if job.ChunksCreated > 0 {
		fmt.Printf("  Chunks: %d\n", job.ChunksCreated)
	}
	if job.StartedAt != nil {
		fmt.Printf("  Started: %s\n", job.StartedAt.Format(time.RFC3339))
	}
	if elapsed := job.Elapsed(now); elapsed > 0 {
		fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Second))
	}
	if job.State.Live() {
		if rate := job.Rate(now); rate > 0 {
			fmt.Printf("  Rate: %.1f files/s\n", rate)
		}
		if eta := job.Remaining(now); eta > 0 {
			fmt.Printf("  ETA: %s\n", eta.Round(time.Second))
		}
	}
	if job.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", job.CompletedAt.Format(time.RFC3339))
	}
}
