package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/api"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/guard"
)

var (
	queueFileTypes   []string
	queueIncremental bool
	queueRetryFailed bool
	queueSkipErrored bool
	queuePriority    int
	queueYes         bool
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the pending ingestion queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending queue entries",
	Args:  cobra.NoArgs,
	RunE:  runQueueList,
}

var queueAddCmd = &cobra.Command{
	Use:   "add <profile>",
	Short: "Enqueue an ingestion run for a profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueAdd,
}

var queueRmCmd = &cobra.Command{
	Use:   "rm <entry-id>",
	Short: "Remove a pending queue entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueRm,
}

func init() {
	queueAddCmd.Flags().StringSliceVar(&queueFileTypes, "file-types", []string{"all"}, "file types to ingest")
	queueAddCmd.Flags().BoolVar(&queueIncremental, "incremental", true, "skip unchanged files")
	queueAddCmd.Flags().BoolVar(&queueRetryFailed, "retry-failed", false, "retry previously failed files")
	queueAddCmd.Flags().BoolVar(&queueSkipErrored, "skip-errored", false, "skip files that errored before")
	queueAddCmd.Flags().IntVar(&queuePriority, "priority", 0, "ordering priority, higher runs first")
	queueAddCmd.Flags().BoolVarP(&queueYes, "yes", "y", false, "skip the duplicate-profile confirmation")

	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueAddCmd)
	queueCmd.AddCommand(queueRmCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueList(cmd *cobra.Command, args []string) error {
	if err := app.RefreshQueue(cmd.Context()); err != nil {
		notifyExpired()
		return fmt.Errorf("list queue: %w", err)
	}

	entries := app.Store.Queue()
	if len(entries) == 0 {
		fmt.Println("Queue is empty")
		return nil
	}

	fmt.Printf("%-10s %-20s %-16s %-9s %s\n", "ID", "PROFILE", "FILE TYPES", "PRIORITY", "ENQUEUED")
	fmt.Println("----------------------------------------------------------------------")
	for _, e := range entries {
		fmt.Printf("%-10s %-20s %-16s %-9d %s\n",
			e.ID, e.Profile, strings.Join(e.FileTypes, ","), e.Priority,
			e.EnqueuedAt.Format("15:04:05"))
	}
	return nil
}

func runQueueAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	profile := args[0]

	// Refresh first so the duplicate check sees the server's queue, not a
	// stale local copy.
	if err := app.RefreshQueue(ctx); err != nil {
		notifyExpired()
		return fmt.Errorf("check queue: %w", err)
	}
	if app.HasPendingProfile(profile) && !queueYes {
		if !confirm(fmt.Sprintf("Profile %q already has a pending entry. Enqueue anyway?", profile)) {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	entry, err := app.Enqueue(ctx, api.EnqueueInput{
		Profile:     profile,
		FileTypes:   queueFileTypes,
		Incremental: queueIncremental,
		RetryFailed: queueRetryFailed,
		SkipErrored: queueSkipErrored,
		Priority:    queuePriority,
	})
	if err != nil {
		if errors.Is(err, guard.ErrRejected) {
			return fmt.Errorf("not enqueued: %w", err)
		}
		notifyExpired()
		return fmt.Errorf("enqueue: %w", err)
	}

	fmt.Printf("Enqueued %s for profile %s.\n", entry.ID, entry.Profile)
	return nil
}

func runQueueRm(cmd *cobra.Command, args []string) error {
	if err := app.RemoveFromQueue(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, guard.ErrRejected) {
			return fmt.Errorf("not removed: %w", err)
		}
		notifyExpired()
		return fmt.Errorf("remove queue entry: %w", err)
	}
	fmt.Printf("Removed %s.\n", args[0])
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
