package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/models"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/stream"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Tail backend logs live",
	Long: `Open the backend log stream and print entries as they arrive.
The stream stays open across job completion; press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The user asked for the stream explicitly; job lifecycle must not
	// close it behind their back.
	app.Reconciler.MarkUserLogs(true)
	defer app.Reconciler.MarkUserLogs(false)

	down := make(chan error, 1)
	app.TailLogs(printLog, func(err error) {
		select {
		case down <- err:
		default:
		}
	})

	// Replay what the buffer already holds, then follow. The replay runs
	// before Open so entries arriving on the new stream print once.
	for _, entry := range app.Streams.Logs() {
		printLog(entry)
	}

	if err := app.Streams.Open(ctx, stream.KindLogs); err != nil {
		notifyExpired()
		return fmt.Errorf("open log stream: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-down:
		return fmt.Errorf("log stream closed: %w", err)
	}
}

func printLog(entry models.LogEntry) {
	ts := entry.Timestamp.Format("15:04:05")
	if entry.Logger != "" {
		fmt.Printf("%s %-5s [%s] %s\n", ts, entry.Level, entry.Logger, entry.Message)
		return
	}
	fmt.Printf("%s %-5s %s\n", ts, entry.Level, entry.Message)
}
