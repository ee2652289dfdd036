package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/api"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/guard"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/models"
)

var (
	scheduleFrequency string
	scheduleHour      int
	scheduleDisabled  bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage recurring ingestion schedules",
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules",
	Args:  cobra.NoArgs,
	RunE:  runScheduleList,
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add <profile>",
	Short: "Create a recurring schedule for a profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleAdd,
}

var scheduleToggleCmd = &cobra.Command{
	Use:   "toggle <schedule-id>",
	Short: "Enable or disable a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleToggle,
}

var scheduleRmCmd = &cobra.Command{
	Use:   "rm <schedule-id>",
	Short: "Delete a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleRm,
}

var scheduleRunCmd = &cobra.Command{
	Use:   "run <schedule-id>",
	Short: "Fire a schedule immediately",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleRun,
}

func init() {
	scheduleAddCmd.Flags().StringVar(&scheduleFrequency, "frequency", "daily", "hourly, daily, weekly or monthly")
	scheduleAddCmd.Flags().IntVar(&scheduleHour, "hour", 2, "hour of day to run (0-23, ignored for hourly)")
	scheduleAddCmd.Flags().BoolVar(&scheduleDisabled, "disabled", false, "create the schedule disabled")

	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleToggleCmd)
	scheduleCmd.AddCommand(scheduleRmCmd)
	scheduleCmd.AddCommand(scheduleRunCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	if err := app.RefreshSchedules(cmd.Context()); err != nil {
		notifyExpired()
		return fmt.Errorf("list schedules: %w", err)
	}

	schedules := app.Store.Schedules()
	if len(schedules) == 0 {
		fmt.Println("No schedules")
		return nil
	}

	fmt.Printf("%-10s %-20s %-9s %-6s %-9s %s\n", "ID", "PROFILE", "FREQUENCY", "HOUR", "ENABLED", "NEXT RUN")
	fmt.Println("-----------------------------------------------------------------------")
	for _, s := range schedules {
		next := "-"
		if s.NextRun != nil {
			next = s.NextRun.Format("Jan 02 15:04")
		}
		fmt.Printf("%-10s %-20s %-9s %-6d %-9t %s\n",
			s.ID, s.Profile, s.Frequency, s.HourOfDay, s.Enabled, next)
	}
	return nil
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	freq := models.ScheduleFrequency(scheduleFrequency)
	switch freq {
	case models.FrequencyHourly, models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly:
	default:
		return fmt.Errorf("invalid frequency %q", scheduleFrequency)
	}
	if scheduleHour < 0 || scheduleHour > 23 {
		return fmt.Errorf("hour must be 0-23, got %d", scheduleHour)
	}

	created, err := app.CreateSchedule(cmd.Context(), api.ScheduleInput{
		Profile:   args[0],
		Frequency: freq,
		HourOfDay: scheduleHour,
		Enabled:   !scheduleDisabled,
	})
	if err != nil {
		if errors.Is(err, guard.ErrRejected) {
			return fmt.Errorf("not created: %w", err)
		}
		notifyExpired()
		return fmt.Errorf("create schedule: %w", err)
	}
	fmt.Printf("Created schedule %s (%s %s).\n", created.ID, created.Profile, created.Frequency)
	return nil
}

func runScheduleToggle(cmd *cobra.Command, args []string) error {
	if err := app.ToggleSchedule(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, guard.ErrRejected) {
			return fmt.Errorf("not toggled: %w", err)
		}
		notifyExpired()
		return fmt.Errorf("toggle schedule: %w", err)
	}
	for _, s := range app.Store.Schedules() {
		if s.ID == args[0] {
			state := "disabled"
			if s.Enabled {
				state = "enabled"
			}
			fmt.Printf("Schedule %s is now %s.\n", s.ID, state)
			return nil
		}
	}
	fmt.Printf("Schedule %s toggled.\n", args[0])
	return nil
}

func runScheduleRm(cmd *cobra.Command, args []string) error {
	if err := app.DeleteSchedule(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, guard.ErrRejected) {
			return fmt.Errorf("not deleted: %w", err)
		}
		notifyExpired()
		return fmt.Errorf("delete schedule: %w", err)
	}
	fmt.Printf("Deleted %s.\n", args[0])
	return nil
}

func runScheduleRun(cmd *cobra.Command, args []string) error {
	if err := app.RunScheduleNow(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, guard.ErrRejected) {
			return fmt.Errorf("not fired: %w", err)
		}
		notifyExpired()
		return fmt.Errorf("run schedule: %w", err)
	}
	fmt.Printf("Schedule %s fired, profile enqueued.\n", args[0])
	return nil
}
