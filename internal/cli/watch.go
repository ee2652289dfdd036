package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/console"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/models"
)

// renderInterval is how often the view re-reads reconciled state. Data
// freshness comes from the event stream and the poll loop, not from this
// timer.
const renderInterval = 500 * time.Millisecond

const logTailLines = 5

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the current job live",
	Long: `Follow the current ingestion job with a live progress display.
Updates arrive over the server event stream, backed by polling.
Press q or Ctrl+C to leave; the job keeps running on the server.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// Theme holds the color scheme for the watch display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// renderMsg triggers a re-read of reconciled state.
type renderMsg time.Time

// seededMsg carries the result of the initial status fetch.
type seededMsg struct{ err error }

// watchModel is the bubbletea model for the live job view.
type watchModel struct {
	app      *console.App
	job      models.JobStatus
	hasJob   bool
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

func newWatchModel(a *console.App) watchModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	return watchModel{
		app:      a,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init seeds the reconciler with a fresh snapshot and starts rendering.
func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		m.seed(),
		renderCmd(),
		m.progress.Init(),
	)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case seededMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to fetch job status: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}
		return m, nil

	case renderMsg:
		m.job, m.hasJob = m.app.Reconciler.Job()
		if m.hasJob && m.job.State.Terminal() {
			m.done = true
			if m.job.State == models.JobStateFailed {
				m.err = fmt.Errorf("job %s failed", m.job.ID)
			}
			return m, tea.Quit
		}
		// Wake is TTL-throttled, so a long-running watch revalidates the
		// session at most once per validation window.
		return m, tea.Batch(renderCmd(), m.wake())

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m watchModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m watchModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if !m.hasJob {
		return "Waiting for a job...\n" + m.theme.hintStyle().Render("Press q to leave") + "\n"
	}

	now := time.Now()
	var pct float64
	if m.job.TotalFiles > 0 {
		pct = float64(m.job.ProcessedFiles) / float64(m.job.TotalFiles)
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.job.State))
	bar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d files", m.job.ProcessedFiles, m.job.TotalFiles)
	if m.job.FailedFiles > 0 {
		counts += fmt.Sprintf(" (%d failed)", m.job.FailedFiles)
	}

	out := fmt.Sprintf("%s %s %s\n", status, bar, counts)
	if m.job.Phase != "" {
		out += fmt.Sprintf("Phase: %s\n", m.job.Phase)
	}
	if rate := m.job.Rate(now); rate > 0 {
		eta := "-"
		if r := m.job.Remaining(now); r > 0 {
			eta = r.Round(time.Second).String()
		}
		out += fmt.Sprintf("%.1f files/s, ETA %s\n", rate, eta)
	}

	if tail := m.logTail(); tail != "" {
		out += "\n" + m.theme.hintStyle().Render(tail)
	}

	out += "\n" + m.theme.hintStyle().Render("Press q to leave, the job keeps running") + "\n"
	return out
}

func (m watchModel) logTail() string {
	logs := m.app.Streams.Logs()
	if len(logs) == 0 {
		return ""
	}
	if len(logs) > logTailLines {
		logs = logs[len(logs)-logTailLines:]
	}
	var out string
	for _, entry := range logs {
		out += fmt.Sprintf("%s %s\n", entry.Timestamp.Format("15:04:05"), entry.Message)
	}
	return out
}

func (m watchModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nLeft watch, the job keeps running. Use 'ragadmin status' to check on it.\n")
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ %s\n", m.err))
	}

	var out string
	switch m.job.State {
	case models.JobStateStopped:
		out = m.theme.errorStyle().Render("Stopped") + "\n\n"
	default:
		out = m.theme.completedStyle().Render("✓ Completed") + "\n\n"
	}
	out += fmt.Sprintf("  Files processed: %d\n", m.job.ProcessedFiles)
	if m.job.FailedFiles > 0 {
		out += fmt.Sprintf("  Files failed:    %d\n", m.job.FailedFiles)
	}
	out += fmt.Sprintf("  Chunks created:  %d\n", m.job.ChunksCreated)
	if elapsed := m.job.Elapsed(time.Now()); elapsed > 0 {
		out += fmt.Sprintf("  Elapsed:         %s\n", elapsed.Round(time.Second))
	}
	return out
}

// seed fetches the current snapshot once; from then on the reconciler's
// stream and poll machinery keeps state fresh.
func (m watchModel) seed() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return seededMsg{err: m.app.RefreshStatus(ctx)}
	}
}

func (m watchModel) wake() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		m.app.Session.Wake(ctx)
		return nil
	}
}

func renderCmd() tea.Cmd {
	return tea.Tick(renderInterval, func(t time.Time) tea.Msg {
		return renderMsg(t)
	})
}

func runWatch(cmd *cobra.Command, args []string) error {
	model := newWatchModel(app)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("watch UI error: %w", err)
	}

	if m, ok := finalModel.(watchModel); ok {
		if m.quitting {
			return nil
		}
		if m.err != nil {
			notifyExpired()
			return m.err
		}
	}
	return nil
}
