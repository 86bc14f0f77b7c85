package cli

import (
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/backup"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
)

type progressMsg struct {
	percent int
	label   string
}

type progressModel struct {
	bar     progress.Model
	percent int
	label   string
}

func (m progressModel) Init() tea.Cmd { return nil }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.percent = msg.percent
		m.label = msg.label
		if m.percent >= 100 {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, 60)
	}
	return m, nil
}

func (m progressModel) View() string {
	return m.bar.ViewAs(float64(m.percent)/100) + "  " + m.label + "\n"
}

// Progress renders export and restore progress as a bar. The returned stop func
// must be called once the operation returns. quiet disables rendering.
func Progress(quiet bool) (backup.ProgressFunc, func()) {
	if quiet {
		return nil, func() {}
	}

	p := tea.NewProgram(progressModel{bar: progress.New(progress.WithDefaultGradient())}, tea.WithInput(nil))
	done := make(chan struct{})
	go func() {
		defer close(done)
		runProgress(p)
	}()

	report := func(percent int, label string) {
		p.Send(progressMsg{percent: percent, label: label})
	}
	stop := func() {
		p.Quit()
		<-done
	}
	return report, stop
}

type programRunner interface {
	Run() (tea.Model, error)
}

// runProgress runs the bar until it quits. A terminal that cannot render it only
// loses the bar, so the error is logged and the operation carries on.
func runProgress(p programRunner) {
	if _, err := p.Run(); err != nil {
		logger.Debug("Progress display failed", "error", err)
	}
}
