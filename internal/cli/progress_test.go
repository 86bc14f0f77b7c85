package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
)

func TestProgressModelQuitsAtCompletion(t *testing.T) {
	m := progressModel{bar: progress.New()}

	next, cmd := m.Update(progressMsg{percent: 40, label: "Reading habits"})
	assert.Nil(t, cmd)
	pm := next.(progressModel)
	assert.Equal(t, 40, pm.percent)
	assert.Contains(t, pm.View(), "Reading habits")

	_, cmd = pm.Update(progressMsg{percent: 100, label: "Done"})
	if assert.NotNil(t, cmd) {
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestQuietProgress(t *testing.T) {
	report, stop := Progress(true)
	assert.Nil(t, report)
	stop()
}

type failingProgram struct{}

func (failingProgram) Run() (tea.Model, error) {
	return nil, errors.New("could not open a new TTY")
}

func TestRunProgressLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.Logger
	logger.UseWriter(&buf, log.DebugLevel)
	t.Cleanup(func() { logger.Logger = prev })

	runProgress(failingProgram{})
	assert.Contains(t, buf.String(), "Progress display failed")
	assert.Contains(t, buf.String(), "could not open a new TTY")
}
