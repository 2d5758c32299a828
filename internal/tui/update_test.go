package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/ParisNeo/pipmaster/pkg/manager"
)

func apply(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	next, ok := updated.(Model)
	require.True(t, ok)
	return next
}

func TestUpdateTracksEventProgression(t *testing.T) {
	m := NewModel("test")

	m = apply(t, m, EventMsg{Event: manager.Event{Kind: manager.EventChecking, Name: "requests"}})
	require.Equal(t, manager.EventChecking, m.packages["requests"].Kind)
	require.Equal(t, 0, m.completed)

	m = apply(t, m, EventMsg{Event: manager.Event{Kind: manager.EventQueued, Name: "requests"}})
	m = apply(t, m, EventMsg{Event: manager.Event{Kind: manager.EventInstalling, Name: "requests"}})
	require.Equal(t, 0, m.completed)

	m = apply(t, m, EventMsg{Event: manager.Event{Kind: manager.EventInstalled, Name: "requests"}})
	require.Equal(t, manager.EventInstalled, m.packages["requests"].Kind)
	require.Equal(t, 1, m.completed)
}

func TestUpdateCountsTerminalStateOnce(t *testing.T) {
	m := NewModel("test")

	m = apply(t, m, EventMsg{Event: manager.Event{Kind: manager.EventInstalled, Name: "a"}})
	m = apply(t, m, EventMsg{Event: manager.Event{Kind: manager.EventInstalled, Name: "a"}})
	require.Equal(t, 1, m.completed)
}

func TestUpdateIgnoresRegressionFromTerminalState(t *testing.T) {
	m := NewModel("test")

	m = apply(t, m, EventMsg{Event: manager.Event{Kind: manager.EventFailed, Name: "a", Detail: "exit code 1"}})
	m = apply(t, m, EventMsg{Event: manager.Event{Kind: manager.EventChecking, Name: "a"}})

	require.Equal(t, manager.EventFailed, m.packages["a"].Kind)
	require.Equal(t, "exit code 1", m.packages["a"].Detail)
}

func TestUpdateDoneQuits(t *testing.T) {
	m := NewModel("test")

	updated, cmd := m.Update(DoneMsg{Report: &manager.Report{}})
	m = updated.(Model)
	require.True(t, m.IsFinished())
	require.NotNil(t, cmd)
}

func TestUpdateCtrlCCancels(t *testing.T) {
	m := NewModel("test")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(Model)
	require.True(t, m.Cancelled())
	require.True(t, m.IsFinished())
	require.NotNil(t, cmd)
}

func TestUpdateSatisfiedCompletesImmediately(t *testing.T) {
	m := NewModel("test")

	m = apply(t, m, EventMsg{Event: manager.Event{Kind: manager.EventChecking, Name: "b"}})
	m = apply(t, m, EventMsg{Event: manager.Event{Kind: manager.EventSatisfied, Name: "b", Detail: "2.31.0"}})

	require.Equal(t, 1, m.completed)
	require.Equal(t, "2.31.0", m.packages["b"].Detail)
}
