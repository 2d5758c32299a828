package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case EventMsg:
		e := msg.Event
		m.ensurePackage(e.Name)
		existing := m.packages[e.Name]
		if terminal(existing.Kind) && !terminal(e.Kind) {
			// A final state never regresses to an in-flight one.
			return m, nil
		}
		wasTerminal := terminal(existing.Kind)
		existing.Kind = e.Kind
		existing.Detail = e.Detail
		m.packages[e.Name] = existing
		if terminal(e.Kind) && !wasTerminal {
			m.completed++
		}
		return m, nil

	case DoneMsg:
		m.finished = true
		m.report = msg.Report
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			m.finished = true
			return m, tea.Quit
		}

	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}
