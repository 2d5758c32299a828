// Package tui renders reconciliation progress as an interactive terminal
// view. The engine stays unaware of it: progress arrives as messages built
// from observer events.
package tui

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ParisNeo/pipmaster/pkg/manager"
)

// EventMsg carries one engine progress event into the TUI.
type EventMsg struct {
	Event manager.Event
}

// DoneMsg signals that the run finished with its final report.
type DoneMsg struct {
	Report *manager.Report
}

// packageState is the display state of one requirement.
type packageState struct {
	Name   string
	Kind   manager.EventKind
	Detail string
}

// Model contains the Bubbletea state for a reconciliation run.
type Model struct {
	title     string
	order     []string
	packages  map[string]packageState
	spin      spinner.Model
	bar       progress.Model
	total     int
	completed int
	finished  bool
	cancelled bool
	report    *manager.Report
}

// NewModel constructs a TUI model. The title names the requirement source
// (a manifest name or file).
func NewModel(title string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = runningStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30

	return Model{
		title:    title,
		packages: make(map[string]packageState),
		spin:     sp,
		bar:      bar,
	}
}

// Init starts the spinner tick loop.
func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

// IsFinished reports whether the run has completed.
func (m Model) IsFinished() bool {
	return m.finished
}

// Cancelled reports whether the user interrupted the run.
func (m Model) Cancelled() bool {
	return m.cancelled
}

// TotalPackages returns the number of requirements seen so far.
func (m Model) TotalPackages() int {
	return m.total
}

// CompletedPackages returns the number of requirements in a final state.
func (m Model) CompletedPackages() int {
	return m.completed
}

func (m *Model) ensurePackage(name string) {
	if name == "" {
		return
	}
	if _, exists := m.packages[name]; !exists {
		m.packages[name] = packageState{Name: name, Kind: manager.EventChecking}
		m.order = append(m.order, name)
		m.total++
	}
}

// terminal reports whether a state needs no further updates.
func terminal(kind manager.EventKind) bool {
	switch kind {
	case manager.EventSatisfied, manager.EventInstalled, manager.EventFailed, manager.EventWouldInstall:
		return true
	}
	return false
}
