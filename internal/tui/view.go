package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ParisNeo/pipmaster/pkg/manager"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render(fmt.Sprintf("pipmaster • %s", m.title)))

	ratio := 0.0
	if m.total > 0 {
		ratio = math.Min(1.0, float64(m.completed)/float64(m.total))
	}
	count := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d/%d", m.completed, m.total))
	sections = append(sections,
		sectionStyle.Render("Progress"),
		lipgloss.JoinHorizontal(lipgloss.Left, count, " ", m.bar.ViewAs(ratio)))

	if len(m.order) > 0 {
		sections = append(sections, sectionStyle.Render("Packages"), m.renderPackages())
	}

	if summary := m.renderSummary(); summary != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderPackages() string {
	lines := make([]string, 0, len(m.order))
	for _, name := range m.order {
		state := m.packages[name]
		line := fmt.Sprintf(" %s %s", m.statusIcon(state.Kind), name)
		if strings.TrimSpace(state.Detail) != "" {
			line = fmt.Sprintf("%s (%s)", line, state.Detail)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSummary() string {
	if m.cancelled {
		return "Run cancelled"
	}
	if !m.finished || m.report == nil {
		return ""
	}

	if m.report.DryRun {
		return "Dry run: no commands were executed"
	}
	if m.report.Success() {
		return "All requirements reconciled"
	}
	return fmt.Sprintf("Failed: %s", strings.Join(m.report.Failed(), ", "))
}

func (m Model) statusIcon(kind manager.EventKind) string {
	switch kind {
	case manager.EventInstalled:
		return successStyle.Render("✓")
	case manager.EventSatisfied:
		return satisfiedStyle.Render("✓")
	case manager.EventInstalling:
		return m.spin.View()
	case manager.EventFailed:
		return failureStyle.Render("✗")
	case manager.EventWouldInstall:
		return pendingStyle.Render("✱")
	case manager.EventQueued:
		return pendingStyle.Render("•")
	default:
		return pendingStyle.Render("…")
	}
}
