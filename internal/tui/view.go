package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.currentView {
	case viewProcessDetail:
		body = m.viewDetail()
	case viewLogs:
		body = m.viewLogs()
	case viewHelp:
		body = m.viewHelp()
	default:
		body = m.viewList()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("adasa — process dashboard"))
	b.WriteString("\n\n")
	b.WriteString(body)
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
	}
	if m.toast != "" && time.Now().Before(m.toastExpiry) {
		b.WriteString("\n")
		b.WriteString(highlightStyle.Render(m.toast))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.footer()))
	return b.String()
}

func (m Model) footer() string {
	switch m.currentView {
	case viewProcessList:
		return "↑/↓ select · enter detail · l logs · r restart · s stop · ? help · q quit"
	case viewProcessDetail, viewLogs:
		return "esc back · q back"
	default:
		return "esc back"
	}
}

func (m Model) viewList() string {
	if len(m.entries) == 0 {
		return dimStyle.Render("no managed processes")
	}
	return m.processTable.View()
}

func (m Model) viewDetail() string {
	mp := m.selectedEntry()
	if mp == nil {
		return dimStyle.Render(fmt.Sprintf("%s is no longer registered", m.selectedName))
	}
	lines := []string{
		fmt.Sprintf("name:       %s", mp.Name),
		fmt.Sprintf("id:         %d", mp.ID),
		fmt.Sprintf("state:      %s", formatState(string(mp.State))),
		fmt.Sprintf("pid:        %s", itoa(mp.Pid)),
		fmt.Sprintf("restarts:   %d", mp.RestartCount),
		fmt.Sprintf("cpu:        %.1f%%", mp.Stats.CPUPercent),
		fmt.Sprintf("memory:     %d bytes", mp.Stats.MemoryBytes),
	}
	if mp.OrphanReason != "" {
		lines = append(lines, fmt.Sprintf("orphaned:   %s", mp.OrphanReason))
	}
	if !mp.SpawnedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("spawned at: %s", mp.SpawnedAt.Format(time.RFC3339)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewLogs() string {
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(primaryColor).
		Render(m.logViewport.View())
}

func (m Model) viewHelp() string {
	return strings.Join([]string{
		"adasa tui keybindings",
		"",
		"  ↑/↓, j/k   move selection",
		"  enter      show process detail",
		"  l          tail captured logs",
		"  r          restart selected process",
		"  s          stop selected process",
		"  esc/q      back / quit",
	}, "\n")
}
