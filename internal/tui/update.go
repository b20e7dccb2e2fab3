package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/adasa/adasa/internal/ipc"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.clearToastIfExpired()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.processTable.SetHeight(m.height - 8)
		m.logViewport.Width = m.width - 2
		m.logViewport.Height = m.height - 5
		return m, nil

	case tickMsg:
		return m, tea.Batch(tickCmd(), refreshCmd(m.client))

	case processListMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.entries = msg.entries
		if !m.tableReady {
			m.setupTable()
		}
		m.setRows()
		return m, nil

	case logsMsg:
		if msg.err != nil {
			m.showToast("failed to load logs: "+msg.err.Error(), 3*time.Second)
			return m, nil
		}
		m.logViewport.SetContent(msg.text)
		m.logViewport.GotoBottom()
		return m, nil

	case actionResultMsg:
		m.showToast(msg.message, 2*time.Second)
		return m, refreshCmd(m.client)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

type actionResultMsg struct {
	message string
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.currentView == viewProcessList {
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "?":
			m.currentView = viewHelp
			return m, nil
		case "enter":
			if row := m.processTable.SelectedRow(); len(row) > 1 {
				m.selectedName = row[1]
				m.currentView = viewProcessDetail
			}
			return m, nil
		case "l":
			if row := m.processTable.SelectedRow(); len(row) > 1 {
				m.selectedName = row[1]
				m.currentView = viewLogs
				m.logViewport = viewport.New(m.width-2, m.height-5)
				return m, fetchLogsCmd(m.client, m.selectedName, m.logLines)
			}
			return m, nil
		case "r":
			if row := m.processTable.SelectedRow(); len(row) > 1 {
				return m, restartCmd(m.client, row[1])
			}
			return m, nil
		case "s":
			if row := m.processTable.SelectedRow(); len(row) > 1 {
				return m, stopCmd(m.client, row[1])
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.processTable, cmd = m.processTable.Update(msg)
		return m, cmd
	}

	// Every other view: esc/q returns to the list, otherwise view-specific keys.
	switch msg.String() {
	case "esc", "q":
		m.currentView = viewProcessList
		return m, nil
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	if m.currentView == viewLogs {
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func restartCmd(client *ipc.Client, name string) tea.Cmd {
	return func() tea.Msg {
		if err := client.Restart(name, false); err != nil {
			return actionResultMsg{message: "✗ restart " + name + ": " + err.Error()}
		}
		return actionResultMsg{message: "✓ restarted " + name}
	}
}

func stopCmd(client *ipc.Client, name string) tea.Cmd {
	return func() tea.Msg {
		if err := client.Stop(name, false); err != nil {
			return actionResultMsg{message: "✗ stop " + name + ": " + err.Error()}
		}
		return actionResultMsg{message: "✓ stopped " + name}
	}
}
