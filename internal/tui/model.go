// Package tui implements the live process dashboard shown by `adasa tui`,
// a read-mostly bubbletea front-end over the daemon's IPC socket.
package tui

import (
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/adasa/adasa/internal/ipc"
	"github.com/adasa/adasa/internal/registry"
)

type viewMode int

const (
	viewProcessList viewMode = iota
	viewProcessDetail
	viewLogs
	viewHelp
)

// Model is the bubbletea model driving the dashboard. It never talks to
// the registry or dispatcher directly; every fact it shows came over the
// client's Unix socket, the same one the CLI subcommands use.
type Model struct {
	client *ipc.Client

	currentView viewMode
	width       int
	height      int
	err         error
	quitting    bool

	entries      []*registry.ManagedProcess
	selectedName string
	processTable table.Model
	tableReady   bool

	logViewport viewport.Model
	logLines    int

	toast       string
	toastExpiry time.Time
}

// New returns a Model that polls the daemon at client for its display data.
func New(client *ipc.Client) Model {
	return Model{
		client:      client,
		currentView: viewProcessList,
		logLines:    200,
		width:       100,
		height:      30,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), refreshCmd(m.client), tea.EnterAltScreen)
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type processListMsg struct {
	entries []*registry.ManagedProcess
	err     error
}

func refreshCmd(client *ipc.Client) tea.Cmd {
	return func() tea.Msg {
		entries, err := client.List()
		return processListMsg{entries: entries, err: err}
	}
}

type logsMsg struct {
	text string
	err  error
}

func fetchLogsCmd(client *ipc.Client, selector string, lines int) tea.Cmd {
	return func() tea.Msg {
		logLines, err := client.Logs(selector, lines, false)
		if err != nil {
			return logsMsg{err: err}
		}
		text := ""
		for _, l := range logLines {
			text += "[" + l.Stream + "] " + l.Text + "\n"
		}
		return logsMsg{text: text}
	}
}

func (m *Model) showToast(message string, d time.Duration) {
	m.toast = message
	m.toastExpiry = time.Now().Add(d)
}

func (m *Model) clearToastIfExpired() {
	if m.toast != "" && time.Now().After(m.toastExpiry) {
		m.toast = ""
	}
}

func (m *Model) setupTable() {
	columns := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "NAME", Width: 20},
		{Title: "STATE", Width: 14},
		{Title: "PID", Width: 8},
		{Title: "RESTARTS", Width: 10},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(m.height-8),
	)
	t.SetStyles(tableStyles())
	m.processTable = t
	m.tableReady = true
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(primaryColor).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(primaryColor).
		Bold(false)
	return s
}

func (m *Model) setRows() {
	rows := make([]table.Row, 0, len(m.entries))
	for _, mp := range m.entries {
		rows = append(rows, table.Row{
			itoa(int(mp.ID)),
			mp.Name,
			string(mp.State),
			itoa(mp.Pid),
			itoa(mp.RestartCount),
		})
	}
	m.processTable.SetRows(rows)
}

func itoa(n int) string {
	if n == 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

func (m *Model) selectedEntry() *registry.ManagedProcess {
	for _, mp := range m.entries {
		if mp.Name == m.selectedName {
			return mp
		}
	}
	return nil
}
