package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/adasa/adasa/internal/ipc"
)

// Run starts the full-screen dashboard, polling client for process state
// every couple of seconds until the user quits.
func Run(client *ipc.Client) error {
	model := New(client)
	model.setupTable()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
