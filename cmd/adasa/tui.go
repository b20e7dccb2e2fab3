package main

import (
	"github.com/spf13/cobra"

	"github.com/adasa/adasa/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open a live dashboard of every managed process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.Run(newClient())
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
