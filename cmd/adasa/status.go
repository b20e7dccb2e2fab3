package main

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <selector>",
	Short: "Show the entries a selector resolves to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := newClient().Status(args[0])
		if err != nil {
			return err
		}
		printProcessTable(entries, true)
		return nil
	},
}
