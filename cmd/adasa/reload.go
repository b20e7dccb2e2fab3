package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload <config>",
	Short: "Additively load new process definitions from a config file",
	Long: `Reload re-reads the config file at path and starts any process it
defines that isn't already registered. It never touches an
already-registered process, even if its definition changed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := newClient().ReloadConfig(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("added %d, already registered %d\n", result.Added, result.Existing)
		return nil
	},
}
