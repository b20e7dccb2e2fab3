package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restartRolling bool

var restartCmd = &cobra.Command{
	Use:   "restart <selector>",
	Short: "Restart a process or every instance of a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().Restart(args[0], restartRolling); err != nil {
			return err
		}
		fmt.Printf("restarted %s\n", args[0])
		return nil
	},
}

func init() {
	restartCmd.Flags().BoolVar(&restartRolling, "rolling", false, "restart multi-instance entries one at a time with a liveness check between each")
}
