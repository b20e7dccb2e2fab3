package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopForce bool

var stopCmd = &cobra.Command{
	Use:   "stop <selector>",
	Short: "Stop a process or every instance of a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().Stop(args[0], stopForce); err != nil {
			return err
		}
		fmt.Printf("stopped %s\n", args[0])
		return nil
	},
}

func init() {
	stopCmd.Flags().BoolVar(&stopForce, "force", false, "send KILL immediately instead of the configured stop signal")
}
