package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/adasa/adasa/internal/registry"
)

var listDetailed bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every managed process",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := newClient().List()
		if err != nil {
			return err
		}
		printProcessTable(entries, listDetailed)
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listDetailed, "detailed", false, "include restart count and uptime")
}

func printProcessTable(entries []*registry.ManagedProcess, detailed bool) {
	if len(entries) == 0 {
		fmt.Println("no managed processes")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	if detailed {
		fmt.Fprintln(w, "ID\tNAME\tSTATE\tPID\tRESTARTS\tUPTIME")
	} else {
		fmt.Fprintln(w, "ID\tNAME\tSTATE\tPID")
	}
	for _, mp := range entries {
		if detailed {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n", mp.ID, mp.Name, mp.State, mp.Pid, mp.RestartCount, uptime(mp))
		} else {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", mp.ID, mp.Name, mp.State, mp.Pid)
		}
	}
	w.Flush()
}

func uptime(mp *registry.ManagedProcess) string {
	if mp.State != registry.StateRunning || mp.SpawnedAt.IsZero() {
		return "-"
	}
	return time.Since(mp.SpawnedAt).Round(time.Second).String()
}
