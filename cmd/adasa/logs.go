package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	logsLines      int
	logsFollow     bool
	logsStderrOnly bool
)

var logsCmd = &cobra.Command{
	Use:   "logs [selector]",
	Short: "Show captured stdout/stderr for one process or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().IntVar(&logsLines, "lines", 100, "number of recent lines to show")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "keep polling for new lines")
	logsCmd.Flags().BoolVar(&logsStderrOnly, "stderr", false, "show only stderr lines")
}

func runLogs(cmd *cobra.Command, args []string) error {
	selector := ""
	if len(args) == 1 {
		selector = args[0]
	}
	client := newClient()

	var lastShown time.Time
	lines, err := client.Logs(selector, logsLines, logsStderrOnly)
	if err != nil {
		return err
	}
	for _, l := range lines {
		printLine(l.Stream, l.Text)
		lastShown = l.Timestamp
	}

	if !logsFollow {
		return nil
	}

	// Polling tail: the daemon keeps only a ring buffer, not a subscription
	// feed, so following means re-reading and skipping what was already
	// shown (every line not newer than the last one printed).
	for {
		time.Sleep(500 * time.Millisecond)
		lines, err := client.Logs(selector, logsLines, logsStderrOnly)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if !l.Timestamp.After(lastShown) {
				continue
			}
			printLine(l.Stream, l.Text)
			lastShown = l.Timestamp
		}
	}
}

func printLine(stream, text string) {
	fmt.Printf("[%s] %s\n", stream, text)
}
