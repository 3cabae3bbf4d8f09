package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:          "logs",
	Short:        "Print the server log",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runLogs,
}

func init() {
	logsCmd.Flags().BoolP("follow", "f", false, "keep printing lines as the server writes them")
}

func runLogs(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("log-file")
	follow, _ := cmd.Flags().GetBool("follow")
	if !follow {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(cmd.OutOrStdout(), f)
		return err
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow: true,
		// The server truncates the log when it starts.
		ReOpen:        true,
		MustExist:     false,
		Poll:          runtime.GOOS == "windows", // on Windows poll for file changes instead of using the default inotify
		Logger:        tail.DiscardingLogger,
		CompleteLines: true,
	})
	if err != nil {
		return fmt.Errorf("failed to tail %s: %w", path, err)
	}
	defer t.Cleanup()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			fmt.Fprintln(out, line.Text)
		}
	}
}
