package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"roadeye/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var raw bool
	var lines int
	var subject string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display the session log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx := commandContextOf(cmd)
			out := cmd.OutOrStdout()
			format := logs.FormatLine
			if raw {
				format = func(line string) string { return line }
			}

			opts := logs.TailOptions{
				Offset: -1,
				Limit:  max(lines, 0),
				Match:  logs.MatchSubject(subject),
			}
			if opts.Limit == 0 {
				opts.Offset = 0
			}
			printed := false
			for {
				result, err := logs.Tail(runCtx, cfg.LogPath(), opts)
				if err != nil {
					if errors.Is(err, runCtx.Err()) {
						return nil
					}
					return fmt.Errorf("tail logs: %w", err)
				}
				for _, line := range result.Lines {
					fmt.Fprintln(out, format(line))
					printed = true
				}
				if !follow {
					if !printed {
						fmt.Fprintln(out, "No log entries available")
					}
					return nil
				}
				opts.Offset = result.Offset
				opts.Follow = true
				opts.Wait = time.Second
				if runCtx.Err() != nil {
					return nil
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new log entries")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON records unchanged")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of lines to show (0 for the whole file)")
	cmd.Flags().StringVar(&subject, "job", "", "Only show entries for this job id or file key")
	return cmd
}
