package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"roadeye/internal/jobs"
)

func newPollCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "poll <job-id>...",
		Short: "Follow existing remote jobs until they finish",
		Long: "Attach status polling to jobs that were submitted earlier. The first\n" +
			"interrupt stops polling and prints the current table; a second aborts.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := ctx.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			for _, raw := range args {
				jobID := strings.TrimSpace(raw)
				if jobID == "" {
					continue
				}
				s.Store.Ensure(jobID, jobID)
				s.Store.Patch(jobID, jobs.Patch{}.WithRemoteJobID(jobID).WithStatus(jobs.StatusRemoteQueued))
			}

			runCtx, stop := interruptHandler(commandContextOf(cmd), s.Orchestrator.StopPolling)
			defer stop()
			if _, err := s.Orchestrator.ResumePolling(runCtx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderJobTable(s.Store.Snapshot(), shouldColorize(out)))
			fmt.Fprintln(out, renderSummaryLine(s.Store.Summary()))
			return nil
		},
	}
}
