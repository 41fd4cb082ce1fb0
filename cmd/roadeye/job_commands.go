package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"roadeye/internal/fileutil"
	"roadeye/internal/jobs"
	"roadeye/internal/services/jobapi"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the remote status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.jobClient()
			if err != nil {
				return err
			}
			status, err := client.GetJob(commandContextOf(cmd), args[0])
			if err != nil {
				return fmt.Errorf("get job %s: %w", args[0], err)
			}
			if asJSON {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			display := jobs.FromRemote(status.Status)
			switch status.Status {
			case "completed":
				display = jobs.StatusDone
			case "failed":
				display = jobs.StatusError
			}
			for _, line := range renderSectionHeader("Job "+args[0], colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Status", jobStatusKind(display), display.Label(), colorize))
			if display == jobs.StatusDone {
				fmt.Fprintln(out, renderStatusLine("Results", statusInfo, strconv.Itoa(status.ResultCount()), colorize))
			}
			if status.ResultsPath != "" {
				fmt.Fprintln(out, renderStatusLine("Results path", statusInfo, status.ResultsPath, colorize))
			}
			if status.Error != "" {
				fmt.Fprintln(out, renderStatusLine("Error", statusError, status.Error, colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the raw status as JSON")
	return cmd
}

func newResultsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var output string

	cmd := &cobra.Command{
		Use:   "results <job-id>",
		Short: "Fetch the detection results of a finished job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.jobClient()
			if err != nil {
				return err
			}
			results, err := client.GetResults(commandContextOf(cmd), args[0])
			if errors.Is(err, jobapi.ErrResultsPending) {
				fmt.Fprintf(cmd.OutOrStdout(), "Results for %s are not ready yet\n", args[0])
				return nil
			}
			if err != nil {
				return fmt.Errorf("get results %s: %w", args[0], err)
			}
			if output != "" {
				target := output
				if info, err := os.Stat(output); err == nil && info.IsDir() {
					target = filepath.Join(output, fileutil.SanitizeFileName(args[0])+".json")
				}
				if err := saveResults(target, results); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote results to %s\n", target)
				return nil
			}
			if asJSON {
				return writeJSON(cmd, results)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var items []json.RawMessage
			count := "unknown"
			if err := json.Unmarshal(results.Results, &items); err == nil {
				count = strconv.Itoa(len(items))
			}
			for _, line := range renderSectionHeader("Results "+args[0], colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Detections", statusOK, count, colorize))
			fmt.Fprintln(out, "Use --json for the full result payload.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the full result payload as JSON")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result payload to this file or directory")
	return cmd
}

func saveResults(path string, results jobapi.Results) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return fileutil.WriteAtomic(path, append(data, '\n'), 0o644)
}
