package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"roadeye/internal/assets"
	"roadeye/internal/fileutil"
	"roadeye/internal/intake"
	"roadeye/internal/jobs"
	"roadeye/internal/logging"
	"roadeye/internal/orchestrator"
	"roadeye/internal/preflight"
	"roadeye/internal/registry"
	"roadeye/internal/session"
)

type submitOptions struct {
	assets      string
	noPoll      bool
	watch       bool
	recursive   bool
	interactive bool
	settle      time.Duration
	resultsDir  string
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var opts submitOptions

	cmd := &cobra.Command{
		Use:   "submit <path>...",
		Short: "Upload media files and follow their jobs until they finish",
		Long: "Register every media file under the given paths, create one remote job\n" +
			"per file, upload it, enqueue it, and poll until the job completes.\n\n" +
			"The first interrupt stops polling (jobs keep running remotely); a second\n" +
			"aborts in-flight uploads. With --interactive, stdin accepts:\n" +
			"  p  stop polling\n" +
			"  r  resume polling for unfinished jobs\n" +
			"  s  print the status table\n" +
			"  q  stop polling and exit",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, ctx, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.assets, "assets", "a", "", "Comma separated asset categories (default from config)")
	cmd.Flags().BoolVar(&opts.noPoll, "no-poll", false, "Stop after enqueueing; do not poll job status")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Keep watching directory arguments and submit new files as they appear")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Read p/r/s/q controls from stdin")
	cmd.Flags().StringVar(&opts.resultsDir, "save-results", "", "Directory to write results of completed jobs into")
	cmd.Flags().DurationVar(&opts.settle, "settle", 2*time.Second, "Quiet period before a watched file is submitted")
	return cmd
}

func runSubmit(cmd *cobra.Command, ctx *commandContext, opts submitOptions, paths []string) error {
	sessionOpts := []session.Option{session.WithLock()}
	if strings.TrimSpace(opts.assets) != "" {
		sel, err := assets.ParseList(opts.assets)
		if err != nil {
			return err
		}
		sessionOpts = append(sessionOpts, session.WithSelection(sel))
	}
	if opts.noPoll {
		sessionOpts = append(sessionOpts, session.WithoutPolling())
	}

	s, logger, err := ctx.openSession(cmd, sessionOpts...)
	if err != nil {
		return err
	}
	defer s.Close()

	if check := preflight.CheckJobService(commandContextOf(cmd), s.Client); !check.Passed {
		return fmt.Errorf("job service unavailable: %s", check.Detail)
	}

	files, collectErr := intake.Collect(paths, opts.recursive)
	if collectErr != nil {
		if len(files) == 0 && !opts.watch {
			return collectErr
		}
		logging.WarnWithContext(logger, "some paths could not be read", "intake_failed",
			logging.Error(collectErr),
			logging.String(logging.FieldImpact, "unreadable paths are skipped"),
		)
	}
	s.Registry.Register(files...)
	if s.Registry.Len() == 0 && !opts.watch {
		return orchestrator.ErrNoFiles
	}

	run := &submitRun{
		session:    s,
		logger:     logger,
		out:        cmd.OutOrStdout(),
		resultsDir: strings.TrimSpace(opts.resultsDir),
	}
	run.colorize = shouldColorize(run.out)
	if opts.interactive {
		run.controls = readControls(cmd.InOrStdin())
	}
	return run.execute(commandContextOf(cmd), opts, paths)
}

// submitRun drives one submit invocation: the initial batch, an optional
// directory watch, and interactive controls.
type submitRun struct {
	session    *session.Session
	logger     *slog.Logger
	out        io.Writer
	colorize   bool
	controls   <-chan string
	resultsDir string

	tasks    tracker
	quitting bool
}

func (r *submitRun) execute(parent context.Context, opts submitOptions, paths []string) error {
	orch := r.session.Orchestrator
	start := time.Now()

	watchCtx, stopWatch := context.WithCancel(parent)
	defer stopWatch()
	ctx, stop := interruptHandler(parent, func() {
		orch.StopPolling()
		stopWatch()
	})
	defer stop()

	var watcher *intake.Watcher
	if opts.watch {
		dirs := watchDirs(paths)
		if len(dirs) == 0 {
			return errors.New("--watch needs at least one directory argument")
		}
		var err error
		watcher, err = intake.NewWatcher(dirs, r.session.Registry.IsMedia,
			intake.WithSettle(opts.settle),
			intake.WithWatchLogger(r.logger),
		)
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	if r.session.Registry.Len() > 0 {
		r.tasks.Go(func() error { return orch.StartAll(ctx) })
	}
	if watcher != nil {
		r.tasks.Go(func() error {
			return watcher.Run(watchCtx, func(files []registry.FileHandle) {
				r.tasks.Go(func() error { return orch.Submit(ctx, files...) })
			})
		})
	}

	controls := r.controls
	cancelled := ctx.Done()
	for {
		select {
		case <-r.tasks.Idle():
			if r.tasks.Active() > 0 {
				continue
			}
			if controls != nil && r.canResume() {
				fmt.Fprintln(r.out, "Polling stopped with unfinished jobs; enter r to resume or q to quit")
				continue
			}
			return r.finish(parent, start)
		case line, ok := <-controls:
			if !ok {
				controls = nil
				if r.tasks.Active() == 0 {
					return r.finish(parent, start)
				}
				continue
			}
			r.handleControl(ctx, line, stopWatch)
			if r.quitting && r.tasks.Active() == 0 {
				return r.finish(parent, start)
			}
		case <-cancelled:
			cancelled = nil
			if r.tasks.Active() == 0 {
				return r.finish(parent, start)
			}
		}
	}
}

func (r *submitRun) handleControl(ctx context.Context, line string, stopWatch func()) {
	orch := r.session.Orchestrator
	switch line {
	case "p":
		orch.StopPolling()
		fmt.Fprintln(r.out, "Polling stopped")
	case "r":
		if r.session.Engine == nil {
			fmt.Fprintln(r.out, "Polling is disabled for this session")
			return
		}
		r.tasks.Go(func() error {
			n, err := orch.ResumePolling(ctx)
			if err == nil {
				r.logger.Info("polling resumed", logging.Int("jobs", n))
			}
			return err
		})
		fmt.Fprintln(r.out, "Polling resumed")
	case "s":
		fmt.Fprintln(r.out, renderJobTable(r.session.Store.Snapshot(), r.colorize))
	case "q":
		r.quitting = true
		orch.StopPolling()
		stopWatch()
	case "":
	default:
		fmt.Fprintf(r.out, "Unknown command %q (p=stop polling, r=resume, s=status, q=quit)\n", line)
	}
}

// canResume reports whether paused jobs are worth waiting on for an r.
func (r *submitRun) canResume() bool {
	return !r.quitting && r.session.Engine != nil && len(r.session.Store.Resumable()) > 0
}

func (r *submitRun) finish(ctx context.Context, start time.Time) error {
	if r.resultsDir != "" {
		r.saveResults(ctx)
	}
	fmt.Fprintln(r.out, renderJobTable(r.session.Store.Snapshot(), r.colorize))
	sum := r.session.Store.Summary()
	fmt.Fprintf(r.out, "%s in %s\n", renderSummaryLine(sum), time.Since(start).Round(time.Second))
	if len(r.session.Store.Resumable()) > 0 {
		fmt.Fprintln(r.out, "Unfinished jobs keep running remotely; follow them with `roadeye poll <job-id>`.")
	}
	err := r.tasks.Err()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// saveResults downloads results for every finished job into resultsDir.
// Failures are reported per file and do not fail the run.
func (r *submitRun) saveResults(ctx context.Context) {
	saved := 0
	for _, rec := range r.session.Store.Snapshot() {
		if rec.Status != jobs.StatusDone || !rec.HasRemoteJob() {
			continue
		}
		results, err := r.session.Client.GetResults(ctx, rec.RemoteJobID)
		if err == nil {
			err = saveResults(filepath.Join(r.resultsDir, fileutil.ResultsFileName(rec.FileName, rec.RemoteJobID)), results)
		}
		if err != nil {
			logging.WarnWithContext(r.logger, "failed to save results", "results_save_failed",
				logging.String(logging.FieldJobID, rec.RemoteJobID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "fetch them later with roadeye results"),
			)
			continue
		}
		saved++
	}
	if saved > 0 {
		fmt.Fprintf(r.out, "Saved results for %d jobs to %s\n", saved, r.resultsDir)
	}
}

func watchDirs(paths []string) []string {
	var dirs []string
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			dirs = append(dirs, path)
		}
	}
	return dirs
}
