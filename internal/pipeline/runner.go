package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"roadeye/internal/jobs"
	"roadeye/internal/logging"
	"roadeye/internal/polling"
	"roadeye/internal/registry"
	"roadeye/internal/services"
	"roadeye/internal/services/jobapi"
)

// PollingDisabledMessage is recorded when a job is enqueued but not polled.
const PollingDisabledMessage = "enqueued; status polling is disabled"

// JobService is the slice of the job service client the runner needs.
type JobService interface {
	CreateJob(ctx context.Context, assets []string, filename string) (string, error)
	Upload(ctx context.Context, jobID, path string) error
	Process(ctx context.Context, jobID string) (string, error)
}

// Poller drives an enqueued job to completion.
type Poller interface {
	Poll(ctx context.Context, key, jobID string, token *polling.Token) polling.Outcome
}

// Runner executes per-file pipelines against a shared store.
type Runner struct {
	service JobService
	store   *jobs.Store
	poller  Poller
	logger  *slog.Logger
	newID   func() string
}

// Option customizes the runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithRequestIDs overrides correlation id generation (useful for tests).
func WithRequestIDs(fn func() string) Option {
	return func(r *Runner) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// NewRunner constructs a runner. A nil poller disables status polling.
func NewRunner(service JobService, store *jobs.Store, poller Poller, opts ...Option) *Runner {
	r := &Runner{
		service: service,
		store:   store,
		poller:  poller,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "pipeline")
	return r
}

// PollingEnabled reports whether Run continues into status polling.
func (r *Runner) PollingEnabled() bool {
	return r.poller != nil
}

// target pins a pipeline to the record generation it started with, so a file
// removed and registered again is not touched by the earlier run.
type target struct {
	key string
	gen uint64
}

func (r *Runner) patch(t target, p jobs.Patch) (jobs.Record, bool) {
	return r.store.Patch(t.key, p.IfGeneration(t.gen))
}

// Run drives file through every stage and returns the final record. It never
// panics and never returns an error: failures are recorded on the record.
func (r *Runner) Run(ctx context.Context, file registry.FileHandle, assets []string, token *polling.Token) (final jobs.Record) {
	key := file.Key()
	ctx = services.WithFileKey(ctx, key)
	ctx = services.WithRequestID(ctx, r.newID())
	logger := logging.WithContext(ctx, r.logger)
	start := time.Now()

	current, ok := r.store.Get(key)
	if !ok {
		return jobs.Record{}
	}
	tgt := target{key: key, gen: current.Generation}

	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("unexpected failure: %v", rec)
			logging.ErrorWithContext(logger, "pipeline panicked", "pipeline_panic",
				logging.String("panic", fmt.Sprint(rec)),
			)
			r.patch(tgt, jobs.Transition(jobs.StatusError, msg))
		}
		final, _ = r.store.Get(key)
		logger.Info("pipeline finished",
			logging.String(logging.FieldEventType, "pipeline_complete"),
			logging.String("status", string(final.Status)),
			logging.Duration("duration", time.Since(start)),
		)
	}()

	logger.Info("pipeline started",
		logging.String(logging.FieldEventType, "pipeline_start"),
		logging.String("file", file.Name),
		logging.Int("asset_count", len(assets)),
	)

	jobID, ok := r.create(ctx, logger, tgt, file, assets)
	if !ok {
		return
	}
	ctx = services.WithJobID(ctx, jobID)
	logger = logger.With(logging.String(logging.FieldJobID, jobID))

	if !r.upload(ctx, logger, tgt, jobID, file) {
		return
	}
	if !r.enqueue(ctx, logger, tgt, jobID) {
		return
	}

	if r.poller == nil {
		r.patch(tgt, jobs.Patch{}.WithMessage(PollingDisabledMessage))
		return
	}
	r.poller.Poll(ctx, key, jobID, token)
	return
}

func (r *Runner) create(ctx context.Context, logger *slog.Logger, tgt target, file registry.FileHandle, assets []string) (string, bool) {
	stageLogger := logger.With(logging.String(logging.FieldStage, string(jobs.StatusCreatingJob)))
	if !r.enter(tgt, jobs.StatusCreatingJob, "creating job") {
		return "", false
	}
	jobID, err := r.service.CreateJob(ctx, assets, file.Name)
	if err != nil {
		r.fail(stageLogger, tgt, "create job failed", err)
		return "", false
	}
	r.patch(tgt, jobs.Patch{}.WithRemoteJobID(jobID))
	stageLogger.Info("job created", logging.String(logging.FieldJobID, jobID))
	return jobID, true
}

func (r *Runner) upload(ctx context.Context, logger *slog.Logger, tgt target, jobID string, file registry.FileHandle) bool {
	stageLogger := logger.With(logging.String(logging.FieldStage, string(jobs.StatusUploading)))
	if !r.enter(tgt, jobs.StatusUploading, "uploading "+file.Name) {
		return false
	}
	started := time.Now()
	if err := r.service.Upload(ctx, jobID, file.Path); err != nil {
		r.fail(stageLogger, tgt, "upload failed", err)
		return false
	}
	stageLogger.Info("upload complete",
		logging.Int64("bytes", file.Size),
		logging.Duration("upload_duration", time.Since(started)),
	)
	return true
}

func (r *Runner) enqueue(ctx context.Context, logger *slog.Logger, tgt target, jobID string) bool {
	stageLogger := logger.With(logging.String(logging.FieldStage, string(jobs.StatusEnqueueing)))
	if !r.enter(tgt, jobs.StatusEnqueueing, "enqueueing") {
		return false
	}
	remote, err := r.service.Process(ctx, jobID)
	if err != nil {
		r.fail(stageLogger, tgt, "enqueue failed", err)
		return false
	}
	status := jobs.FromRemote(remote)
	r.patch(tgt, jobs.Transition(status, "enqueued"))
	stageLogger.Info("job enqueued", logging.String("remote_status", string(status)))
	return true
}

// enter records the stage transition. It reports false when the file was
// removed (or removed and added again) and the pipeline should stop.
func (r *Runner) enter(tgt target, status jobs.Status, message string) bool {
	_, ok := r.patch(tgt, jobs.Transition(status, message))
	return ok
}

func (r *Runner) fail(logger *slog.Logger, tgt target, prefix string, err error) {
	detail := strings.TrimSpace(jobapi.DetailOf(err))
	if detail == "" {
		detail = "unknown error"
	}
	logging.WarnWithContext(logger, prefix, "stage_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the service logs for this job"),
	)
	r.patch(tgt, jobs.Transition(jobs.StatusError, prefix+": "+detail))
}
