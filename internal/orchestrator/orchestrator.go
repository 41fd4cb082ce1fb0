package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"roadeye/internal/assets"
	"roadeye/internal/jobs"
	"roadeye/internal/logging"
	"roadeye/internal/notifications"
	"roadeye/internal/pipeline"
	"roadeye/internal/polling"
	"roadeye/internal/registry"
	"roadeye/internal/services"
)

var (
	// ErrNoFiles is returned when a batch is started with nothing registered.
	ErrNoFiles = fmt.Errorf("%w: no media files selected", services.ErrValidation)
	// ErrNoAssets is returned when no asset category is requested.
	ErrNoAssets = fmt.Errorf("%w: select at least one asset category", services.ErrValidation)
	// ErrPollingDisabled is returned by ResumePolling when no poller is configured.
	ErrPollingDisabled = fmt.Errorf("%w: status polling is disabled", services.ErrConfiguration)
)

// Orchestrator coordinates the registry, asset selection, pipelines, and
// polling for one session.
type Orchestrator struct {
	registry  *registry.Registry
	selection *assets.Selection
	store     *jobs.Store
	runner    *pipeline.Runner
	poller    pipeline.Poller
	notifier  notifications.Service
	logger    *slog.Logger

	mu    sync.Mutex
	token *polling.Token
}

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets the notification service.
func WithNotifier(n notifications.Service) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New constructs an orchestrator. poller may be nil when polling is disabled;
// it must be the same poller the runner uses.
func New(reg *registry.Registry, selection *assets.Selection, store *jobs.Store, runner *pipeline.Runner, poller pipeline.Poller, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:  reg,
		selection: selection,
		store:     store,
		runner:    runner,
		poller:    poller,
		notifier:  notifications.NewService(nil),
		token:     polling.NewToken(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "orchestrator")
	return o
}

// Selection returns the asset selection the orchestrator submits with.
func (o *Orchestrator) Selection() *assets.Selection {
	return o.selection
}

// StartAll submits every registered file that has no pipeline in flight and
// waits for all of them to settle.
func (o *Orchestrator) StartAll(ctx context.Context) error {
	files := o.registry.Files()
	if len(files) == 0 {
		return ErrNoFiles
	}
	selected := o.selection.Selected()
	if len(selected) == 0 {
		return ErrNoAssets
	}
	token := o.renewToken()
	return o.runBatch(ctx, files, selected, token)
}

// Submit registers files and submits the ones that have not been started yet
// using the current polling token. Watch mode uses it to feed files into a
// running session; files already submitted in this session are left alone.
func (o *Orchestrator) Submit(ctx context.Context, files ...registry.FileHandle) error {
	selected := o.selection.Selected()
	if len(selected) == 0 {
		return ErrNoAssets
	}
	o.registry.Register(files...)
	var batch []registry.FileHandle
	for _, f := range files {
		registered, ok := o.registry.Lookup(f.Key())
		if !ok {
			continue
		}
		if rec, ok := o.store.Get(f.Key()); ok && rec.Status == jobs.StatusQueued {
			batch = append(batch, registered)
		}
	}
	if len(batch) == 0 {
		return nil
	}
	return o.runBatch(ctx, batch, selected, o.currentToken())
}

// StopPolling asks every active poller to stop at its next check.
func (o *Orchestrator) StopPolling() {
	o.currentToken().Cancel()
	o.logger.Info("polling stop requested", logging.String(logging.FieldEventType, "polling_stop"))
}

// ResumePolling restarts polling for every job the service has queued or is
// running, then waits for those pollers to finish. Pollers still running
// under the previous token are stopped first, so each job keeps a single
// poller. It returns the number of jobs resumed.
func (o *Orchestrator) ResumePolling(ctx context.Context) (int, error) {
	if o.poller == nil {
		return 0, ErrPollingDisabled
	}
	token := o.rotateToken()
	records := o.store.Resumable()
	o.logger.Info("resuming polling",
		logging.String(logging.FieldEventType, "polling_resume"),
		logging.Int("jobs", len(records)),
	)
	joinAll(len(records), func(i int) {
		rec := records[i]
		defer o.recoverInto(rec.Key)
		o.poller.Poll(ctx, rec.Key, rec.RemoteJobID, token)
		o.reportFailure(ctx, rec.Key)
	})
	return len(records), nil
}

// Summary aggregates the current records.
func (o *Orchestrator) Summary() jobs.Summary {
	return o.store.Summary()
}

func (o *Orchestrator) runBatch(ctx context.Context, files []registry.FileHandle, selected []string, token *polling.Token) error {
	var batch []registry.FileHandle
	for _, f := range files {
		rec, ok := o.store.Get(f.Key())
		if ok && rec.InFlight() {
			o.logger.Info("skipping file with pipeline in flight",
				logging.String(logging.FieldFileKey, f.Key()),
				logging.String("status", string(rec.Status)),
			)
			continue
		}
		batch = append(batch, f)
	}
	if len(batch) == 0 {
		o.logger.Info("nothing to submit")
		return nil
	}

	start := time.Now()
	o.logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("files", len(batch)),
		logging.Any("assets", selected),
	)
	o.notify("batch start", o.notifier.NotifyBatchStarted(ctx, len(batch), selected))

	joinAll(len(batch), func(i int) {
		file := batch[i]
		defer o.recoverInto(file.Key())
		o.runner.Run(ctx, file, selected, token)
		o.reportFailure(ctx, file.Key())
	})

	summary := o.store.Summary()
	o.logger.Info("batch settled",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("done", summary.Done),
		logging.Int("failed", summary.Failed),
		logging.Int("timed_out", summary.TimedOut),
		logging.Int("active", summary.Active),
		logging.Duration("duration", time.Since(start)),
	)
	o.notify("batch complete", o.notifier.NotifyBatchCompleted(ctx, summary, time.Since(start)))
	return nil
}

func (o *Orchestrator) reportFailure(ctx context.Context, key string) {
	rec, ok := o.store.Get(key)
	if !ok {
		return
	}
	if rec.Status == jobs.StatusError || rec.Status == jobs.StatusTimedOut {
		o.notify("job failure", o.notifier.NotifyJobFailed(ctx, rec))
	}
}

func (o *Orchestrator) recoverInto(key string) {
	if rec := recover(); rec != nil {
		logging.ErrorWithContext(o.logger, "task panicked", "task_panic",
			logging.String(logging.FieldFileKey, key),
			logging.String("panic", fmt.Sprint(rec)),
		)
		o.store.Patch(key, jobs.Transition(jobs.StatusError, fmt.Sprintf("unexpected failure: %v", rec)))
	}
}

func (o *Orchestrator) notify(event string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	logging.WarnWithContext(o.logger, "notification failed", "notification_failed",
		logging.String("event", event),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		logging.String(logging.FieldImpact, "notification not delivered"),
	)
}

func (o *Orchestrator) renewToken() *polling.Token {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.token = polling.NewToken()
	return o.token
}

// rotateToken cancels the current token and installs a fresh one.
func (o *Orchestrator) rotateToken() *polling.Token {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.token.Cancel()
	o.token = polling.NewToken()
	return o.token
}

func (o *Orchestrator) currentToken() *polling.Token {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.token
}

// joinAll runs fn for indexes [0,n) concurrently and returns once every call
// has returned.
func joinAll(n int, fn func(i int)) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			fn(i)
		}(i)
	}
	wg.Wait()
}
