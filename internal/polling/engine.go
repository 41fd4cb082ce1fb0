package polling

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"roadeye/internal/config"
	"roadeye/internal/jobs"
	"roadeye/internal/logging"
	"roadeye/internal/services"
	"roadeye/internal/services/jobapi"
)

const (
	defaultTimeout            = 12 * time.Hour
	defaultQueuedInterval     = 2 * time.Second
	defaultProcessingInterval = 3 * time.Second
	defaultRetryInterval      = 2 * time.Second

	retryMessage = "status check failed, retrying..."
)

// StatusSource fetches the remote status of a job.
type StatusSource interface {
	GetJob(ctx context.Context, jobID string) (jobapi.JobStatus, error)
}

// Intervals holds the wait applied after each kind of observation.
type Intervals struct {
	Queued     time.Duration
	Processing time.Duration
	Retry      time.Duration
}

// Outcome describes why Poll returned.
type Outcome string

const (
	// OutcomeTerminal means the record reached Done, Error, or TimedOut.
	OutcomeTerminal Outcome = "terminal"
	// OutcomePaused means the token or context stopped the loop; the record
	// keeps its last observed status and can be resumed.
	OutcomePaused Outcome = "paused"
	// OutcomeRemoved means the record disappeared while polling or now
	// belongs to a different remote job.
	OutcomeRemoved Outcome = "removed"
)

// Engine polls job statuses into a jobs.Store.
type Engine struct {
	source    StatusSource
	store     *jobs.Store
	logger    *slog.Logger
	timeout   time.Duration
	intervals Intervals
	now       func() time.Time
	sleeper   func(time.Duration)

	mu     sync.Mutex
	active map[string]chan struct{}
}

// Option customizes the engine.
type Option func(*Engine)

// WithTimeout overrides the per-job polling deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithIntervals overrides the backoff waits. Zero fields keep their defaults.
func WithIntervals(iv Intervals) Option {
	return func(e *Engine) {
		if iv.Queued > 0 {
			e.intervals.Queued = iv.Queued
		}
		if iv.Processing > 0 {
			e.intervals.Processing = iv.Processing
		}
		if iv.Retry > 0 {
			e.intervals.Retry = iv.Retry
		}
	}
}

// WithClock overrides the time source used for the deadline (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSleeper overrides how waits are performed (useful for tests). A custom
// sleeper is not interrupted by cancellation; the token is still honoured at
// the next loop boundary.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(e *Engine) {
		e.sleeper = sleeper
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine constructs a polling engine.
func NewEngine(source StatusSource, store *jobs.Store, opts ...Option) *Engine {
	e := &Engine{
		source:  source,
		store:   store,
		timeout: defaultTimeout,
		intervals: Intervals{
			Queued:     defaultQueuedInterval,
			Processing: defaultProcessingInterval,
			Retry:      defaultRetryInterval,
		},
		now:    time.Now,
		active: make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "polling")
	return e
}

// OptionsFromConfig translates polling configuration into engine options.
func OptionsFromConfig(cfg *config.Config) []Option {
	if cfg == nil {
		return nil
	}
	return []Option{
		WithTimeout(cfg.PollTimeout()),
		WithIntervals(Intervals{
			Queued:     cfg.QueuedInterval(),
			Processing: cfg.ProcessingInterval(),
			Retry:      cfg.RetryInterval(),
		}),
	}
}

// Timeout returns the configured per-job deadline.
func (e *Engine) Timeout() time.Duration {
	return e.timeout
}

// Poll drives the record for key until the remote job identified by jobID
// reaches a terminal state, the deadline measured from this call passes, or
// the token is cancelled. At most one Poll runs per key: a second call waits
// for the first to return before it starts.
func (e *Engine) Poll(ctx context.Context, key, jobID string, token *Token) Outcome {
	ctx = services.WithJobID(services.WithFileKey(ctx, key), jobID)
	logger := logging.WithContext(ctx, e.logger)

	release, ok := e.claim(ctx, key, token)
	if !ok {
		logger.Info("polling paused before start")
		return OutcomePaused
	}
	defer release()
	start := e.now()

	for {
		if token.Cancelled() || ctx.Err() != nil {
			logger.Info("polling paused")
			return OutcomePaused
		}

		elapsed := e.now().Sub(start)
		if elapsed > e.timeout {
			msg := fmt.Sprintf("no final status after %s; the remote job may still be running", formatDuration(e.timeout))
			logging.WarnWithContext(logger, "polling timed out", "poll_timeout",
				logging.Duration("timeout", e.timeout),
				logging.String(logging.FieldErrorHint, "check the job later with roadeye poll"),
				logging.String(logging.FieldImpact, "job marked timed out"),
			)
			return e.finish(key, jobID, jobs.Transition(jobs.StatusTimedOut, msg))
		}

		status, err := e.source.GetJob(ctx, jobID)
		if err != nil {
			logger.Debug("status check failed", logging.Error(err))
			if _, ok := e.store.Patch(key, jobs.Patch{}.WithMessage(retryMessage).IfRemoteJobID(jobID)); !ok {
				return OutcomeRemoved
			}
			e.wait(ctx, token, e.intervals.Retry)
			continue
		}

		raw := strings.ToLower(strings.TrimSpace(status.Status))
		switch {
		case isDone(raw):
			msg := fmt.Sprintf("completed with %d results", status.ResultCount())
			if status.ResultsPath != "" {
				msg += " (" + status.ResultsPath + ")"
			}
			logger.Info("job completed", logging.Int("results", status.ResultCount()))
			patch := jobs.Transition(jobs.StatusDone, msg).WithResults(status.ResultCount(), status.ResultsPath)
			return e.finish(key, jobID, patch)
		case isFailed(raw):
			msg := strings.TrimSpace(status.Error)
			if msg == "" {
				msg = "remote job failed"
			}
			logger.Warn("job failed remotely", logging.String("reason", msg))
			return e.finish(key, jobID, jobs.Transition(jobs.StatusError, msg))
		}

		current := jobs.FromRemote(status.Status)
		msg := fmt.Sprintf("%s (%ds elapsed)", current.Label(), int(e.now().Sub(start).Seconds()))
		if _, ok := e.store.Patch(key, jobs.Transition(current, msg).IfRemoteJobID(jobID)); !ok {
			return OutcomeRemoved
		}
		interval := e.intervals.Processing
		if current == jobs.StatusRemoteQueued {
			interval = e.intervals.Queued
		}
		e.wait(ctx, token, interval)
	}
}

// claim waits until no other poller holds key, then takes it. It gives up
// when the token or context fires first.
func (e *Engine) claim(ctx context.Context, key string, token *Token) (func(), bool) {
	for {
		e.mu.Lock()
		held, busy := e.active[key]
		if !busy {
			done := make(chan struct{})
			e.active[key] = done
			e.mu.Unlock()
			return func() {
				e.mu.Lock()
				delete(e.active, key)
				e.mu.Unlock()
				close(done)
			}, true
		}
		e.mu.Unlock()

		select {
		case <-held:
		case <-token.Done():
			return nil, false
		case <-ctx.Done():
			return nil, false
		}
	}
}

func (e *Engine) finish(key, jobID string, patch jobs.Patch) Outcome {
	if _, ok := e.store.Patch(key, patch.IfRemoteJobID(jobID)); !ok {
		return OutcomeRemoved
	}
	return OutcomeTerminal
}

func (e *Engine) wait(ctx context.Context, token *Token, d time.Duration) {
	if d <= 0 {
		return
	}
	if e.sleeper != nil {
		e.sleeper(d)
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-token.Done():
	case <-ctx.Done():
	}
}

func isDone(raw string) bool {
	return raw == string(jobs.StatusDone) || raw == "completed"
}

func isFailed(raw string) bool {
	return raw == string(jobs.StatusError) || raw == "failed"
}

func formatDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return d.String()
}
