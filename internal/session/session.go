package session

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"roadeye/internal/assets"
	"roadeye/internal/config"
	"roadeye/internal/jobs"
	"roadeye/internal/logging"
	"roadeye/internal/notifications"
	"roadeye/internal/orchestrator"
	"roadeye/internal/pipeline"
	"roadeye/internal/polling"
	"roadeye/internal/registry"
	"roadeye/internal/services/jobapi"
)

// ErrLocked is returned when another session holds the lock.
var ErrLocked = errors.New("another roadeye session is already running")

// Session owns the wired components for one client run.
type Session struct {
	ID           string
	Config       *config.Config
	Store        *jobs.Store
	Registry     *registry.Registry
	Selection    *assets.Selection
	Client       *jobapi.Client
	Engine       *polling.Engine
	Runner       *pipeline.Runner
	Orchestrator *orchestrator.Orchestrator
	Notifier     notifications.Service

	logger   *slog.Logger
	lock     *flock.Flock
	lockPath string
}

type options struct {
	selection    *assets.Selection
	pollDisabled bool
	lock         bool
	clientOpts   []jobapi.Option
	pollOpts     []polling.Option
	notifier     notifications.Service
}

// Option customizes session assembly.
type Option func(*options)

// WithSelection overrides the configured default asset selection.
func WithSelection(sel *assets.Selection) Option {
	return func(o *options) { o.selection = sel }
}

// WithoutPolling stops pipelines after enqueue.
func WithoutPolling() Option {
	return func(o *options) { o.pollDisabled = true }
}

// WithLock acquires the state directory lock while the session is open.
func WithLock() Option {
	return func(o *options) { o.lock = true }
}

// WithClientOptions passes options through to the job service client.
func WithClientOptions(opts ...jobapi.Option) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// WithPollingOptions passes options through to the polling engine.
func WithPollingOptions(opts ...polling.Option) Option {
	return func(o *options) { o.pollOpts = append(o.pollOpts, opts...) }
}

// WithNotifier overrides the configured notification service.
func WithNotifier(n notifications.Service) Option {
	return func(o *options) { o.notifier = n }
}

// Open builds a session from cfg.
func Open(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("session requires configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	selection := o.selection
	if selection == nil && len(cfg.Assets.Default) == 0 {
		selection = assets.NewSelection()
	}
	if selection == nil {
		sel, err := assets.SelectionOf(cfg.Assets.Default...)
		if err != nil {
			return nil, fmt.Errorf("default assets: %w", err)
		}
		selection = sel
	}

	id := uuid.NewString()
	logger = logger.With(logging.String("session_id", id))
	s := &Session{
		ID:        id,
		Config:    cfg,
		Store:     jobs.NewStore(),
		Selection: selection,
		logger:    logging.NewComponentLogger(logger, "session"),
	}

	if o.lock {
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, err
		}
		s.lockPath = cfg.LockPath()
		s.lock = flock.New(s.lockPath)
		ok, err := s.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return nil, ErrLocked
		}
	}

	s.Registry = registry.New(s.Store, cfg.Upload.Extensions)
	s.Client = jobapi.NewFromConfig(cfg, o.clientOpts...)
	s.Notifier = o.notifier
	if s.Notifier == nil {
		s.Notifier = notifications.NewService(cfg)
	}

	var poller pipeline.Poller
	if cfg.Polling.Enabled && !o.pollDisabled {
		pollOpts := append(polling.OptionsFromConfig(cfg), polling.WithLogger(logger))
		s.Engine = polling.NewEngine(s.Client, s.Store, append(pollOpts, o.pollOpts...)...)
		poller = s.Engine
	}
	s.Runner = pipeline.NewRunner(s.Client, s.Store, poller, pipeline.WithLogger(logger))
	s.Orchestrator = orchestrator.New(s.Registry, s.Selection, s.Store, s.Runner, poller,
		orchestrator.WithNotifier(s.Notifier),
		orchestrator.WithLogger(logger),
	)

	s.logger.Debug("session opened",
		logging.String("service", s.Client.BaseURL()),
		logging.Bool("polling", poller != nil),
		logging.String("lock", s.lockPath),
	)
	return s, nil
}

// Close releases the session lock.
func (s *Session) Close() error {
	if s == nil || s.lock == nil {
		return nil
	}
	if err := s.lock.Unlock(); err != nil {
		logging.WarnWithContext(s.logger, "failed to release session lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next session may report a stale lock"),
		)
		return err
	}
	return nil
}
