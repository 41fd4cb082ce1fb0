package preflight

import (
	"context"

	"roadeye/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// HealthChecker is the part of the job service client the checks need.
type HealthChecker interface {
	Health(ctx context.Context) error
	BaseURL() string
}

// RunAll executes every preflight check for cfg against client.
func RunAll(ctx context.Context, cfg *config.Config, client HealthChecker) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if client != nil {
		results = append(results, CheckJobService(ctx, client))
	}
	results = append(results,
		CheckAPIToken(cfg),
		CheckNotifications(cfg),
	)
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}
