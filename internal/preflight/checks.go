package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"roadeye/internal/config"
	"roadeye/internal/services/jobapi"
)

const jobServiceCheckTimeout = 5 * time.Second

// CheckJobService verifies that the job service answers its health endpoint.
// It makes a single attempt.
func CheckJobService(ctx context.Context, client HealthChecker) Result {
	const name = "Job service"

	base := strings.TrimSpace(client.BaseURL())
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, jobServiceCheckTimeout)
	defer cancel()

	if err := client.Health(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", base, summarizeError(err))}
	}
	return Result{Name: name, Passed: true, Detail: base + " (reachable)"}
}

// CheckAPIToken reports whether requests will carry a bearer token.
func CheckAPIToken(cfg *config.Config) Result {
	const name = "API token"
	if strings.TrimSpace(cfg.Service.APIToken) == "" {
		return Result{Name: name, Optional: true, Detail: "not set; requests are sent unauthenticated"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckNotifications reports whether ntfy notifications are configured.
func CheckNotifications(cfg *config.Config) Result {
	const name = "Notifications"
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Result{Name: name, Optional: true, Detail: "disabled"}
	}
	return Result{Name: name, Passed: true, Detail: topic}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeError produces a short reason for a failed health check.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out"
	}
	if detail := strings.TrimSpace(jobapi.DetailOf(err)); detail != "" {
		return detail
	}
	return err.Error()
}
