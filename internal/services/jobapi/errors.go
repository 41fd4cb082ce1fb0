package jobapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"roadeye/internal/services"
)

// ErrResultsPending is returned by GetResults while the job is still running.
var ErrResultsPending = errors.New("results not ready")

// StatusError reports a non-2xx response from the job service.
type StatusError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Op == "" {
		return e.Detail
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

// Unwrap lets callers match rejections with errors.Is(err, services.ErrRemoteRejected).
func (e *StatusError) Unwrap() error {
	return services.ErrRemoteRejected
}

// DetailOf returns the service-provided detail when err is a *StatusError,
// and err's text otherwise.
func DetailOf(err error) string {
	if err == nil {
		return ""
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Detail
	}
	return err.Error()
}

// parseErrorDetail extracts a human readable message from an error body: a
// JSON "detail" string, then a JSON "error" string, then the raw body, then a
// generic HTTP code.
func parseErrorDetail(statusCode int, body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return fmt.Sprintf("HTTP %d", statusCode)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err == nil {
		for _, key := range []string{"detail", "error"} {
			if value, ok := payload[key].(string); ok && strings.TrimSpace(value) != "" {
				return strings.TrimSpace(value)
			}
		}
	}
	return text
}
