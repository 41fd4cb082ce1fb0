package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"roadeye/internal/config"
	"roadeye/internal/jobs"
)

const userAgent = "roadeye/0.1.0"

// Service defines the notification surface used by the orchestrator and CLI.
type Service interface {
	NotifyBatchStarted(ctx context.Context, files int, assets []string) error
	NotifyBatchCompleted(ctx context.Context, summary jobs.Summary, duration time.Duration) error
	NotifyJobFailed(ctx context.Context, record jobs.Record) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		batch:    cfg.Notifications.Batch,
		errors:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	batch    bool
	errors   bool
}

func (n *ntfyService) NotifyBatchStarted(ctx context.Context, files int, assets []string) error {
	if !n.batch {
		return nil
	}
	noun := "files"
	if files == 1 {
		noun = "file"
	}
	message := fmt.Sprintf("Submitting %d %s", files, noun)
	if len(assets) > 0 {
		message += "\nAssets: " + strings.Join(assets, ", ")
	}
	return n.send(ctx, payload{
		title:   "roadeye - Batch Started",
		message: message,
		tags:    []string{"roadeye", "batch", "started"},
	})
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, summary jobs.Summary, duration time.Duration) error {
	if !n.batch {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "roadeye - Batch Complete"
	failed := summary.Failed + summary.TimedOut
	if failed > 0 {
		title = "roadeye - Batch Complete (with errors)"
	}
	message := fmt.Sprintf("%d done, %d failed, %d timed out in %s", summary.Done, summary.Failed, summary.TimedOut, duration)
	if summary.Active > 0 {
		message += fmt.Sprintf("\n%d still in progress", summary.Active)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"roadeye", "batch", "completed"},
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, record jobs.Record) error {
	if !n.errors {
		return nil
	}
	message := fmt.Sprintf("%s: %s", record.FileName, record.Status.Label())
	if msg := strings.TrimSpace(record.Message); msg != "" {
		message += "\n" + msg
	}
	if record.RemoteJobID != "" {
		message += "\nJob: " + record.RemoteJobID
	}
	return n.send(ctx, payload{
		title:    "roadeye - Job " + record.Status.Label(),
		message:  message,
		tags:     []string{"roadeye", "job", string(record.Status)},
		priority: "high",
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "roadeye - Error",
		message:  builder.String(),
		tags:     []string{"roadeye", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "roadeye - Test",
		message:  "Notification system test",
		tags:     []string{"roadeye", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyBatchStarted(context.Context, int, []string) error                  { return nil }
func (noopService) NotifyBatchCompleted(context.Context, jobs.Summary, time.Duration) error { return nil }
func (noopService) NotifyJobFailed(context.Context, jobs.Record) error                      { return nil }
func (noopService) NotifyError(context.Context, error, string) error                        { return nil }
func (noopService) TestNotification(context.Context) error                                  { return nil }
