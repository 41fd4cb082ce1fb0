package jobapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"roadeye/internal/config"
	"roadeye/internal/services"
)

const (
	defaultHTTPTimeout = 300 * time.Second
	maxErrorBodyBytes  = 64 << 10
)

// HTTPDoer describes the HTTP client used by the job service client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config captures the runtime settings required to talk to the job service.
type Config struct {
	BaseURL    string
	APIToken   string
	UploadMode string
	Timeout    time.Duration
}

// Client wraps the job service HTTP API.
type Client struct {
	cfg  Config
	doer HTTPDoer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.doer = doer
		}
	}
}

// NewClient constructs a job service client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &Client{
		cfg: Config{
			BaseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIToken:   strings.TrimSpace(cfg.APIToken),
			UploadMode: strings.ToLower(strings.TrimSpace(cfg.UploadMode)),
			Timeout:    timeout,
		},
		doer: &http.Client{Timeout: timeout},
	}
	if client.cfg.UploadMode == "" {
		client.cfg.UploadMode = config.UploadModeDirect
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// NewFromConfig builds a client from application configuration.
func NewFromConfig(cfg *config.Config, opts ...Option) *Client {
	if cfg == nil {
		return NewClient(Config{}, opts...)
	}
	return NewClient(Config{
		BaseURL:    cfg.Service.BaseURL,
		APIToken:   cfg.Service.APIToken,
		UploadMode: cfg.Upload.Mode,
		Timeout:    cfg.RequestTimeout(),
	}, opts...)
}

// BaseURL returns the normalized service root.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// CreateJob registers a new job for filename requesting the given asset
// categories and returns the remote job identifier.
func (c *Client) CreateJob(ctx context.Context, assets []string, filename string) (string, error) {
	var resp createJobResponse
	body := createJobRequest{Assets: assets, Filename: filename}
	if err := c.doJSON(ctx, "create job", http.MethodPost, "/jobs", body, &resp); err != nil {
		return "", err
	}
	jobID := strings.TrimSpace(resp.JobID)
	if jobID == "" {
		return "", services.Wrap(services.ErrRemoteRejected, "creating_job", "create job", "response missing job_id", nil)
	}
	return jobID, nil
}

// Process enqueues an uploaded job and returns the status reported by the
// service (typically "queued").
func (c *Client) Process(ctx context.Context, jobID string) (string, error) {
	var resp statusResponse
	if err := c.doJSON(ctx, "enqueue job", http.MethodPost, jobPath(jobID, "process"), nil, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Status), nil
}

// GetJob fetches the current status of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (JobStatus, error) {
	var resp JobStatus
	if err := c.doJSON(ctx, "get job", http.MethodGet, jobPath(jobID), nil, &resp); err != nil {
		return JobStatus{}, err
	}
	return resp, nil
}

// GetResults fetches the detection results of a finished job. It returns
// ErrResultsPending while the service answers 202.
func (c *Client) GetResults(ctx context.Context, jobID string) (Results, error) {
	resp, err := c.send(ctx, "get results", http.MethodGet, jobPath(jobID, "results"), nil, "")
	if err != nil {
		return Results{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusAccepted {
		return Results{}, ErrResultsPending
	}
	var out Results
	if err := decodeBody(resp, "get results", &out); err != nil {
		return Results{}, err
	}
	return out, nil
}

// VideoURL returns a short-lived download URL for the uploaded media.
func (c *Client) VideoURL(ctx context.Context, jobID string) (string, error) {
	var resp videoResponse
	if err := c.doJSON(ctx, "get video", http.MethodGet, jobPath(jobID, "video"), nil, &resp); err != nil {
		return "", err
	}
	return resp.VideoURL, nil
}

// Health checks that the service is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, "health", http.MethodGet, "/health", nil, nil)
}

func jobPath(jobID string, suffix ...string) string {
	parts := append([]string{"jobs", url.PathEscape(jobID)}, suffix...)
	return "/" + strings.Join(parts, "/")
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}
	resp, err := c.send(ctx, op, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeBody(resp, op, out)
}

// send issues a request against the service root and converts non-2xx
// responses into *StatusError.
func (c *Client) send(ctx context.Context, op, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	if c.cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", op, "service base_url is not configured", nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	c.decorate(ctx, req)
	return c.do(req, op)
}

func (c *Client) decorate(ctx context.Context, req *http.Request) {
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", rid)
	}
}

func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "", op, "request failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Detail: parseErrorDetail(resp.StatusCode, data)}
	}
	return resp, nil
}

func decodeBody(resp *http.Response, op string, out any) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransient, "", op, "decode response", err)
	}
	return nil
}
