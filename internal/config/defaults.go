package config

const (
	defaultBaseURL                = "http://127.0.0.1:8000"
	defaultRequestTimeout         = 300
	defaultUploadMode             = UploadModeDirect
	defaultStateDir               = "~/.local/share/roadeye"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultPollTimeoutHours       = 12
	defaultQueuedInterval         = 2
	defaultProcessingInterval     = 3
	defaultRetryInterval          = 2
	defaultNotifyRequestTimeout   = 10
	defaultMaxPollTimeoutHours    = 24 * 7
	defaultMaxPollIntervalSeconds = 600
)

// Upload modes understood by the job service client.
const (
	UploadModeDirect    = "direct"
	UploadModePresigned = "presigned"
)

var defaultExtensions = []string{".mp4", ".mov", ".mkv", ".avi", ".m4v", ".webm"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Service: Service{
			BaseURL:        defaultBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Upload: Upload{
			Mode:       defaultUploadMode,
			Extensions: append([]string(nil), defaultExtensions...),
		},
		Polling: Polling{
			Enabled:            true,
			TimeoutHours:       defaultPollTimeoutHours,
			QueuedInterval:     defaultQueuedInterval,
			ProcessingInterval: defaultProcessingInterval,
			RetryInterval:      defaultRetryInterval,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Batch:          true,
			Errors:         true,
		},
	}
}
