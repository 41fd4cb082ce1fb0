package jobs

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status is the display-level lifecycle state of one file's job. Remote
// statuses the client does not recognise are carried verbatim.
type Status string

const (
	StatusQueued           Status = "pending"
	StatusCreatingJob      Status = "creating_job"
	StatusUploading        Status = "uploading"
	StatusEnqueueing       Status = "enqueueing"
	StatusRemoteQueued     Status = "queued"
	StatusRemoteProcessing Status = "processing"
	StatusDone             Status = "done"
	StatusError            Status = "error"
	StatusTimedOut         Status = "timed_out"
)

var terminalStatuses = map[Status]struct{}{
	StatusDone:     {},
	StatusError:    {},
	StatusTimedOut: {},
}

var localStatuses = map[Status]struct{}{
	StatusQueued:      {},
	StatusCreatingJob: {},
	StatusUploading:   {},
	StatusEnqueueing:  {},
}

var statusLabels = map[Status]string{
	StatusQueued:           "Queued",
	StatusCreatingJob:      "Creating job",
	StatusUploading:        "Uploading",
	StatusEnqueueing:       "Enqueueing",
	StatusRemoteQueued:     "Remote queued",
	StatusRemoteProcessing: "Processing",
	StatusDone:             "Done",
	StatusError:            "Error",
	StatusTimedOut:         "Timed out",
}

// IsTerminal reports whether no further transitions occur from this status.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// IsRemote reports whether the status was reported by the job service, that
// is, the job has been handed to the remote queue.
func (s Status) IsRemote() bool {
	if s == "" || s.IsTerminal() {
		return false
	}
	_, local := localStatuses[s]
	return !local
}

// Label returns the human readable form shown in status tables.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	raw := strings.TrimSpace(string(s))
	if raw == "" {
		return "Unknown"
	}
	return cases.Title(language.Und).String(strings.ReplaceAll(raw, "_", " "))
}

// FromRemote maps a raw remote status string onto a display status. Unknown
// values pass through unchanged.
func FromRemote(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queued":
		return StatusRemoteQueued
	case "processing":
		return StatusRemoteProcessing
	}
	return Status(raw)
}
