package jobs

import "time"

// Record is the client-side view of one file's job. Store hands out copies;
// mutate through Store.Patch only.
type Record struct {
	Key         string
	FileName    string
	Status      Status
	RemoteJobID string
	Message     string
	ResultCount int
	ResultsPath string
	UpdatedAt   time.Time

	// Generation changes every time a record is created for a key, so a
	// file removed and added again gets a distinct value.
	Generation uint64
}

// HasRemoteJob reports whether the job service accepted a creation request.
func (r Record) HasRemoteJob() bool {
	return r.RemoteJobID != ""
}

// Resumable reports whether polling can be restarted for the record. Only
// jobs the service has accepted into its queue qualify; a pipeline stopped
// while creating, uploading or enqueueing is not recovered.
func (r Record) Resumable() bool {
	return r.HasRemoteJob() && r.Status.IsRemote()
}

// InFlight reports whether a pipeline has started and not yet reached a
// terminal state.
func (r Record) InFlight() bool {
	return r.Status != StatusQueued && !r.Status.IsTerminal()
}

// Patch describes a merge update. Nil fields are left untouched.
type Patch struct {
	Status      *Status
	RemoteJobID *string
	Message     *string
	ResultCount *int
	ResultsPath *string

	ifGeneration  *uint64
	ifRemoteJobID *string
}

// WithStatus returns a copy of p that sets the status.
func (p Patch) WithStatus(status Status) Patch {
	p.Status = &status
	return p
}

// WithRemoteJobID returns a copy of p that sets the remote job identifier.
func (p Patch) WithRemoteJobID(id string) Patch {
	p.RemoteJobID = &id
	return p
}

// WithMessage returns a copy of p that sets the message.
func (p Patch) WithMessage(message string) Patch {
	p.Message = &message
	return p
}

// WithResults returns a copy of p that records the result count and location.
func (p Patch) WithResults(count int, path string) Patch {
	p.ResultCount = &count
	p.ResultsPath = &path
	return p
}

// IfGeneration returns a copy of p that only applies while the record still
// has the given generation.
func (p Patch) IfGeneration(gen uint64) Patch {
	p.ifGeneration = &gen
	return p
}

// IfRemoteJobID returns a copy of p that only applies while the record is
// still bound to the given remote job.
func (p Patch) IfRemoteJobID(id string) Patch {
	p.ifRemoteJobID = &id
	return p
}

func (p Patch) matches(r *Record) bool {
	if p.ifGeneration != nil && r.Generation != *p.ifGeneration {
		return false
	}
	if p.ifRemoteJobID != nil && r.RemoteJobID != *p.ifRemoteJobID {
		return false
	}
	return true
}

// Transition is shorthand for a status plus message patch.
func Transition(status Status, message string) Patch {
	return Patch{}.WithStatus(status).WithMessage(message)
}

func (p Patch) apply(r *Record) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.RemoteJobID != nil {
		r.RemoteJobID = *p.RemoteJobID
	}
	if p.Message != nil {
		r.Message = *p.Message
	}
	if p.ResultCount != nil {
		r.ResultCount = *p.ResultCount
	}
	if p.ResultsPath != nil {
		r.ResultsPath = *p.ResultsPath
	}
}

// Summary aggregates record counts by lifecycle bucket.
type Summary struct {
	Total    int
	Pending  int
	Active   int
	Done     int
	Failed   int
	TimedOut int
}
