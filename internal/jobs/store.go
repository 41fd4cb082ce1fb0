package jobs

import (
	"sync"
	"time"
)

// ChangeFunc observes a record after a patch has been applied.
type ChangeFunc func(previous, current Record)

// Store is the in-memory owner of every job record in a session. All access
// is serialized; a patch is fully applied before any reader observes it.
type Store struct {
	mu       sync.Mutex
	records  map[string]*Record
	order    []string
	observer ChangeFunc
	now      func() time.Time
	gen      uint64
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// SetObserver registers fn to be called after each successful patch. The
// callback runs outside the store lock and must not assume ordering across
// keys.
func (s *Store) SetObserver(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = fn
}

// Ensure creates a Queued record for key unless one already exists. It
// reports whether a record was created.
func (s *Store) Ensure(key, fileName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; ok {
		return false
	}
	s.gen++
	s.records[key] = &Record{
		Key:        key,
		FileName:   fileName,
		Status:     StatusQueued,
		UpdatedAt:  s.now().UTC(),
		Generation: s.gen,
	}
	s.order = append(s.order, key)
	return true
}

// Delete removes the record for key. Unknown keys are ignored.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return
	}
	delete(s.records, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Patch merges p into the record for key and returns the updated copy. It
// reports false when the record no longer exists (the file was removed) or
// when a guard set with IfGeneration or IfRemoteJobID does not match.
func (s *Store) Patch(key string, p Patch) (Record, bool) {
	s.mu.Lock()
	rec, ok := s.records[key]
	if !ok || !p.matches(rec) {
		s.mu.Unlock()
		return Record{}, false
	}
	previous := *rec
	p.apply(rec)
	rec.UpdatedAt = s.now().UTC()
	current := *rec
	observer := s.observer
	s.mu.Unlock()

	if observer != nil {
		observer(previous, current)
	}
	return current, true
}

// Get returns a copy of the record for key.
func (s *Store) Get(key string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Snapshot returns copies of every record in creation order.
func (s *Store) Snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.records[key])
	}
	return out
}

// Resumable returns records whose remote job is queued or running on the
// service.
func (s *Store) Resumable() []Record {
	var out []Record
	for _, rec := range s.Snapshot() {
		if rec.Resumable() {
			out = append(out, rec)
		}
	}
	return out
}

// Summary aggregates the current records by lifecycle bucket.
func (s *Store) Summary() Summary {
	var sum Summary
	for _, rec := range s.Snapshot() {
		sum.Total++
		switch {
		case rec.Status == StatusQueued:
			sum.Pending++
		case rec.Status == StatusDone:
			sum.Done++
		case rec.Status == StatusError:
			sum.Failed++
		case rec.Status == StatusTimedOut:
			sum.TimedOut++
		default:
			sum.Active++
		}
	}
	return sum
}
