package polling

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"roadeye/internal/jobs"
	"roadeye/internal/services/jobapi"
)

type scriptedSource struct {
	mu       sync.Mutex
	statuses []string
	results  int
	err      error
	calls    int
	onCall   func(call int)
}

func (s *scriptedSource) GetJob(_ context.Context, jobID string) (jobapi.JobStatus, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	hook := s.onCall
	s.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	if s.err != nil {
		return jobapi.JobStatus{}, s.err
	}
	idx := call - 1
	if idx >= len(s.statuses) {
		idx = len(s.statuses) - 1
	}
	status := jobapi.JobStatus{JobID: jobID, Status: s.statuses[idx]}
	if status.Status == "done" {
		for i := 0; i < s.results; i++ {
			status.Results = append(status.Results, json.RawMessage(`{}`))
		}
		status.ResultsPath = "results/" + jobID + ".json"
	}
	return status, nil
}

func (s *scriptedSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func newTestEngine(source StatusSource, store *jobs.Store, clock *fakeClock, opts ...Option) *Engine {
	base := []Option{WithClock(clock.Now), WithSleeper(clock.Sleep)}
	return NewEngine(source, store, append(base, opts...)...)
}

func seedRecord(store *jobs.Store, key, jobID string) {
	store.Ensure(key, key)
	store.Patch(key, jobs.Patch{}.WithRemoteJobID(jobID).WithStatus(jobs.StatusRemoteQueued))
}

func TestPollQueuedProcessingDone(t *testing.T) {
	store := jobs.NewStore()
	seedRecord(store, "a", "job-a")
	var seen []jobs.Status
	store.SetObserver(func(_, cur jobs.Record) { seen = append(seen, cur.Status) })

	source := &scriptedSource{statuses: []string{"queued", "processing", "done"}, results: 4}
	clock := newFakeClock()
	outcome := newTestEngine(source, store, clock).Poll(context.Background(), "a", "job-a", NewToken())

	if outcome != OutcomeTerminal {
		t.Fatalf("expected terminal outcome, got %s", outcome)
	}
	rec, _ := store.Get("a")
	if rec.Status != jobs.StatusDone || rec.ResultCount != 4 || rec.ResultsPath != "results/job-a.json" {
		t.Fatalf("unexpected final record %+v", rec)
	}
	if rec.RemoteJobID != "job-a" {
		t.Fatalf("remote id lost: %+v", rec)
	}
	want := []jobs.Status{jobs.StatusRemoteQueued, jobs.StatusRemoteProcessing, jobs.StatusDone}
	if len(seen) != len(want) {
		t.Fatalf("unexpected transitions %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transition %d: got %s want %s", i, seen[i], want[i])
		}
	}
	if len(clock.sleeps) != 2 || clock.sleeps[0] != 2*time.Second || clock.sleeps[1] != 3*time.Second {
		t.Fatalf("unexpected backoff %v", clock.sleeps)
	}
}

func TestPollDoneWithoutResultsCountsZero(t *testing.T) {
	store := jobs.NewStore()
	seedRecord(store, "a", "job-a")
	source := &scriptedSource{statuses: []string{"completed"}}
	newTestEngine(source, store, newFakeClock()).Poll(context.Background(), "a", "job-a", NewToken())
	rec, _ := store.Get("a")
	if rec.Status != jobs.StatusDone || rec.ResultCount != 0 {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestPollRemoteFailure(t *testing.T) {
	tests := []struct {
		name string
		err  string
		want string
	}{
		{"with detail", "model crashed", "model crashed"},
		{"generic", "", "remote job failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := jobs.NewStore()
			seedRecord(store, "a", "job-a")
			source := &failingStatus{detail: tt.err}
			newTestEngine(source, store, newFakeClock()).Poll(context.Background(), "a", "job-a", NewToken())
			rec, _ := store.Get("a")
			if rec.Status != jobs.StatusError || rec.Message != tt.want {
				t.Fatalf("unexpected record %+v", rec)
			}
		})
	}
}

type failingStatus struct{ detail string }

func (f *failingStatus) GetJob(context.Context, string) (jobapi.JobStatus, error) {
	return jobapi.JobStatus{Status: "failed", Error: f.detail}, nil
}

func TestPollAlwaysErroringTimesOut(t *testing.T) {
	store := jobs.NewStore()
	seedRecord(store, "a", "job-a")
	var seen []jobs.Status
	store.SetObserver(func(_, cur jobs.Record) { seen = append(seen, cur.Status) })

	source := &scriptedSource{err: errors.New("connection refused")}
	clock := newFakeClock()
	engine := newTestEngine(source, store, clock, WithTimeout(10*time.Second))
	outcome := engine.Poll(context.Background(), "a", "job-a", NewToken())

	if outcome != OutcomeTerminal {
		t.Fatalf("expected terminal outcome, got %s", outcome)
	}
	rec, _ := store.Get("a")
	if rec.Status != jobs.StatusTimedOut {
		t.Fatalf("expected timed out, got %+v", rec)
	}
	for _, status := range seen {
		if status == jobs.StatusDone || status == jobs.StatusError {
			t.Fatalf("unexpected transition to %s", status)
		}
	}
	// Requests at 0,2,4,6,8,10s; the 12s check exceeds the deadline.
	if source.callCount() != 6 {
		t.Fatalf("expected 6 status requests, got %d", source.callCount())
	}
}

func TestPollRetryKeepsStatusAndSetsMessage(t *testing.T) {
	store := jobs.NewStore()
	seedRecord(store, "a", "job-a")
	store.Patch("a", jobs.Patch{}.WithStatus(jobs.StatusRemoteProcessing))
	token := NewToken()
	source := &scriptedSource{err: errors.New("timeout")}
	source.onCall = func(int) { token.Cancel() }

	newTestEngine(source, store, newFakeClock()).Poll(context.Background(), "a", "job-a", token)
	rec, _ := store.Get("a")
	if rec.Status != jobs.StatusRemoteProcessing || rec.Message != retryMessage {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestCancelHaltsWithinOneIterationAndResumeFinishes(t *testing.T) {
	store := jobs.NewStore()
	seedRecord(store, "a", "job-a")
	token := NewToken()
	source := &scriptedSource{statuses: []string{"queued", "processing", "processing", "done"}, results: 1}
	source.onCall = func(call int) {
		if call == 2 {
			token.Cancel()
		}
	}
	engine := newTestEngine(source, store, newFakeClock())

	if outcome := engine.Poll(context.Background(), "a", "job-a", token); outcome != OutcomePaused {
		t.Fatalf("expected paused outcome, got %s", outcome)
	}
	if source.callCount() != 2 {
		t.Fatalf("expected polling to stop after the in-flight request, got %d calls", source.callCount())
	}
	rec, _ := store.Get("a")
	if rec.Status != jobs.StatusRemoteProcessing || !rec.Resumable() {
		t.Fatalf("expected last observed status to be kept, got %+v", rec)
	}

	source.onCall = nil
	if outcome := engine.Poll(context.Background(), "a", "job-a", NewToken()); outcome != OutcomeTerminal {
		t.Fatalf("expected terminal outcome after resume, got %s", outcome)
	}
	rec, _ = store.Get("a")
	if rec.Status != jobs.StatusDone {
		t.Fatalf("expected done after resume, got %+v", rec)
	}
}

func TestPollCancelledTokenMakesNoRequests(t *testing.T) {
	store := jobs.NewStore()
	seedRecord(store, "a", "job-a")
	before, _ := store.Get("a")
	token := NewToken()
	token.Cancel()
	token.Cancel()
	source := &scriptedSource{statuses: []string{"done"}}
	newTestEngine(source, store, newFakeClock()).Poll(context.Background(), "a", "job-a", token)
	if source.callCount() != 0 {
		t.Fatalf("expected no requests, got %d", source.callCount())
	}
	after, _ := store.Get("a")
	if after != before {
		t.Fatalf("record changed: %+v -> %+v", before, after)
	}
}

func TestPollUnknownStatusPassesThrough(t *testing.T) {
	store := jobs.NewStore()
	seedRecord(store, "a", "job-a")
	token := NewToken()
	source := &scriptedSource{statuses: []string{"running"}}
	source.onCall = func(int) { token.Cancel() }
	clock := newFakeClock()
	newTestEngine(source, store, clock).Poll(context.Background(), "a", "job-a", token)
	rec, _ := store.Get("a")
	if rec.Status != jobs.Status("running") || rec.Status.IsTerminal() {
		t.Fatalf("expected raw running status, got %+v", rec)
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 3*time.Second {
		t.Fatalf("expected processing backoff, got %v", clock.sleeps)
	}
}

func TestPollRemovedRecord(t *testing.T) {
	store := jobs.NewStore()
	seedRecord(store, "a", "job-a")
	source := &scriptedSource{statuses: []string{"processing"}}
	source.onCall = func(int) { store.Delete("a") }
	outcome := newTestEngine(source, store, newFakeClock()).Poll(context.Background(), "a", "job-a", NewToken())
	if outcome != OutcomeRemoved {
		t.Fatalf("expected removed outcome, got %s", outcome)
	}
}

func TestPollStopsWhenRecordRebound(t *testing.T) {
	store := jobs.NewStore()
	seedRecord(store, "a", "job-a")
	source := &scriptedSource{statuses: []string{"processing", "done"}}
	source.onCall = func(int) {
		store.Delete("a")
		seedRecord(store, "a", "job-b")
	}
	outcome := newTestEngine(source, store, newFakeClock()).Poll(context.Background(), "a", "job-a", NewToken())
	if outcome != OutcomeRemoved {
		t.Fatalf("expected removed outcome, got %s", outcome)
	}
	rec, _ := store.Get("a")
	if rec.RemoteJobID != "job-b" || rec.Status != jobs.StatusRemoteQueued {
		t.Fatalf("rebound record was modified: %+v", rec)
	}
}

func TestDefaultWaitIsInterruptedByToken(t *testing.T) {
	engine := NewEngine(&scriptedSource{}, jobs.NewStore())
	token := NewToken()
	done := make(chan struct{})
	go func() {
		engine.wait(context.Background(), token, time.Hour)
		close(done)
	}()
	token.Cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("wait was not interrupted by cancellation")
	}
}

func TestTokenZeroValueSafety(t *testing.T) {
	var token *Token
	token.Cancel()
	if token.Cancelled() {
		t.Fatal("nil token must never report cancelled")
	}
	if token.Done() != nil {
		t.Fatal("nil token must return a nil channel")
	}
}

func TestSecondPollForKeyWaitsForFirst(t *testing.T) {
	store := jobs.NewStore()
	seedRecord(store, "a", "job-a")
	entered := make(chan struct{})
	proceed := make(chan struct{})
	source := &scriptedSource{statuses: []string{"processing", "done"}, results: 1}
	source.onCall = func(call int) {
		if call == 1 {
			close(entered)
			<-proceed
		}
	}
	engine := newTestEngine(source, store, newFakeClock())

	first := NewToken()
	firstDone := make(chan Outcome, 1)
	go func() { firstDone <- engine.Poll(context.Background(), "a", "job-a", first) }()
	<-entered

	secondDone := make(chan Outcome, 1)
	go func() { secondDone <- engine.Poll(context.Background(), "a", "job-a", NewToken()) }()
	select {
	case outcome := <-secondDone:
		t.Fatalf("second poll returned %s while the first was still active", outcome)
	case <-time.After(50 * time.Millisecond):
	}
	if source.callCount() != 1 {
		t.Fatalf("expected a single status request so far, got %d", source.callCount())
	}

	first.Cancel()
	close(proceed)
	if outcome := <-firstDone; outcome != OutcomePaused {
		t.Fatalf("expected first poll paused, got %s", outcome)
	}
	if outcome := <-secondDone; outcome != OutcomeTerminal {
		t.Fatalf("expected second poll to finish the job, got %s", outcome)
	}
	if rec, _ := store.Get("a"); rec.Status != jobs.StatusDone {
		t.Fatalf("expected done, got %+v", rec)
	}
}

func TestWaitingPollGivesUpWhenTokenCancelled(t *testing.T) {
	store := jobs.NewStore()
	seedRecord(store, "a", "job-a")
	entered := make(chan struct{})
	proceed := make(chan struct{})
	source := &scriptedSource{statuses: []string{"processing"}}
	source.onCall = func(call int) {
		if call == 1 {
			close(entered)
			<-proceed
		}
	}
	engine := newTestEngine(source, store, newFakeClock())

	first := NewToken()
	firstDone := make(chan Outcome, 1)
	go func() { firstDone <- engine.Poll(context.Background(), "a", "job-a", first) }()
	<-entered

	second := NewToken()
	second.Cancel()
	if outcome := engine.Poll(context.Background(), "a", "job-a", second); outcome != OutcomePaused {
		t.Fatalf("expected cancelled waiter to pause, got %s", outcome)
	}

	first.Cancel()
	close(proceed)
	<-firstDone
	if source.callCount() != 1 {
		t.Fatalf("expected only the first poller to query, got %d calls", source.callCount())
	}
}

func TestPollKeepsUnrecognisedStatusVerbatim(t *testing.T) {
	store := jobs.NewStore()
	seedRecord(store, "a", "job-a")
	var seen []jobs.Status
	store.SetObserver(func(_, cur jobs.Record) { seen = append(seen, cur.Status) })
	source := &scriptedSource{statuses: []string{"Warming_Up", "done"}}
	newTestEngine(source, store, newFakeClock()).Poll(context.Background(), "a", "job-a", NewToken())

	if len(seen) != 2 || seen[0] != jobs.Status("Warming_Up") || seen[1] != jobs.StatusDone {
		t.Fatalf("unexpected transitions: %v", seen)
	}
}
