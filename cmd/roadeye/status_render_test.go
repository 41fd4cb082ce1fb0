package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"roadeye/internal/jobs"
	"roadeye/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Job service", statusError, "unreachable", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Job service:", "[ERROR] unreachable")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Job service", statusOK, "reachable", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderJobTable(t *testing.T) {
	records := []jobs.Record{
		{FileName: "a.mp4", Status: jobs.StatusDone, RemoteJobID: "job-1", ResultCount: 7, Message: "completed"},
		{FileName: "b.mp4", Status: jobs.StatusError, Message: "create job failed: bad codec"},
		{FileName: "c.mp4", Status: jobs.StatusQueued},
	}
	out := renderJobTable(records, false)
	for _, want := range []string{"a.mp4", "Done", "job-1", "7", "Error", "bad codec", "Queued"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, ansiReset) {
		t.Fatal("uncoloured table should not contain escape codes")
	}
	if got := renderJobTable(nil, false); got != "No files registered" {
		t.Fatalf("unexpected empty table %q", got)
	}
}

func TestRenderSummaryLine(t *testing.T) {
	got := renderSummaryLine(jobs.Summary{Total: 4, Done: 2, Failed: 1, Active: 1})
	if got != "4 files, 2 done, 1 failed, 1 in progress" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestJobStatusKind(t *testing.T) {
	tests := map[jobs.Status]statusKind{
		jobs.StatusDone:             statusOK,
		jobs.StatusTimedOut:         statusWarn,
		jobs.StatusError:            statusError,
		jobs.StatusRemoteProcessing: statusInfo,
	}
	for status, want := range tests {
		if got := jobStatusKind(status); got != want {
			t.Errorf("%s: got %v want %v", status, got, want)
		}
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestPreflightLines(t *testing.T) {
	lines := preflightLines([]preflight.Result{
		{Name: "Job service", Passed: true, Detail: "http://svc (reachable)"},
		{Name: "Notifications", Optional: true, Detail: "disabled"},
		{Name: "State directory", Detail: "/missing (error: does not exist)"},
	}, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, want := range []string{"[OK] http://svc", "[WARN] disabled", "[ERROR] /missing"} {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d: expected %q in %q", i, want, lines[i])
		}
	}
}
