package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"roadeye/internal/jobs"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	return paint(base, statusKindColor(kind), colorize)
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

// jobStatusKind buckets a job status for colouring.
func jobStatusKind(status jobs.Status) statusKind {
	switch status {
	case jobs.StatusDone:
		return statusOK
	case jobs.StatusTimedOut:
		return statusWarn
	case jobs.StatusError:
		return statusError
	default:
		return statusInfo
	}
}

func paint(value, color string, colorize bool) string {
	if !colorize || color == "" {
		return value
	}
	return color + value + ansiReset
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	return []string{paint(line, ansiBlue, colorize), paint(rule, ansiBlue, colorize)}
}

// renderJobTable draws one row per record in store order.
func renderJobTable(records []jobs.Record, colorize bool) string {
	if len(records) == 0 {
		return "No files registered"
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		results := ""
		if rec.Status == jobs.StatusDone {
			results = strconv.Itoa(rec.ResultCount)
		}
		rows = append(rows, []string{
			rec.FileName,
			paint(rec.Status.Label(), statusKindColor(jobStatusKind(rec.Status)), colorize),
			dashIfEmpty(rec.RemoteJobID),
			results,
			rec.Message,
		})
	}
	return renderTable(
		[]string{"File", "Status", "Job ID", "Results", "Message"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func renderSummaryLine(sum jobs.Summary) string {
	parts := []string{fmt.Sprintf("%d files", sum.Total)}
	for _, bucket := range []struct {
		label string
		count int
	}{
		{"done", sum.Done},
		{"failed", sum.Failed},
		{"timed out", sum.TimedOut},
		{"in progress", sum.Active},
		{"not started", sum.Pending},
	} {
		if bucket.count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", bucket.count, bucket.label))
		}
	}
	return strings.Join(parts, ", ")
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
