package logs

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Entry is one decoded JSON log record.
type Entry struct {
	Time      string `json:"ts"`
	Level     string `json:"level"`
	Message   string `json:"msg"`
	Component string `json:"component"`
	JobID     string `json:"job_id"`
	FileKey   string `json:"file_key"`
	EventType string `json:"event_type"`
	Error     string `json:"error"`
}

// ParseEntry decodes line. It reports false for lines that are not JSON
// records.
func ParseEntry(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		return Entry{}, false
	}
	return e, true
}

// MatchSubject returns a line filter accepting records whose job id or file
// key equals subject. An empty subject accepts everything.
func MatchSubject(subject string) func(string) bool {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil
	}
	return func(line string) bool {
		e, ok := ParseEntry(line)
		return ok && (e.JobID == subject || e.FileKey == subject)
	}
}

// Format renders the entry on one line for terminal output.
func (e Entry) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s", e.Time, strings.ToUpper(e.Level))
	if e.Component != "" {
		fmt.Fprintf(&b, " [%s]", e.Component)
	}
	if e.JobID != "" {
		fmt.Fprintf(&b, " %s", e.JobID)
	}
	fmt.Fprintf(&b, " %s", e.Message)
	if e.Error != "" {
		fmt.Fprintf(&b, " (error: %s)", e.Error)
	}
	return b.String()
}

// FormatLine renders line as an Entry when it decodes and returns it
// unchanged otherwise.
func FormatLine(line string) string {
	if e, ok := ParseEntry(line); ok {
		return e.Format()
	}
	return line
}
