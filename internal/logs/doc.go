// Package logs reads back the session log file written by roadeye.
//
// Tail returns the last N lines (optionally only those matching a job or
// file) and can wait for new lines in follow mode. Entry decodes the JSON
// records the logging package writes so `roadeye logs` can print them in a
// compact form.
package logs
