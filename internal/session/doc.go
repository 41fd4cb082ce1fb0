// Package session assembles the components of one submission session from
// configuration and guards it with a lock file so two interactive sessions do
// not submit the same state directory concurrently.
package session
