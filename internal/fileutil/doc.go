// Package fileutil holds small filesystem helpers for writing downloaded
// results next to the user's footage.
package fileutil
