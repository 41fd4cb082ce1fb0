// Package intake turns command-line paths and watched directories into
// registry file handles.
//
// Collect expands files and directories once; Watcher follows directories
// with fsnotify and emits media files after they stop changing, so partially
// copied recordings are never submitted.
package intake
