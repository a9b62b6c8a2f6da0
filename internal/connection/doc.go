// Package connection manages the link to the editor and correlates commands
// with their replies.
//
// A Connection owns at most one live link at a time. Connection attempts are
// single-flight: concurrent callers join the attempt already in progress.
// When the link drops unexpectedly, every pending command fails with
// ErrConnectionLost and, if enabled, a background loop reconnects with
// exponential backoff.
//
// SendCommand is the command facade: it connects on demand, assigns a
// correlation id, tracks the command until its reply, its deadline, or the
// loss of the link, and maps the outcome to a result or a typed error.
package connection
