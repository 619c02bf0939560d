// Package kv implements the quorum-replicated key/value store: a
// single-writer leader that fans writes out to N followers and reports
// success once W acknowledgements have arrived, plus the follower-side
// replication intake.
package kv

import "errors"

var (
	// ErrNotFound is returned by Read when the key is absent. It is a
	// distinct success code, not a failure in the recoverable-error
	// sense (spec §7).
	ErrNotFound = errors.New("not found")

	// ErrQuorumFailure is returned by a leader Write when fewer than W
	// of N followers ever acknowledged.
	ErrQuorumFailure = errors.New("quorum failure")

	// ErrInvalidKey flags an empty key, which no replica accepts.
	ErrInvalidKey = errors.New("invalid key")
)
