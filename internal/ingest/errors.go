package ingest

import (
	"errors"

	"github.com/covtrack/covtrack/internal/parser"
	"github.com/covtrack/covtrack/internal/report"
)

// ErrLockTimeout is returned when the caller's context expires while waiting
// for the per-project lock. The upload had no effect and may be retried.
var ErrLockTimeout = errors.New("timed out waiting for project lock")

// CommitError wraps a durable-write failure during the commit step. The
// caller may retry; a report ID only becomes valid once the whole commit
// transaction succeeds, so a failed commit leaves no partial state.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string { return "commit failed: " + e.Err.Error() }

func (e *CommitError) Unwrap() error { return e.Err }

// Rejected reports whether an ingestion error was caused by the upload itself
// (unrecognized format, malformed content, invariant violation) rather than
// by lock contention or storage failure. Rejected uploads are not retryable.
func Rejected(err error) bool {
	var parseErr *parser.ParseError
	var validationErr *report.ValidationError
	return errors.Is(err, parser.ErrFormatUnrecognized) ||
		errors.As(err, &parseErr) ||
		errors.As(err, &validationErr)
}
