// Package apperr defines the error taxonomy shared by the persistence engine
// and its edges (HTTP, MCP, CLI). Callers classify with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrDateConflict = errors.New("date already in use")
	ErrInvalidNote  = errors.New("invalid note")
)

// Persistence failures.
var (
	// ErrCapabilityUnavailable means the environment cannot do handle-based
	// file I/O. Cache-only mode stays usable.
	ErrCapabilityUnavailable = errors.New("file handle capability unavailable")

	// ErrUserCancelled is a normal negative outcome of an interactive prompt.
	ErrUserCancelled = errors.New("cancelled by user")

	// ErrLoadFormat marks malformed plaintext or envelope content.
	ErrLoadFormat = errors.New("invalid file format")

	// ErrDecryption covers both a wrong password and corrupted ciphertext.
	ErrDecryption = errors.New("invalid password or corrupted data")

	ErrCacheWrite  = errors.New("cache write failed")
	ErrHandleWrite = errors.New("file write failed")
)

// Password prompt failures.
var (
	ErrEmptyPassword   = errors.New("password cannot be empty")
	ErrNoPendingPrompt = errors.New("no password request pending")
)

// IsCancelled reports whether err is a user cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrUserCancelled)
}
