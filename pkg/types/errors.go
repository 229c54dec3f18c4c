package types

import "errors"

// Error taxonomy shared across the pipeline. Callers classify failures with
// errors.Is and react per category: input errors are surfaced immediately,
// dimension mismatches are configuration errors requiring an explicit
// destroy+recreate, and transient backend failures are retried with bounded
// backoff before being surfaced as ErrBackendUnavailable.
var (
	// ErrEmptyInput is returned for blank query or chunk text.
	ErrEmptyInput = errors.New("input text is empty")

	// ErrInvalidInput is returned for structurally invalid requests.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch is returned when an index exists with a different
	// vector dimension than requested. Fatal; never retried.
	ErrDimensionMismatch = errors.New("index dimension mismatch")

	// ErrInvalidVector is returned on upsert when the chunk vector length does
	// not match the index dimension. No partial write occurs.
	ErrInvalidVector = errors.New("vector length does not match index dimension")

	// ErrEncoding is returned when no sub-chunk yields a usable vector. The
	// affected chunk is skipped and the run continues.
	ErrEncoding = errors.New("no usable vector produced")

	// ErrBackendUnavailable is returned after transient backend failures have
	// exhausted their retry budget.
	ErrBackendUnavailable = errors.New("index backend unavailable")
)
