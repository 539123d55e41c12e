package index

import "errors"

var (
	// ErrUnavailable indicates the index cannot be reached. A broad
	// retrieval hitting this aborts the whole query; retrieval without the
	// index would silently return nothing.
	ErrUnavailable = errors.New("retrieval unavailable: vector index unreachable")

	// ErrDimensionMismatch indicates a vector with the wrong number of
	// components for this deployment.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
