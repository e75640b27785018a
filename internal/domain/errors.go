package domain

import "errors"

// Sentinel errors for cache and sync operations
var (
	// ErrUnknownTable indicates a table name outside the fixed mirrored set
	ErrUnknownTable = errors.New("unknown table")

	// ErrRemoteUnavailable indicates the remote store is unreachable or timed out
	ErrRemoteUnavailable = errors.New("remote store is unreachable")

	// ErrRemoteRejected indicates the remote store rejected the request itself
	ErrRemoteRejected = errors.New("remote store rejected the request")

	// ErrCacheMiss indicates no readable snapshot exists for a table
	ErrCacheMiss = errors.New("no cached snapshot")

	// ErrNoData indicates neither the remote store nor the cache could provide records
	ErrNoData = errors.New("no data available")
)
