package ingest

import "errors"

// Error kinds surfaced by the data source adapter. Callers match them with
// errors.Is; every returned error wraps one of these plus the underlying
// cause.
var (
	// ErrConnection marks an unreachable or misconfigured relational source.
	ErrConnection = errors.New("connection failed")

	// ErrQuery marks a malformed statement or a failure during execution.
	ErrQuery = errors.New("query failed")

	// ErrEmptyResult marks a query that succeeded but returned zero rows.
	// An empty result is a pipeline error, not a valid state.
	ErrEmptyResult = errors.New("query returned no rows")

	// ErrTransport marks a network failure fetching a remote resource.
	ErrTransport = errors.New("transport failed")

	// ErrMalformedSource marks a remote payload that is not valid tabular CSV.
	ErrMalformedSource = errors.New("malformed source")
)
