package records

import (
	"errors"
	"fmt"
)

// ── Record ─────────────────────────────────────────────────
// Common intermediate data format.
// All sources emit Records; the retriever turns them into field maps.

// Record is a single row fetched from an upstream store.
type Record struct {
	Data map[string]any `json:"data"`
}

// Query selects records of one object by equality on a single field.
type Query struct {
	Object  string   `json:"object"`
	Fields  []string `json:"fields"`
	Where   string   `json:"where"`
	Equals  any      `json:"equals"`
	OrderBy []string `json:"orderBy,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

var (
	// ErrNotFound indicates the upstream store holds no matching record.
	ErrNotFound = errors.New("records: not found")

	// ErrUpstream classifies failures talking to the upstream store.
	ErrUpstream = errors.New("records: upstream failure")

	// ErrNoSource indicates no record source has been configured.
	ErrNoSource = errors.New("records: record source not initialized")
)

// UpstreamError wraps a failed query against one object.
type UpstreamError struct {
	Object string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("failed to query %s: %v", e.Object, e.Err)
}

func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstream, e.Err} }

// NotFoundError reports which object and key had no record.
type NotFoundError struct {
	Object string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s records found for %q", e.Object, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
