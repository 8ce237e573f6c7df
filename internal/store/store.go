// Package store defines the remote record store surface the conversation
// core is allowed to depend on: an opaque select/update RPC pair over
// loosely-typed records. Persisted layout belongs to the store, not to us.
package store

import "context"

// Table names recognized by the record store
const (
	TableThreads  = "threads"
	TableMessages = "messages"
)

// RawRecord is a loosely-typed persisted record. Field names and value types
// are inconsistent across store versions; only the normalize package may
// interpret them.
type RawRecord map[string]interface{}

// SelectParams identifies the records to read
type SelectParams struct {
	Table string // threads or messages
	Index string // optional index hint, ignored by backends without one
	Key   string // column to match; empty means select all
	Value interface{}
}

// SelectResult carries the matched raw records
type SelectResult struct {
	Items []RawRecord
}

// UpdateParams identifies the records to patch and the field patch to apply
type UpdateParams struct {
	Table string
	Index string
	Key   string
	Value interface{}
	Patch map[string]interface{}
}

// UpdateResult reports whether the write was applied
type UpdateResult struct {
	Success bool
}

// RecordStore is the remote persistence collaborator. Both calls have
// unspecified latency and may fail transiently on every invocation; callers
// must pass a context with an explicit timeout.
type RecordStore interface {
	Select(ctx context.Context, p SelectParams) (*SelectResult, error)
	Update(ctx context.Context, p UpdateParams) (*UpdateResult, error)
}
