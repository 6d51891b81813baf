// Package bob talks to the hosted document database that holds the
// planning data: tasks, stories, goals and sprints.
package bob

import "context"

// Collection names.
const (
	Tasks   = "tasks"
	Stories = "stories"
	Goals   = "goals"
	Sprints = "sprints"
)

// Document is one raw record: its immutable key plus an untyped field
// map. Values come straight from the store and may use legacy field
// names or mixed date encodings; pkg/decode sorts that out.
type Document struct {
	ID     string
	Fields map[string]any
}

// Update is a partial merge-write against a single document. Keys are
// dot paths; values may be plain values or one of the write sentinels.
type Update struct {
	ID  string
	Set map[string]any
}

type sentinel int

// Write sentinels understood by every Store implementation.
const (
	// ServerTimestamp resolves to the server's clock at write time.
	ServerTimestamp sentinel = iota
	// DeleteField removes the field from the document.
	DeleteField
)

// Store is the narrow surface the sync engine needs from the document
// database. Implementations own transport, auth and retries.
type Store interface {
	TasksByOwner(ctx context.Context, owner string) ([]Document, error)
	StoriesByOwner(ctx context.Context, owner string) ([]Document, error)
	GoalsByIDs(ctx context.Context, ids []string) ([]Document, error)
	SprintsByIDs(ctx context.Context, ids []string) ([]Document, error)

	// ApplyBatch applies all updates to one collection in a single
	// batched write.
	ApplyBatch(ctx context.Context, collection string, updates []Update) error

	// Merge applies a partial update to a single document.
	Merge(ctx context.Context, collection, id string, set map[string]any) error
}
