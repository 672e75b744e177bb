// Package todo implements the in-memory todo collection backing the MCP
// todo tools.
//
// # Data Model
//
// A Todo has an opaque random id, a non-empty title, a completed flag and
// a creation timestamp. The id is unique for the lifetime of the process
// and is never reused after deletion. List always returns todos in
// creation order.
//
// # Lifecycle
//
// Todos are created via Create, flipped to completed via Complete
// (idempotent, never reverts), and removed via Delete. The store starts
// empty and all state is discarded when the process exits.
//
// # Concurrency
//
// The store is safe for concurrent use. Mutations are serialized behind a
// write lock; List and Get run concurrently with each other under the
// read lock but never overlap a mutation.
package todo
