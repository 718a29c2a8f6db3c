// Package store persists conversations, messages, and the offline event
// backlog in an embedded CloverDB document store.
//
// Documents carry an application-level "id" field; CloverDB's internal
// document ids are never exposed. Timestamps are stored as int64 Unix
// nanoseconds so range queries and sorting stay cheap. All CloverDB types
// stay inside this package; the rest of the tree sees only the domain
// interfaces.
package store
