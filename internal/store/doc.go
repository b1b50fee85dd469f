// Package store persists the rotation pointer, a single non-negative
// integer, across process restarts.
//
// Three backends are provided:
//   - FileStore: the integer as plain text in one file
//   - SQLiteStore: a one-row key/value table in an embedded SQLite database
//   - MemoryStore: no durability, for single-process deployments and tests
package store
