// Package storage provides audit.Storage backends.
//
// MemoryStorage is for tests and ephemeral runs. SQLiteStorage uses
// github.com/mattn/go-sqlite3 (cgo) with WAL mode and a versioned schema.
package storage
