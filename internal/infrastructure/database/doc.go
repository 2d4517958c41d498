// Package database manages the bridge's SQLite store.
//
// It wraps database/sql with SQLite-appropriate settings (WAL, busy
// timeout, single pooled connection) and applies embedded schema
// migrations at startup. The store holds entity state history; the cache
// itself is memory-only and never touches disk.
package database
