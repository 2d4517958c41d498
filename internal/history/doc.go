// Package history records entity state changes to SQLite.
//
// The Repository owns the state_history table; the Recorder sits between
// the event feed and the repository, writing asynchronously so disk
// latency never backs up event processing. Retention is enforced by a
// periodic prune.
package history
