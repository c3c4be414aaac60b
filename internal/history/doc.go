// Package history persists terminated workflow executions to SQLite so
// results survive daemon restarts.
package history
