// Package daemon hosts the long-running service: single-instance locking,
// the workflow manager lifecycle, and the HTTP API with its event stream.
package daemon
