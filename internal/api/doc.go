// Package api defines the JSON payloads exchanged between the daemon's
// HTTP server and the CLI client.
package api
