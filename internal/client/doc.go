// Package client is the CLI's HTTP client for the daemon API, including
// the server-sent event stream.
package client
