// Package pipeline provides the built-in phase bodies for the content
// generation workflows: research, scripting, asset production, and
// publishing. Bodies are deterministic and write their outputs under the
// configured data directory.
package pipeline
