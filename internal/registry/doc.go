// Package registry declares the phase graph for each workflow type.
//
// Graphs are declarative PhaseSpec tables interpreted by the workflow
// engine's topological scheduler. Cycle detection happens here, at load
// time, so a malformed graph can never surface as a runtime failure.
package registry
