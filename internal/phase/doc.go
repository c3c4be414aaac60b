// Package phase defines the contract between the workflow engine and the
// bodies that do the actual work of each phase.
package phase
