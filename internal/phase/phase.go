package phase

import "context"

// Request carries the immutable workflow inputs every phase body can read.
type Request struct {
	WorkflowID string
	Topic      string
	Platforms  []string
	Style      string
	Tone       string
}

// Outputs exposes read access to the results of phases that have already
// terminated, so a later phase can consume an earlier phase's output.
type Outputs interface {
	// Request returns the workflow inputs.
	Request() Request
	// Payload returns the result payload of a terminated phase.
	Payload(name string) (any, bool)
	// Completed reports whether a phase terminated successfully.
	Completed(name string) bool
	// Failed returns the error message of a phase that terminated in
	// failure.
	Failed(name string) (string, bool)
}

// Output is what a phase body hands back to the engine.
type Output struct {
	// Payload is the phase result stored on the execution and visible to
	// downstream phases.
	Payload any
	// CostUSD is the spend incurred by this phase.
	CostUSD float64
	// Artifacts are list-valued outputs merged into the workflow result
	// by concatenation, so parallel phases never overwrite each other.
	Artifacts Artifacts
}

// Func is the body of one workflow phase. Bodies should honor ctx: the
// engine wraps each invocation with the workflow's deadline and cancels
// it on shutdown.
type Func func(ctx context.Context, outputs Outputs) (Output, error)

// Set maps phase names to bodies.
type Set map[string]Func
