// Package stage defines the generic pipeline step: an immutable descriptor
// with an output path, an idempotency check, and the delegate invocations
// that produce the output.
//
// Execute skips a stage whose output already exists as a regular file of at
// least MinOutputBytes. Otherwise it runs each invocation through the
// gateway.Runner in order and converts any failure into a
// *services.StageFailureError naming the stage log. ValidateChain proves a
// stage list is linear before a run starts.
package stage
