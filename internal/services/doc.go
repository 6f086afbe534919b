// Package services defines shared utilities consumed by the pipeline stages
// and the workflow orchestrator.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, sample prefixes, and stage
//     names for logging.
//   - Structured error markers plus typed errors for the run-fatal failure
//     classes (missing tools, missing config, missing reads directory, stage
//     failure). Callers match them with errors.Is / errors.As.
//
// Every error defined here is fatal to a run; nothing in promap recovers
// locally.
package services
