// Package preflight provides filesystem readiness checks for a run.
//
// These checks run in two contexts:
//   - The workflow calls CheckReadableDirectory on the reads directory before
//     touching any sample; a missing directory aborts the run.
//   - The CLI "promap check" command uses RunAll to display the state of every
//     directory a run reads from or writes into.
package preflight
