// Package gateway runs the external tools that do the real work of each
// pipeline stage.
//
// One Invocation maps to one synchronous child process. Output is captured in
// the stage log file and the exit code is reported verbatim; a non-zero code
// surfaces as *ExitError, which matches services.ErrExternalTool. Stage and
// workflow code depend on the Runner interface so tests can substitute a fake.
package gateway
