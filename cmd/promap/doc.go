// Package main hosts the promap CLI entrypoint and command graph.
//
// The Cobra command tree resolves the configuration file, applies the global
// logging overrides, and hands off to the workflow package. Reporting
// commands (check, stages, status) only read state; run is the only command
// that invokes external tools.
package main
