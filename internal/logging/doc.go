// Package logging assembles structured slog loggers for promap.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code tags its lines
// with the run id, sample, and stage automatically. Per-stage tool output is
// not routed through here; external tools write their own log files.
package logging
