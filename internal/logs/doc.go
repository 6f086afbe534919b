// Package logs reads per-stage and run log files for display.
//
// Last returns the trailing lines of a file with bounded memory. Since and
// Follow pick up appended output by offset, restarting from the top when a
// file shrinks, which happens when a stage reruns and truncates its log.
package logs
