// Package workflow drives reads files through the stage chain.
//
// Run gates on tool availability, loads configuration, checks the reads
// directory, takes the run lock, and then processes samples one at a time in
// lexical order. Stages for a sample run strictly in declared order and the
// first failure ends the whole run; later samples are never started. Every
// stage outcome is written to the journal, but resumption relies only on the
// outputs present on disk.
package workflow
