package preflight

import (
	"promap/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name    string
	Passed  bool
	Missing bool
	Detail  string
}

// RunAll checks the reads directory and every directory a run writes into.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckReadableDirectory("Reads directory", cfg.ReadsDir)}
	results = append(results, CheckOutputDirectory("Log directory", cfg.LogDir))
	outputs := []struct {
		name string
		path string
	}{
		{"Temporary directory", cfg.TmpDir},
		{"Ribosomal alignments", cfg.AlignRibosomeDir},
		{"Unmapped reads", cfg.AlignUnmappedDir},
		{"BAM directory", cfg.AlignBAMDir},
		{"Bedgraph directory", cfg.AlignBedgraphDir},
	}
	for _, out := range outputs {
		results = append(results, CheckOutputDirectory(out.name, out.path))
	}
	return results
}
