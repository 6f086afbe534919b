package workflow

import (
	"os"

	"promap/internal/config"
	"promap/internal/sample"
	"promap/internal/stage"
)

// StageStatus reports whether a stage's product is on disk for a sample.
type StageStatus struct {
	Stage   string
	Ordinal int
	Output  string
	Size    int64
	// Present applies the same size rule as the idempotency check.
	Present bool
}

// SampleStatus lists stage products for one reads file.
type SampleStatus struct {
	Prefix string
	Reads  string
	Stages []StageStatus
}

// Complete reports whether every stage product is present.
func (s SampleStatus) Complete() bool {
	for _, st := range s.Stages {
		if !st.Present {
			return false
		}
	}
	return len(s.Stages) > 0
}

// Inspect evaluates the on-disk state of every discovered sample without
// running anything.
func Inspect(cfg *config.Config, stages []stage.Stage) ([]SampleStatus, error) {
	inputs, err := Discover(cfg.ReadsDir)
	if err != nil {
		return nil, err
	}
	out := make([]SampleStatus, 0, len(inputs))
	for _, input := range inputs {
		s, err := sample.New(input, cfg.LogDir)
		if err != nil {
			return nil, err
		}
		status := SampleStatus{Prefix: s.Prefix, Reads: input}
		for _, st := range stages {
			output := st.Output(cfg, s)
			entry := StageStatus{Stage: st.Name, Ordinal: st.Ordinal, Output: output}
			if info, err := os.Stat(output); err == nil {
				entry.Size = info.Size()
			}
			entry.Present = stage.OutputPresent(output)
			status.Stages = append(status.Stages, entry)
		}
		out = append(out, status)
	}
	return out, nil
}
