package workflow

import (
	"log/slog"

	"github.com/google/uuid"

	"promap/internal/deps"
	"promap/internal/gateway"
	"promap/internal/stage"
	"promap/internal/stages"
)

// Options configures a pipeline run. Zero values select production defaults.
type Options struct {
	// ConfigPath is the optional override file; empty means promap.cfg in the
	// working directory when present.
	ConfigPath string
	// LogLevel and LogFormat override the configured logging values.
	LogLevel  string
	LogFormat string

	Logger       *slog.Logger
	Runner       gateway.Runner
	Requirements []deps.Requirement
	Stages       []stage.Stage
	RunID        string
}

func (o Options) withDefaults() Options {
	if o.Requirements == nil {
		o.Requirements = deps.PipelineRequirements()
	}
	if o.Stages == nil {
		o.Stages = stages.Pipeline()
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	return o
}

// Summary reports what a run did.
type Summary struct {
	RunID      string
	ConfigPath string
	Samples    []SampleSummary
}

// SampleSummary counts stage outcomes for one sample.
type SampleSummary struct {
	Prefix   string
	Executed int
	Skipped  int
}

// Executed is the total number of delegate-backed stage executions.
func (s Summary) Executed() int {
	total := 0
	for _, smp := range s.Samples {
		total += smp.Executed
	}
	return total
}

// Skipped is the total number of stages whose output already existed.
func (s Summary) Skipped() int {
	total := 0
	for _, smp := range s.Samples {
		total += smp.Skipped
	}
	return total
}
