package stage_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"promap/internal/sample"
	"promap/internal/stage"
)

func linearChain() []stage.Stage {
	return []stage.Stage{
		copyStage(1, "extract_umi", sample.RoleReads, sample.RoleUMIExtracted),
		copyStage(2, "clip_adapter", sample.RoleUMIExtracted, sample.RoleClipped),
		copyStage(3, "trim_length", sample.RoleClipped, sample.RoleTrimmed),
	}
}

func TestValidateChainAcceptsLinearChain(t *testing.T) {
	if err := stage.ValidateChain(linearChain()); err != nil {
		t.Fatalf("ValidateChain: %v", err)
	}
}

func TestValidateChainRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]stage.Stage) []stage.Stage
	}{
		{"empty", func([]stage.Stage) []stage.Stage { return nil }},
		{"ordinal gap", func(s []stage.Stage) []stage.Stage { s[2].Ordinal = 4; return s }},
		{"duplicate producer", func(s []stage.Stage) []stage.Stage { s[2].Produces = sample.RoleClipped; return s }},
		{"consumes later role", func(s []stage.Stage) []stage.Stage { s[1].Consumes = sample.RoleTrimmed; return s }},
		{"produces reads", func(s []stage.Stage) []stage.Stage { s[0].Produces = sample.RoleReads; return s }},
		{"missing commands", func(s []stage.Stage) []stage.Stage { s[1].Commands = nil; return s }},
		{"reordered", func(s []stage.Stage) []stage.Stage { s[0], s[1] = s[1], s[0]; return s }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := stage.ValidateChain(tc.mutate(linearChain()))
			if !errors.Is(err, stage.ErrInvalidChain) {
				t.Fatalf("expected ErrInvalidChain, got %v", err)
			}
		})
	}
}

func TestWriteDOT(t *testing.T) {
	var buf bytes.Buffer
	if err := stage.WriteDOT(&buf, linearChain()); err != nil {
		t.Fatalf("WriteDOT: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"digraph", "extract_umi", "trim_length", "umi-extracted"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in DOT output:\n%s", want, out)
		}
	}
}

func TestLogName(t *testing.T) {
	st := copyStage(9, "coverage_track", sample.RoleDeduplicated, sample.RoleCoverageTrack)
	if st.LogName() != "09_coverage_track.log" {
		t.Fatalf("unexpected log name %q", st.LogName())
	}
}
