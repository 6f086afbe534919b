package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Path != present {
		t.Fatalf("expected resolved path %q, got %q", present, results[0].Path)
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("expected blank command to be reported, got %#v", results[2])
	}
}

func TestMissingSkipsOptionalAndAvailable(t *testing.T) {
	statuses := []Status{
		{Requirement: Requirement{Command: "a"}, Available: true},
		{Requirement: Requirement{Command: "b"}},
		{Requirement: Requirement{Command: "c", Optional: true}},
		{Requirement: Requirement{Command: "d"}},
	}
	missing := Missing(statuses)
	if len(missing) != 2 || missing[0] != "b" || missing[1] != "d" {
		t.Fatalf("unexpected missing list %v", missing)
	}
}

func TestPipelineRequirementsAllMissingOnEmptyPath(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	reqs := PipelineRequirements()
	missing := Missing(CheckBinaries(reqs))
	if len(missing) != len(reqs) {
		t.Fatalf("expected all %d tools missing, got %v", len(reqs), missing)
	}
}

func TestPipelineRequirementsResolveFromPath(t *testing.T) {
	binDir := t.TempDir()
	script := []byte("#!/bin/sh\nexit 0\n")
	for _, req := range PipelineRequirements() {
		if err := os.WriteFile(filepath.Join(binDir, req.Command), script, 0o755); err != nil {
			t.Fatalf("write stub %s: %v", req.Command, err)
		}
	}
	t.Setenv("PATH", binDir)

	if missing := Missing(CheckBinaries(PipelineRequirements())); len(missing) != 0 {
		t.Fatalf("expected no missing tools, got %v", missing)
	}
}

func TestPipelineRequirementsCoverEveryStage(t *testing.T) {
	seen := map[string]bool{}
	for _, req := range PipelineRequirements() {
		if req.Optional {
			t.Fatalf("pipeline requirement %s must not be optional", req.Name)
		}
		for _, stage := range req.Stages {
			seen[stage] = true
		}
	}
	for _, stage := range []string{
		"extract_umi", "clip_adapter", "trim_length", "reverse_complement",
		"ribosomal_filter", "align_genome", "convert_index", "deduplicate", "coverage_track",
	} {
		if !seen[stage] {
			t.Fatalf("no requirement lists stage %s", stage)
		}
	}
}
