package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"promap/internal/config"
	"promap/internal/deps"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a fresh temp directory. The reads
// directory exists; every output directory does not.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.CPUs = 2
	cfgVal.TmpDir = filepath.Join(base, "tmp")
	cfgVal.LogDir = filepath.Join(base, "log")
	cfgVal.ReadsDir = filepath.Join(base, "fastq")
	cfgVal.AlignRibosomeDir = filepath.Join(base, "sam_rdna")
	cfgVal.AlignUnmappedDir = filepath.Join(base, "fastq_unmapped")
	cfgVal.AlignBAMDir = filepath.Join(base, "bam")
	cfgVal.AlignBedgraphDir = filepath.Join(base, "bedgraph")
	cfgVal.BowtieGenomePrefix = filepath.Join(base, "ref", "genome")
	cfgVal.BowtieRDNAPrefix = filepath.Join(base, "ref", "rdna")
	if err := os.MkdirAll(cfgVal.ReadsDir, 0o755); err != nil {
		t.Fatalf("mkdir reads dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithUMIPattern overrides the UMI barcode pattern.
func WithUMIPattern(pattern string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.UMIPattern = pattern
	}
}

// WithAdapter sets the adapter sequence clipped in stage two.
func WithAdapter(adapter string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Adapter = adapter
	}
}

// WithReads creates small gzip-suffixed reads files in the reads directory.
func WithReads(names ...string) ConfigOption {
	return func(b *configBuilder) {
		for _, name := range names {
			WriteFile(b.t, filepath.Join(b.cfg.ReadsDir, name), 128)
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, every pipeline tool is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			for _, req := range deps.PipelineRequirements() {
				names = append(names, req.Command)
			}
		}
		binDir := StubBinaries(b.t, filepath.Join(b.baseDir, "bin"), names...)
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// WithIsolatedPath points PATH at an empty directory so no tool resolves.
func WithIsolatedPath() ConfigOption {
	return func(b *configBuilder) {
		empty := filepath.Join(b.baseDir, "empty-bin")
		if err := os.MkdirAll(empty, 0o755); err != nil {
			b.t.Fatalf("mkdir empty bin: %v", err)
		}
		b.t.Setenv("PATH", empty)
	}
}

// StubBinaries writes executables that exit 0 into dir and returns dir.
func StubBinaries(t testing.TB, dir string, names ...string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	script := []byte("#!/bin/sh\nexit 0\n")
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), script, 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	return dir
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.LogDir)
}

// WriteConfigFile renders cfg in the flat key=value form and returns its path.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("# generated for tests\n")
	for _, key := range config.Keys() {
		value, _ := cfg.Lookup(key)
		if value == "" {
			continue
		}
		fmt.Fprintf(&b, "%s=%s\n", key, value)
	}
	path := filepath.Join(BaseDir(cfg), config.DefaultConfigName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
