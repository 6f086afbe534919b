package sample_test

import (
	"errors"
	"path/filepath"
	"testing"

	"promap/internal/sample"
)

func TestPrefixFromReads(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "/data/fastq/sampleA.fastq.gz", want: "sampleA"},
		{path: "lane1.R1.fastq.gz", want: "lane1.R1"},
		{path: "/data/fastq/.fastq.gz", wantErr: true},
		{path: "/data/fastq/sampleA.fq.gz", wantErr: true},
	}
	for _, tc := range tests {
		got, err := sample.PrefixFromReads(tc.path)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("PrefixFromReads(%q): expected error", tc.path)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("PrefixFromReads(%q) = %q, %v; want %q", tc.path, got, err, tc.want)
		}
	}
}

func TestNewRecordsReads(t *testing.T) {
	s, err := sample.New("/data/fastq/sampleA.fastq.gz", "/work/log")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Prefix != "sampleA" || s.LogDir != filepath.Join("/work/log", "sampleA") {
		t.Fatalf("unexpected sample %+v", s)
	}
	reads, err := s.Path(sample.RoleReads)
	if err != nil || reads != "/data/fastq/sampleA.fastq.gz" {
		t.Fatalf("unexpected reads path %q, %v", reads, err)
	}
}

func TestWithIsCopyOnWrite(t *testing.T) {
	base, _ := sample.New("/in/s.fastq.gz", "/log")
	next, err := base.With(sample.RoleUMIExtracted, "/tmp/s_umi.fastq")
	if err != nil {
		t.Fatalf("With: %v", err)
	}
	if _, err := base.Path(sample.RoleUMIExtracted); !errors.Is(err, sample.ErrRoleMissing) {
		t.Fatal("original sample must not observe the new role")
	}
	if _, err := next.Path(sample.RoleUMIExtracted); err != nil {
		t.Fatal("updated sample should carry the new role")
	}
	if got := next.Recorded(); len(got) != 2 || got[1] != sample.RoleUMIExtracted {
		t.Fatalf("unexpected recorded roles %v", got)
	}
}

func TestWithRejectsOverwrite(t *testing.T) {
	s, _ := sample.New("/in/s.fastq.gz", "/log")
	s, _ = s.With(sample.RoleClipped, "/tmp/a")
	if _, err := s.With(sample.RoleClipped, "/tmp/b"); !errors.Is(err, sample.ErrRoleRecorded) {
		t.Fatalf("expected ErrRoleRecorded, got %v", err)
	}
	if _, err := s.With(sample.Role(42), "/tmp/c"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestPathMissingRole(t *testing.T) {
	s, _ := sample.New("/in/s.fastq.gz", "/log")
	if _, err := s.Path(sample.RoleAligned); !errors.Is(err, sample.ErrRoleMissing) {
		t.Fatalf("expected ErrRoleMissing, got %v", err)
	}
}

func TestRolesOrdered(t *testing.T) {
	roles := sample.Roles()
	if len(roles) != 10 || roles[0] != sample.RoleReads || roles[9] != sample.RoleCoverageTrack {
		t.Fatalf("unexpected roles %v", roles)
	}
	if sample.RoleNotRibosomal.String() != "not-ribosomal" {
		t.Fatalf("unexpected role label %q", sample.RoleNotRibosomal)
	}
	if sample.Role(99).String() != "role(99)" {
		t.Fatalf("unexpected label for unknown role")
	}
}
