package sample

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ReadsSuffix is the file suffix of raw read inputs.
const ReadsSuffix = ".fastq.gz"

var (
	// ErrRoleRecorded indicates an attempt to overwrite a role within one run.
	ErrRoleRecorded = errors.New("role already recorded")
	// ErrRoleMissing indicates a stage asked for a role no earlier stage produced.
	ErrRoleMissing = errors.New("role not yet produced")
)

// Role names an intermediate artifact threaded between stages.
type Role int

const (
	RoleReads Role = iota
	RoleUMIExtracted
	RoleClipped
	RoleTrimmed
	RoleReverseComplemented
	RoleNotRibosomal
	RoleAligned
	RoleSortedAlignment
	RoleDeduplicated
	RoleCoverageTrack
)

var roleNames = [...]string{
	RoleReads:               "reads",
	RoleUMIExtracted:        "umi-extracted",
	RoleClipped:             "clipped",
	RoleTrimmed:             "trimmed",
	RoleReverseComplemented: "reverse-complemented",
	RoleNotRibosomal:        "not-ribosomal",
	RoleAligned:             "aligned",
	RoleSortedAlignment:     "sorted-alignment",
	RoleDeduplicated:        "deduplicated",
	RoleCoverageTrack:       "coverage-track",
}

func (r Role) String() string {
	if r.Valid() {
		return roleNames[r]
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r >= RoleReads && int(r) < len(roleNames)
}

// Roles returns every role in production order.
func Roles() []Role {
	out := make([]Role, 0, len(roleNames))
	for i := range roleNames {
		out = append(out, Role(i))
	}
	return out
}

// Sample threads the artifacts of one input file through the stage chain.
// Values are immutable; With returns an updated copy.
type Sample struct {
	Prefix string
	LogDir string
	paths  map[Role]string
}

// New builds the context for a raw reads file. The prefix is the file name
// without ReadsSuffix and the log directory is {logRoot}/{prefix}.
func New(readsPath, logRoot string) (Sample, error) {
	prefix, err := PrefixFromReads(readsPath)
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		Prefix: prefix,
		LogDir: filepath.Join(logRoot, prefix),
		paths:  map[Role]string{RoleReads: readsPath},
	}, nil
}

// PrefixFromReads derives the sample identifier from a reads path.
func PrefixFromReads(readsPath string) (string, error) {
	base := filepath.Base(readsPath)
	prefix := strings.TrimSuffix(base, ReadsSuffix)
	if prefix == base || prefix == "" {
		return "", fmt.Errorf("reads file %q: expected a non-empty name ending in %s", base, ReadsSuffix)
	}
	return prefix, nil
}

// With records path under role and returns the updated sample.
func (s Sample) With(role Role, path string) (Sample, error) {
	if !role.Valid() {
		return s, fmt.Errorf("record %s: unknown role", role)
	}
	if existing, ok := s.paths[role]; ok {
		return s, fmt.Errorf("record %s for %s (already %s): %w", role, s.Prefix, existing, ErrRoleRecorded)
	}
	next := make(map[Role]string, len(s.paths)+1)
	for k, v := range s.paths {
		next[k] = v
	}
	next[role] = path
	s.paths = next
	return s, nil
}

// Path returns the artifact recorded under role.
func (s Sample) Path(role Role) (string, error) {
	path, ok := s.paths[role]
	if !ok {
		return "", fmt.Errorf("sample %s: %s: %w", s.Prefix, role, ErrRoleMissing)
	}
	return path, nil
}

// Recorded lists the recorded roles in production order.
func (s Sample) Recorded() []Role {
	out := make([]Role, 0, len(s.paths))
	for _, role := range Roles() {
		if _, ok := s.paths[role]; ok {
			out = append(out, role)
		}
	}
	return out
}
