package bedgraph_test

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"promap/internal/bedgraph"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func gunzip(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read gzip: %v", err)
	}
	return string(data)
}

func TestMergeSignsPrunesAndSorts(t *testing.T) {
	dir := t.TempDir()
	plus := filepath.Join(dir, "s_plus.bedgraph")
	minus := filepath.Join(dir, "s_minus.bedgraph")
	out := filepath.Join(dir, "out", "s.bedgraph.gz")

	write(t, plus, "track type=bedGraph\nchr2\t10\t11\t3\nchr1\t5\t6\t0\nchr1\t7\t8\t2\n")
	write(t, minus, "chr1\t7\t8\t4\nchr1\t1\t2\t1.5\nchr2\t9\t10\t0\n")

	if err := bedgraph.Merge(plus, minus, out); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	want := strings.Join([]string{
		"chr1\t1\t2\t-1.5",
		"chr1\t7\t8\t2",
		"chr1\t7\t8\t-4",
		"chr2\t10\t11\t3",
	}, "\n") + "\n"
	if got := gunzip(t, out); got != want {
		t.Fatalf("unexpected merged track:\n%s\nwant:\n%s", got, want)
	}
	for _, path := range []string{plus, minus} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected strand file %s removed", path)
		}
	}
}

func TestMergeIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	var outputs [][]byte
	for i := range 2 {
		plus := filepath.Join(dir, "plus.bedgraph")
		minus := filepath.Join(dir, "minus.bedgraph")
		write(t, plus, "chr1\t1\t2\t5\n")
		write(t, minus, "chr1\t3\t4\t6\n")
		out := filepath.Join(dir, "run", string(rune('a'+i)), "s.bedgraph.gz")
		if err := bedgraph.Merge(plus, minus, out); err != nil {
			t.Fatalf("Merge: %v", err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		outputs = append(outputs, data)
	}
	if !bytes.Equal(outputs[0], outputs[1]) {
		t.Fatal("expected byte-identical output across runs")
	}
}

func TestMergeMalformedLine(t *testing.T) {
	dir := t.TempDir()
	plus := filepath.Join(dir, "plus.bedgraph")
	minus := filepath.Join(dir, "minus.bedgraph")
	out := filepath.Join(dir, "s.bedgraph.gz")
	write(t, plus, "chr1\t1\t2\t5\n")
	write(t, minus, "chr1\t1\t2\n")

	err := bedgraph.Merge(plus, minus, out)
	if !errors.Is(err, bedgraph.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if !strings.Contains(err.Error(), minus) || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("expected file and line in %q", err.Error())
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("no output should be written on malformed input")
	}
	if _, statErr := os.Stat(plus); statErr != nil {
		t.Fatal("strand files must be kept when the merge fails")
	}
}

func TestMergeMissingInput(t *testing.T) {
	dir := t.TempDir()
	if err := bedgraph.Merge(filepath.Join(dir, "none"), filepath.Join(dir, "none2"), filepath.Join(dir, "o.gz")); err == nil {
		t.Fatal("expected error for missing strand file")
	}
}
