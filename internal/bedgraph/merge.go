package bedgraph

import (
	"bufio"
	"cmp"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// ErrMalformed marks a bedGraph line that does not have four usable columns.
var ErrMalformed = errors.New("malformed bedGraph line")

// Strand identifies which file an interval came from.
type Strand int8

const (
	Plus Strand = iota
	Minus
)

// Interval is one bedGraph record.
type Interval struct {
	Chrom  string
	Start  int64
	End    int64
	Score  float64
	Strand Strand
}

// Merge combines per-strand coverage into one signed, gzip-compressed track.
// Zero-score intervals are dropped, minus-strand scores are negated, and the
// result is ordered by chromosome then start with plus before minus on ties.
// The strand files are removed once the merged track is in place.
func Merge(plusPath, minusPath, outPath string) error {
	plus, err := readFile(plusPath, Plus)
	if err != nil {
		return err
	}
	minus, err := readFile(minusPath, Minus)
	if err != nil {
		return err
	}
	merged := append(plus, minus...)
	Sort(merged)

	if err := writeGzip(outPath, merged); err != nil {
		return err
	}
	for _, path := range []string{plusPath, minusPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove strand file: %w", err)
		}
	}
	return nil
}

// Sort orders intervals by chromosome, start, then strand.
func Sort(intervals []Interval) {
	slices.SortStableFunc(intervals, func(a, b Interval) int {
		if c := strings.Compare(a.Chrom, b.Chrom); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.Strand, b.Strand)
	})
}

func readFile(path string, strand Strand) ([]Interval, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open coverage %s: %w", path, err)
	}
	defer file.Close()
	intervals, err := Read(file, strand)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return intervals, nil
}

// Read parses bedGraph records from r. Header lines (track, browser, #) and
// blank lines are skipped, as are records with a zero score. Minus-strand
// scores are negated.
func Read(r io.Reader, strand Strand) ([]Interval, error) {
	var out []Interval
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "track") || strings.HasPrefix(text, "browser") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 4 {
			return nil, fmt.Errorf("line %d: %w: expected 4 columns, got %d", line, ErrMalformed, len(fields))
		}
		start, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: start %q", line, ErrMalformed, fields[1])
		}
		end, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: end %q", line, ErrMalformed, fields[2])
		}
		score, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: score %q", line, ErrMalformed, fields[3])
		}
		if score == 0 {
			continue
		}
		if strand == Minus {
			score = -score
		}
		out = append(out, Interval{Chrom: fields[0], Start: start, End: end, Score: score, Strand: strand})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return out, nil
}

// Write renders intervals as tab-separated bedGraph.
func Write(w io.Writer, intervals []Interval) error {
	bw := bufio.NewWriter(w)
	for _, iv := range intervals {
		if _, err := fmt.Fprintf(bw, "%s\t%d\t%d\t%s\n", iv.Chrom, iv.Start, iv.End, strconv.FormatFloat(iv.Score, 'f', -1, 64)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writeGzip writes to a sibling temp file and renames it over outPath so an
// interrupted merge never leaves a plausible-looking track behind.
func writeGzip(outPath string, intervals []Interval) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure coverage directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(outPath), "."+filepath.Base(outPath)+".*")
	if err != nil {
		return fmt.Errorf("create coverage temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	zw, err := gzip.NewWriterLevel(tmp, gzip.BestCompression)
	if err != nil {
		tmp.Close()
		return err
	}
	if err := Write(zw, intervals); err != nil {
		tmp.Close()
		return fmt.Errorf("write coverage: %w", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("finish gzip stream: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close coverage temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod coverage: %w", err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		return fmt.Errorf("install coverage track: %w", err)
	}
	return nil
}
