package testsupport

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"promap/internal/gateway"
)

// FakeRunner is a gateway.Runner that writes plausible outputs instead of
// running tools. Every declared output and stdout target receives content
// large enough to pass the idempotency threshold.
type FakeRunner struct {
	mu    sync.Mutex
	calls []gateway.Invocation

	// FailWhen, when set, makes matching invocations exit with status 1.
	FailWhen func(gateway.Invocation) bool
	// OutputSize is the byte count of generic outputs. Defaults to 600.
	OutputSize int
}

// Run records inv and fabricates its outputs.
func (f *FakeRunner) Run(ctx context.Context, inv gateway.Invocation) (gateway.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	f.mu.Unlock()

	result := gateway.Result{LogPath: inv.LogPath}
	if err := ctx.Err(); err != nil {
		result.ExitCode = -1
		return result, err
	}
	if err := appendLog(inv); err != nil {
		return result, err
	}
	if f.FailWhen != nil && f.FailWhen(inv) {
		result.ExitCode = 1
		result.Tail = gateway.Tail(inv.LogPath, gateway.TailLines)
		return result, &gateway.ExitError{Command: inv.Command, ExitCode: 1, LogPath: inv.LogPath}
	}

	targets := append([]string(nil), inv.Outputs...)
	if inv.Stdout != "" {
		targets = append(targets, inv.Stdout)
	}
	for _, path := range targets {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return result, err
		}
		if err := os.WriteFile(path, f.content(path), 0o644); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Calls returns a snapshot of the recorded invocations.
func (f *FakeRunner) Calls() []gateway.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.Invocation(nil), f.calls...)
}

// CommandLines returns the recorded invocations rendered as command lines.
func (f *FakeRunner) CommandLines() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, inv := range calls {
		out[i] = inv.CommandLine()
	}
	return out
}

// Reset clears the recorded invocations.
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

func (f *FakeRunner) content(path string) []byte {
	if strings.HasSuffix(path, ".bedgraph") {
		return BedGraph(path, 2000)
	}
	size := f.OutputSize
	if size <= 0 {
		size = 600
	}
	return []byte(strings.Repeat("B", size))
}

func appendLog(inv gateway.Invocation) error {
	if inv.LogPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(inv.LogPath), 0o755); err != nil {
		return err
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if inv.AppendLog {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(inv.LogPath, flags, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = fmt.Fprintf(file, "fake: %s\n", inv.CommandLine())
	return err
}

// BedGraph generates n deterministic bedGraph lines seeded by name.
func BedGraph(name string, n int) []byte {
	var seed uint64
	for _, r := range name {
		seed = seed*31 + uint64(r)
	}
	rng := rand.New(rand.NewPCG(seed, 7))
	chroms := []string{"chr1", "chr2", "chrX"}

	var b strings.Builder
	start := 0
	for i := range n {
		chrom := chroms[i*len(chroms)/n]
		start += 1 + rng.IntN(40)
		score := rng.IntN(12)
		fmt.Fprintf(&b, "%s\t%d\t%d\t%d\n", chrom, start, start+1, score)
	}
	return []byte(b.String())
}
