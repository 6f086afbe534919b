package gateway_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"promap/internal/gateway"
	"promap/internal/logging"
	"promap/internal/services"
)

func shell(script string) (string, []string) {
	return "/bin/sh", []string{"-c", script}
}

func TestLocalMergesOutputIntoLog(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "01_step.log")
	cmd, args := shell("echo to-stdout; echo to-stderr 1>&2")

	runner := gateway.NewLocal(logging.NewNop())
	result, err := runner.Run(context.Background(), gateway.Invocation{Command: cmd, Args: args, LogPath: logPath})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %d", result.ExitCode)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "to-stdout") || !strings.Contains(string(data), "to-stderr") {
		t.Fatalf("expected both streams in log, got %q", data)
	}
	if len(result.Tail) != 2 {
		t.Fatalf("expected two tail lines, got %v", result.Tail)
	}
}

func TestLocalTruncatesUnlessAppending(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "step.log")
	runner := gateway.NewLocal(nil)

	first, firstArgs := shell("echo first")
	second, secondArgs := shell("echo second")

	if _, err := runner.Run(context.Background(), gateway.Invocation{Command: first, Args: firstArgs, LogPath: logPath}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := runner.Run(context.Background(), gateway.Invocation{Command: second, Args: secondArgs, LogPath: logPath, AppendLog: true}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	data, _ := os.ReadFile(logPath)
	if string(data) != "first\nsecond\n" {
		t.Fatalf("expected appended log, got %q", data)
	}

	if _, err := runner.Run(context.Background(), gateway.Invocation{Command: second, Args: secondArgs, LogPath: logPath}); err != nil {
		t.Fatalf("third run: %v", err)
	}
	data, _ = os.ReadFile(logPath)
	if string(data) != "second\n" {
		t.Fatalf("expected truncated log, got %q", data)
	}
}

func TestLocalRedirectsStdinAndStdout(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.txt")
	output := filepath.Join(dir, "out", "result.txt")
	logPath := filepath.Join(dir, "step.log")
	if err := os.WriteFile(input, []byte("ACGT\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	cmd, args := shell("tr ACGT TGCA; echo diagnostics 1>&2")
	_, err := gateway.NewLocal(nil).Run(context.Background(), gateway.Invocation{
		Command: cmd,
		Args:    args,
		Stdin:   input,
		Stdout:  output,
		LogPath: logPath,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	got, _ := os.ReadFile(output)
	if string(got) != "TGCA\n" {
		t.Fatalf("unexpected stdout file %q", got)
	}
	logData, _ := os.ReadFile(logPath)
	if string(logData) != "diagnostics\n" {
		t.Fatalf("expected only stderr in log, got %q", logData)
	}
}

func TestLocalPropagatesExitCode(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "step.log")
	cmd, args := shell("echo boom 1>&2; exit 3")

	result, err := gateway.NewLocal(nil).Run(context.Background(), gateway.Invocation{Command: cmd, Args: args, LogPath: logPath})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if result.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", result.ExitCode)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	var exitErr *gateway.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode != 3 || exitErr.LogPath != logPath {
		t.Fatalf("unexpected exit error %#v", exitErr)
	}
	if len(result.Tail) != 1 || result.Tail[0] != "boom" {
		t.Fatalf("unexpected tail %v", result.Tail)
	}
}

func TestLocalMissingCommand(t *testing.T) {
	_, err := gateway.NewLocal(nil).Run(context.Background(), gateway.Invocation{
		Command: "promap-no-such-tool",
		LogPath: filepath.Join(t.TempDir(), "step.log"),
	})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestLocalInterruptRemovesPartialOutputs(t *testing.T) {
	dir := t.TempDir()
	partial := filepath.Join(dir, "partial.fastq")
	cmd, args := shell("echo partial > " + partial + "; sleep 30")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for range 100 {
			if _, err := os.Stat(partial); err == nil {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
		cancel()
	}()

	_, err := gateway.NewLocal(nil).Run(ctx, gateway.Invocation{
		Command: cmd,
		Args:    args,
		LogPath: filepath.Join(dir, "step.log"),
		Outputs: []string{partial},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, statErr := os.Stat(partial); !os.IsNotExist(statErr) {
		t.Fatalf("expected partial output removed, stat err=%v", statErr)
	}
}

func TestTailLimitsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	var b strings.Builder
	for i := range 50 {
		b.WriteString(strings.Repeat("x", i%5+1))
		b.WriteString("\n\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tail := gateway.Tail(path, 3)
	if len(tail) != 3 || tail[2] != "xxxxx" {
		t.Fatalf("unexpected tail %v", tail)
	}
	if gateway.Tail(filepath.Join(t.TempDir(), "missing"), 3) != nil {
		t.Fatal("expected nil tail for missing file")
	}
}

func TestCommandLine(t *testing.T) {
	inv := gateway.Invocation{Command: "fastx_reverse_complement", Args: []string{"-Q33"}, Stdin: "in.fq", Stdout: "out.fq"}
	if got := inv.CommandLine(); got != "fastx_reverse_complement -Q33 < in.fq > out.fq" {
		t.Fatalf("unexpected command line %q", got)
	}
}
