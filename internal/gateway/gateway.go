package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"promap/internal/logging"
	"promap/internal/services"
)

// TailLines is the number of trailing log lines attached to a Result.
const TailLines = 20

// Invocation describes a single external tool call.
type Invocation struct {
	Command string
	Args    []string
	// Stdin, when set, is opened and fed to the process.
	Stdin string
	// Stdout, when set, receives the process stdout; only stderr reaches LogPath.
	Stdout string
	// LogPath receives the merged output. It is truncated unless AppendLog is set.
	LogPath   string
	AppendLog bool
	// Outputs lists the files the tool is expected to write. They are removed
	// when the invocation is interrupted.
	Outputs []string
}

// CommandLine renders the invocation for logs and error messages.
func (inv Invocation) CommandLine() string {
	parts := make([]string, 0, len(inv.Args)+3)
	parts = append(parts, inv.Command)
	parts = append(parts, inv.Args...)
	line := strings.Join(parts, " ")
	if inv.Stdin != "" {
		line += " < " + inv.Stdin
	}
	if inv.Stdout != "" {
		line += " > " + inv.Stdout
	}
	return line
}

// Result reports how an invocation finished.
type Result struct {
	ExitCode int
	LogPath  string
	Tail     []string
}

// Runner executes external tools. Implementations must make exactly one
// attempt and block until the process exits.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// ExitError reports a non-zero exit status from an external tool.
type ExitError struct {
	Command  string
	ExitCode int
	LogPath  string
}

func (e *ExitError) Error() string {
	if e.LogPath == "" {
		return fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d (log: %s)", e.Command, e.ExitCode, e.LogPath)
}

func (e *ExitError) Unwrap() error { return services.ErrExternalTool }

// Local runs tools as child processes of the current process.
type Local struct {
	logger *slog.Logger
}

// NewLocal constructs a Runner backed by os/exec.
func NewLocal(logger *slog.Logger) *Local {
	return &Local{logger: logging.NewComponentLogger(logger, "gateway")}
}

// Run starts inv.Command and waits for it. The context only serves to kill
// the child on interrupt; there is no timeout.
func (l *Local) Run(ctx context.Context, inv Invocation) (Result, error) {
	result := Result{ExitCode: -1, LogPath: inv.LogPath}
	if strings.TrimSpace(inv.Command) == "" {
		return result, services.Wrap(services.ErrExternalTool, "", "run", "empty command", nil)
	}

	logger := logging.WithContext(ctx, l.logger)
	logger.Debug("invoking external tool",
		logging.String("command", inv.CommandLine()),
		logging.String("log_path", inv.LogPath),
	)

	logFile, err := openLog(inv.LogPath, inv.AppendLog)
	if err != nil {
		return result, err
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, inv.Command, inv.Args...) //nolint:gosec
	cmd.Stderr = logFile
	cmd.Stdout = logFile

	if inv.Stdin != "" {
		in, err := os.Open(inv.Stdin)
		if err != nil {
			return result, fmt.Errorf("open stdin %s: %w", inv.Stdin, err)
		}
		defer in.Close()
		cmd.Stdin = in
	}
	if inv.Stdout != "" {
		if err := os.MkdirAll(filepath.Dir(inv.Stdout), 0o755); err != nil {
			return result, fmt.Errorf("ensure stdout directory: %w", err)
		}
		out, err := os.Create(inv.Stdout)
		if err != nil {
			return result, fmt.Errorf("create stdout %s: %w", inv.Stdout, err)
		}
		defer out.Close()
		cmd.Stdout = out
	}

	runErr := cmd.Run()
	result.Tail = Tail(inv.LogPath, TailLines)

	if runErr == nil {
		result.ExitCode = 0
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, l.interrupted(logger, inv, ctxErr)
		}
		return result, &ExitError{Command: inv.Command, ExitCode: result.ExitCode, LogPath: inv.LogPath}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, l.interrupted(logger, inv, ctxErr)
	}
	return result, services.Wrap(services.ErrExternalTool, "", "start "+inv.Command, "could not start tool", runErr)
}

func (l *Local) interrupted(logger *slog.Logger, inv Invocation, cause error) error {
	partial := append([]string(nil), inv.Outputs...)
	if inv.Stdout != "" {
		partial = append(partial, inv.Stdout)
	}
	for _, path := range partial {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("could not remove partial output",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "partial_output_cleanup_failed"),
			)
		}
	}
	return fmt.Errorf("%s interrupted: %w", inv.Command, cause)
}

// openLog returns the file the tool output is merged into. An empty path
// discards output.
func openLog(path string, appendLog bool) (*os.File, error) {
	if path == "" {
		return os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendLog {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tool log %s: %w", path, err)
	}
	return file, nil
}

// Tail returns up to n trailing non-empty lines of the file at path.
func Tail(path string, n int) []string {
	if path == "" || n <= 0 {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	const window = 16 * 1024
	info, err := file.Stat()
	if err != nil {
		return nil
	}
	offset := info.Size() - window
	if offset < 0 {
		offset = 0
	}
	buf, err := io.ReadAll(io.NewSectionReader(file, offset, info.Size()-offset))
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	if offset > 0 && len(lines) > 1 {
		lines = lines[1:]
	}
	out := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(out) < n; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		out = append(out, lines[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
