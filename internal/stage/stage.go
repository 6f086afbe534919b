package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"promap/internal/config"
	"promap/internal/gateway"
	"promap/internal/logging"
	"promap/internal/sample"
	"promap/internal/services"
)

// MinOutputBytes is the smallest existing output treated as a finished
// product. It is a guard against truncated files from an interrupted run and
// says nothing about content correctness.
const MinOutputBytes = 500

// Outcome reports what Execute did for a sample.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Env carries the run-wide collaborators a stage needs.
type Env struct {
	Config *config.Config
	Runner gateway.Runner
	Logger *slog.Logger
}

// PathFunc resolves a path from the configuration and the sample so far.
type PathFunc func(cfg *config.Config, s sample.Sample) string

// CommandFunc builds the delegate invocations. input is the path of the
// consumed role and output the stage's product path. LogPath and AppendLog are
// filled in by Execute.
type CommandFunc func(cfg *config.Config, s sample.Sample, input, output string) []gateway.Invocation

// FinalizeFunc runs in-process after every invocation succeeded.
type FinalizeFunc func(ctx context.Context, env Env, s sample.Sample, output string) error

// Stage is an immutable descriptor of one step of the chain.
type Stage struct {
	Name        string
	Ordinal     int
	Description string
	// Tools names the external commands the stage invokes.
	Tools    []string
	Consumes sample.Role
	Produces sample.Role
	Output   PathFunc
	// Artifacts lists secondary files written alongside Output.
	Artifacts func(cfg *config.Config, s sample.Sample) []string
	Commands  CommandFunc
	Finalize  FinalizeFunc
}

// LogName is the per-sample log file name, e.g. 03_trim_length.log.
func (st Stage) LogName() string {
	return fmt.Sprintf("%02d_%s.log", st.Ordinal, st.Name)
}

// LogPath is where the delegate output for s is captured.
func (st Stage) LogPath(s sample.Sample) string {
	return filepath.Join(s.LogDir, st.LogName())
}

// OutputPresent reports whether path holds a finished product: a regular
// file of at least MinOutputBytes.
func OutputPresent(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() >= MinOutputBytes
}

// Execute runs the stage for s unless its output already exists. The
// returned sample has the produced role recorded in both cases.
func (st Stage) Execute(ctx context.Context, env Env, s sample.Sample) (sample.Sample, Outcome, error) {
	if env.Config == nil || env.Runner == nil {
		return s, OutcomeCompleted, fmt.Errorf("stage %s: config and runner are required", st.Name)
	}
	ctx = services.WithStage(services.WithSample(ctx, s.Prefix), st.Name)
	logger := logging.WithContext(ctx, env.Logger)

	output := st.Output(env.Config, s)
	if OutputPresent(output) {
		next, err := s.With(st.Produces, output)
		if err != nil {
			return s, OutcomeSkipped, err
		}
		logger.Info("output already exists",
			logging.String(logging.FieldEventType, "stage_skip"),
			logging.String("output", output),
		)
		return next, OutcomeSkipped, nil
	}

	input, err := s.Path(st.Consumes)
	if err != nil {
		return s, OutcomeCompleted, fmt.Errorf("stage %s: %w", st.Name, err)
	}
	if err := st.ensureDirectories(env.Config, s, output); err != nil {
		return s, OutcomeCompleted, err
	}

	logPath := st.LogPath(s)
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("input", input),
		logging.String("output", output),
	)

	invocations := st.Commands(env.Config, s, input, output)
	produced := []string{output}
	for i, inv := range invocations {
		inv.LogPath = logPath
		inv.AppendLog = i > 0
		produced = append(produced, inv.Outputs...)
		if inv.Stdout != "" {
			produced = append(produced, inv.Stdout)
		}
		result, runErr := env.Runner.Run(ctx, inv)
		if runErr != nil {
			return s, OutcomeCompleted, st.fail(logger, s, produced, logPath, result, runErr)
		}
	}
	if st.Finalize != nil {
		if err := st.Finalize(ctx, env, s, output); err != nil {
			return s, OutcomeCompleted, st.fail(logger, s, produced, logPath, gateway.Result{}, err)
		}
	}

	next, err := s.With(st.Produces, output)
	if err != nil {
		return s, OutcomeCompleted, err
	}
	if !OutputPresent(output) {
		logging.WarnWithContext(logger, "stage output below size threshold",
			"stage_output_small",
			logging.String("output", output),
			logging.Int("min_bytes", MinOutputBytes),
			logging.String(logging.FieldErrorHint, "the stage will run again on the next invocation"),
		)
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("output", output),
	)
	return next, OutcomeCompleted, nil
}

func (st Stage) ensureDirectories(cfg *config.Config, s sample.Sample, output string) error {
	dirs := []string{s.LogDir, filepath.Dir(output)}
	if st.Artifacts != nil {
		for _, artifact := range st.Artifacts(cfg, s) {
			dirs = append(dirs, filepath.Dir(artifact))
		}
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrConfiguration, st.Name, "ensure directory", dir, err)
		}
	}
	return nil
}

// fail removes every file the stage's invocations declared, so the next run
// repeats the whole stage.
func (st Stage) fail(logger *slog.Logger, s sample.Sample, produced []string, logPath string, result gateway.Result, cause error) error {
	for _, path := range produced {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("could not remove partial output",
				logging.String(logging.FieldEventType, "partial_output_cleanup_failed"),
				logging.String("output", path),
				logging.Error(err),
			)
		}
	}
	exitCode := result.ExitCode
	if exitCode < 0 {
		exitCode = 0
	}
	failure := &services.StageFailureError{
		Stage:    st.Name,
		Sample:   s.Prefix,
		LogPath:  logPath,
		ExitCode: exitCode,
		Err:      cause,
	}
	attrs := []logging.Attr{
		logging.String("log_path", logPath),
		logging.Int("exit_code", exitCode),
		logging.String(logging.FieldErrorHint, "inspect "+logPath),
		logging.Error(cause),
	}
	if len(result.Tail) > 0 {
		attrs = append(attrs, logging.String("log_tail", strings.Join(result.Tail, "\n")))
	}
	logging.ErrorWithContext(logger, "stage failed", "stage_failure", attrs...)
	return failure
}
