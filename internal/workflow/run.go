package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"promap/internal/config"
	"promap/internal/deps"
	"promap/internal/gateway"
	"promap/internal/journal"
	"promap/internal/logging"
	"promap/internal/preflight"
	"promap/internal/sample"
	"promap/internal/services"
	"promap/internal/stage"
)

// Run executes every stage for every reads file, stopping at the first
// failure. Before anything touches the filesystem it verifies that every
// required tool is installed.
func Run(ctx context.Context, opts Options) (Summary, error) {
	opts = opts.withDefaults()
	summary := Summary{RunID: opts.RunID}

	bootstrap := opts.Logger
	if bootstrap == nil {
		logger, _, err := logging.New(logging.Options{Level: opts.LogLevel, Format: opts.LogFormat})
		if err != nil {
			return summary, services.Wrap(services.ErrConfiguration, "", "logging", "", err)
		}
		bootstrap = logger
	}

	statuses := deps.CheckBinaries(opts.Requirements)
	if missing := deps.Missing(statuses); len(missing) > 0 {
		for _, status := range statuses {
			if status.Available {
				continue
			}
			bootstrap.Error("required tool not found",
				logging.String("tool", status.Command),
				logging.String("package", status.Name),
				logging.String(logging.FieldEventType, "dependency_missing"),
				logging.String(logging.FieldErrorHint, "install the tool or add it to PATH"),
			)
		}
		return summary, &services.MissingDependencyError{Missing: missing}
	}

	cfg, resolved, exists, err := config.Load(opts.ConfigPath)
	if err != nil {
		return summary, err
	}
	if exists {
		summary.ConfigPath = resolved
	}
	if err := ApplyLogOverrides(cfg, opts.LogLevel, opts.LogFormat); err != nil {
		return summary, err
	}

	if check := preflight.CheckReadableDirectory("Reads directory", cfg.ReadsDir); !check.Passed {
		detail := check.Detail
		if check.Missing {
			detail = ""
		}
		return summary, &services.MissingInputDirectoryError{Path: cfg.ReadsDir, Detail: detail}
	}
	if err := stage.ValidateChain(opts.Stages); err != nil {
		return summary, err
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "", "ensure log directory", cfg.LogDir, err)
	}
	logger := opts.Logger
	if logger == nil {
		runLogger, closer, err := logging.NewFromConfig(cfg)
		if err != nil {
			return summary, services.Wrap(services.ErrConfiguration, "", "logging", "", err)
		}
		defer closer.Close()
		logger = runLogger
	}
	logger = logging.NewComponentLogger(logger, "workflow")

	lock, err := acquireLock(cfg.LogDir)
	if err != nil {
		return summary, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	if err := cfg.EnsureDirectories(); err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "", "ensure directories", "", err)
	}

	j, err := journal.Open(filepath.Join(cfg.LogDir, journal.FileName))
	if err != nil {
		return summary, fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	ctx = services.WithRunID(ctx, opts.RunID)
	logger = logging.WithContext(ctx, logger)

	if _, err := j.BeginRun(ctx, opts.RunID, summary.ConfigPath); err != nil {
		return summary, fmt.Errorf("record run start: %w", err)
	}

	runner := opts.Runner
	if runner == nil {
		runner = gateway.NewLocal(logger)
	}
	p := &pipeline{
		runID:   opts.RunID,
		cfg:     cfg,
		stages:  opts.Stages,
		journal: j,
		logger:  logger,
		env:     stage.Env{Config: cfg, Runner: runner, Logger: logger},
	}

	runErr := p.run(ctx, &summary)
	// The run outcome is recorded even when ctx was cancelled.
	if err := j.FinishRun(context.WithoutCancel(ctx), opts.RunID, runErr); err != nil {
		if runErr == nil {
			return summary, fmt.Errorf("record run result: %w", err)
		}
		logger.Warn("failed to record run result", logging.Error(err))
	}
	return summary, runErr
}

// ApplyLogOverrides replaces the configured log level and format with
// non-empty command-line values and revalidates.
func ApplyLogOverrides(cfg *config.Config, level, format string) error {
	if level == "" && format == "" {
		return nil
	}
	if level != "" {
		if err := cfg.Set("log_level", strings.ToLower(level)); err != nil {
			return err
		}
	}
	if format != "" {
		if err := cfg.Set("log_format", strings.ToLower(format)); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

type pipeline struct {
	runID   string
	cfg     *config.Config
	stages  []stage.Stage
	journal *journal.Journal
	logger  *slog.Logger
	env     stage.Env
}

func (p *pipeline) run(ctx context.Context, summary *Summary) error {
	inputs, err := Discover(p.cfg.ReadsDir)
	if err != nil {
		return &services.MissingInputDirectoryError{Path: p.cfg.ReadsDir, Detail: err.Error()}
	}
	if len(inputs) == 0 {
		logging.WarnWithContext(p.logger, "no reads files found", "no_inputs",
			logging.String("reads_dir", p.cfg.ReadsDir),
			logging.String("pattern", "*"+sample.ReadsSuffix),
			logging.String(logging.FieldErrorHint, "place reads files in reads_dir or point reads_dir elsewhere"),
		)
		return nil
	}

	started := time.Now()
	p.logger.Info("pipeline starting",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("samples", len(inputs)),
		logging.Int("stages", len(p.stages)),
	)

	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := p.runSample(ctx, input)
		summary.Samples = append(summary.Samples, result)
		if err != nil {
			return err
		}
	}

	p.logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("samples", len(summary.Samples)),
		logging.Int("executed", summary.Executed()),
		logging.Int("skipped", summary.Skipped()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (p *pipeline) runSample(ctx context.Context, input string) (SampleSummary, error) {
	s, err := sample.New(input, p.cfg.LogDir)
	if err != nil {
		return SampleSummary{}, services.Wrap(services.ErrConfiguration, "", "derive sample", input, err)
	}
	result := SampleSummary{Prefix: s.Prefix}
	if err := os.MkdirAll(s.LogDir, 0o755); err != nil {
		return result, fmt.Errorf("create sample log directory: %w", err)
	}

	ctx = services.WithSample(ctx, s.Prefix)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("sample starting", logging.String("reads", input))

	for _, st := range p.stages {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		started := time.Now()
		next, outcome, execErr := st.Execute(ctx, p.env, s)
		event := journal.StageEvent{
			RunID:      p.runID,
			Sample:     s.Prefix,
			Stage:      st.Name,
			Ordinal:    st.Ordinal,
			OutputPath: st.Output(p.cfg, s),
			LogPath:    st.LogPath(s),
			Duration:   time.Since(started),
		}
		switch {
		case execErr != nil:
			event.Outcome = journal.OutcomeFailed
			var failure *services.StageFailureError
			if errors.As(execErr, &failure) {
				event.ExitCode = failure.ExitCode
			}
		case outcome == stage.OutcomeSkipped:
			event.Outcome = journal.OutcomeSkipped
			result.Skipped++
		default:
			event.Outcome = journal.OutcomeCompleted
			result.Executed++
		}
		if err := p.journal.RecordStage(context.WithoutCancel(ctx), event); err != nil {
			if execErr != nil {
				return result, errors.Join(execErr, fmt.Errorf("record stage event: %w", err))
			}
			return result, fmt.Errorf("record stage event: %w", err)
		}
		if execErr != nil {
			return result, execErr
		}
		s = next
	}

	roles := make([]string, 0, len(p.stages)+1)
	for _, role := range s.Recorded() {
		roles = append(roles, role.String())
	}
	logger.Info("sample completed",
		logging.String(logging.FieldEventType, "sample_complete"),
		logging.Int("executed", result.Executed),
		logging.Int("skipped", result.Skipped),
		logging.String("roles", strings.Join(roles, ",")),
	)
	return result, nil
}
