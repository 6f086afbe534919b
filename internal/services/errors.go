package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingDependency     = errors.New("missing dependency")
	ErrConfigNotFound        = errors.New("config not found")
	ErrMissingInputDirectory = errors.New("missing input directory")
	ErrStageFailure          = errors.New("stage failure")
	ErrExternalTool          = errors.New("external tool error")
	ErrConfiguration         = errors.New("configuration error")
	ErrRunInProgress         = errors.New("run in progress")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// MissingDependencyError lists every required external program that could not
// be resolved.
type MissingDependencyError struct {
	Missing []string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%d required tool(s) not found: %s", len(e.Missing), strings.Join(e.Missing, ", "))
}

func (e *MissingDependencyError) Unwrap() error { return ErrMissingDependency }

// ConfigNotFoundError reports an explicit configuration path that does not exist.
type ConfigNotFoundError struct {
	Path string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file %s does not exist", e.Path)
}

func (e *ConfigNotFoundError) Unwrap() error { return ErrConfigNotFound }

// MissingInputDirectoryError reports a reads directory that is absent or unusable.
type MissingInputDirectoryError struct {
	Path   string
	Detail string
}

func (e *MissingInputDirectoryError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("reads directory %s not found", e.Path)
	}
	return fmt.Sprintf("reads directory unusable: %s", e.Detail)
}

func (e *MissingInputDirectoryError) Unwrap() error { return ErrMissingInputDirectory }

// StageFailureError is returned when a stage's delegate fails. It always names
// the log file holding the delegate's captured output.
type StageFailureError struct {
	Stage    string
	Sample   string
	LogPath  string
	ExitCode int
	Err      error
}

func (e *StageFailureError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage %s failed for sample %s", e.Stage, e.Sample)
	if e.ExitCode > 0 {
		fmt.Fprintf(&b, " (exit status %d)", e.ExitCode)
	}
	cause := ""
	if e.Err != nil {
		cause = e.Err.Error()
		fmt.Fprintf(&b, ": %s", cause)
	}
	// Tool exit errors already carry the log path.
	if e.LogPath != "" && !strings.Contains(cause, e.LogPath) {
		fmt.Fprintf(&b, "; see %s", e.LogPath)
	}
	return b.String()
}

func (e *StageFailureError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStageFailure}
	}
	return []error{ErrStageFailure, e.Err}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
