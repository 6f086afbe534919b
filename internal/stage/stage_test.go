package stage_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"promap/internal/config"
	"promap/internal/gateway"
	"promap/internal/logging"
	"promap/internal/sample"
	"promap/internal/services"
	"promap/internal/stage"
	"promap/internal/testsupport"
)

func copyStage(ordinal int, name string, consumes, produces sample.Role) stage.Stage {
	return stage.Stage{
		Name:     name,
		Ordinal:  ordinal,
		Tools:    []string{"cp"},
		Consumes: consumes,
		Produces: produces,
		Output: func(cfg *config.Config, s sample.Sample) string {
			return filepath.Join(cfg.TmpDir, s.Prefix+"_"+name+".out")
		},
		Commands: func(_ *config.Config, _ sample.Sample, input, output string) []gateway.Invocation {
			return []gateway.Invocation{{Command: "cp", Args: []string{input, output}, Outputs: []string{output}}}
		},
	}
}

func newEnv(t *testing.T) (stage.Env, *testsupport.FakeRunner, sample.Sample) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithReads("sampleA.fastq.gz"))
	runner := &testsupport.FakeRunner{}
	s, err := sample.New(filepath.Join(cfg.ReadsDir, "sampleA.fastq.gz"), cfg.LogDir)
	if err != nil {
		t.Fatalf("sample.New: %v", err)
	}
	return stage.Env{Config: cfg, Runner: runner, Logger: logging.NewNop()}, runner, s
}

func TestExecuteRunsDelegateAndRecordsRole(t *testing.T) {
	env, runner, s := newEnv(t)
	st := copyStage(1, "extract_umi", sample.RoleReads, sample.RoleUMIExtracted)

	next, outcome, err := st.Execute(context.Background(), env, s)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if outcome != stage.OutcomeCompleted {
		t.Fatalf("expected completed, got %s", outcome)
	}
	if len(runner.Calls()) != 1 {
		t.Fatalf("expected one invocation, got %v", runner.CommandLines())
	}
	path, err := next.Path(sample.RoleUMIExtracted)
	if err != nil || path != st.Output(env.Config, s) {
		t.Fatalf("unexpected recorded path %q, %v", path, err)
	}
	if hasRole(s, sample.RoleUMIExtracted) {
		t.Fatal("input sample must stay unchanged")
	}
	logPath := filepath.Join(env.Config.LogDir, "sampleA", "01_extract_umi.log")
	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("expected stage log at %s: %v", logPath, err)
	}
	if call := runner.Calls()[0]; call.LogPath != logPath || call.AppendLog {
		t.Fatalf("unexpected log routing %+v", call)
	}
}

func TestExecuteThreshold(t *testing.T) {
	tests := []struct {
		size    int64
		skipped bool
	}{
		{size: stage.MinOutputBytes - 1, skipped: false},
		{size: stage.MinOutputBytes, skipped: true},
	}
	for _, tc := range tests {
		env, runner, s := newEnv(t)
		st := copyStage(1, "extract_umi", sample.RoleReads, sample.RoleUMIExtracted)
		testsupport.WriteFile(t, st.Output(env.Config, s), tc.size)

		next, outcome, err := st.Execute(context.Background(), env, s)
		if err != nil {
			t.Fatalf("size %d: Execute: %v", tc.size, err)
		}
		if got := outcome == stage.OutcomeSkipped; got != tc.skipped {
			t.Fatalf("size %d: skipped=%v, want %v", tc.size, got, tc.skipped)
		}
		wantCalls := 1
		if tc.skipped {
			wantCalls = 0
		}
		if len(runner.Calls()) != wantCalls {
			t.Fatalf("size %d: expected %d invocations, got %d", tc.size, wantCalls, len(runner.Calls()))
		}
		if !hasRole(next, sample.RoleUMIExtracted) {
			t.Fatalf("size %d: role must be recorded", tc.size)
		}
	}
}

func TestExecuteSkipDoesNotRequireInput(t *testing.T) {
	env, runner, s := newEnv(t)
	st := copyStage(2, "clip_adapter", sample.RoleUMIExtracted, sample.RoleClipped)
	testsupport.WriteFile(t, st.Output(env.Config, s), 4096)

	_, outcome, err := st.Execute(context.Background(), env, s)
	if err != nil || outcome != stage.OutcomeSkipped {
		t.Fatalf("expected skip, got %s, %v", outcome, err)
	}
	if len(runner.Calls()) != 0 {
		t.Fatal("skip must not invoke the delegate")
	}
}

func TestExecuteMissingInputRole(t *testing.T) {
	env, runner, s := newEnv(t)
	st := copyStage(2, "clip_adapter", sample.RoleUMIExtracted, sample.RoleClipped)

	_, _, err := st.Execute(context.Background(), env, s)
	if !errors.Is(err, sample.ErrRoleMissing) {
		t.Fatalf("expected ErrRoleMissing, got %v", err)
	}
	if len(runner.Calls()) != 0 {
		t.Fatal("delegate must not run without its input")
	}
}

func TestExecuteFailureNamesLog(t *testing.T) {
	env, runner, s := newEnv(t)
	runner.FailWhen = func(gateway.Invocation) bool { return true }
	st := copyStage(1, "extract_umi", sample.RoleReads, sample.RoleUMIExtracted)

	next, _, err := st.Execute(context.Background(), env, s)
	if !errors.Is(err, services.ErrStageFailure) {
		t.Fatalf("expected ErrStageFailure, got %v", err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected gateway error to remain visible, got %v", err)
	}
	var failure *services.StageFailureError
	if !errors.As(err, &failure) {
		t.Fatalf("expected StageFailureError, got %T", err)
	}
	if failure.Stage != "extract_umi" || failure.Sample != "sampleA" || failure.ExitCode != 1 {
		t.Fatalf("unexpected failure %+v", failure)
	}
	if !strings.HasSuffix(failure.LogPath, filepath.Join("sampleA", "01_extract_umi.log")) {
		t.Fatalf("unexpected log path %q", failure.LogPath)
	}
	if n := strings.Count(err.Error(), failure.LogPath); n != 1 {
		t.Fatalf("error message should name the log once: %q", err.Error())
	}
	if hasRole(next, sample.RoleUMIExtracted) {
		t.Fatal("failed stage must not record its role")
	}
}

func TestExecuteMultipleInvocationsAppendLog(t *testing.T) {
	env, runner, s := newEnv(t)
	st := copyStage(1, "extract_umi", sample.RoleReads, sample.RoleUMIExtracted)
	st.Commands = func(_ *config.Config, _ sample.Sample, input, output string) []gateway.Invocation {
		return []gateway.Invocation{
			{Command: "sort", Args: []string{input}, Stdout: output},
			{Command: "index", Args: []string{output}, Outputs: []string{output + ".idx"}},
		}
	}

	if _, _, err := st.Execute(context.Background(), env, s); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	calls := runner.Calls()
	if len(calls) != 2 || calls[0].AppendLog || !calls[1].AppendLog {
		t.Fatalf("expected truncate then append, got %+v", calls)
	}
	data, _ := os.ReadFile(st.LogPath(s))
	if strings.Count(string(data), "fake:") != 2 {
		t.Fatalf("expected both invocations in one log, got %q", data)
	}
}

func TestExecuteFailureRemovesEarlierProducts(t *testing.T) {
	env, runner, s := newEnv(t)
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	env.Logger = logger
	runner.FailWhen = func(inv gateway.Invocation) bool { return inv.Command == "index" }

	st := copyStage(1, "extract_umi", sample.RoleReads, sample.RoleUMIExtracted)
	output := st.Output(env.Config, s)
	st.Commands = func(_ *config.Config, _ sample.Sample, input, output string) []gateway.Invocation {
		return []gateway.Invocation{
			{Command: "sort", Args: []string{input}, Outputs: []string{output}},
			{Command: "index", Args: []string{output}, Outputs: []string{output + ".idx"}},
		}
	}

	if _, _, err := st.Execute(context.Background(), env, s); !errors.Is(err, services.ErrStageFailure) {
		t.Fatalf("expected stage failure, got %v", err)
	}
	if len(runner.Calls()) != 2 {
		t.Fatalf("expected both invocations to run, got %v", runner.CommandLines())
	}
	for _, path := range []string{output, output + ".idx"} {
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Fatalf("expected %s removed after failure, stat err=%v", path, statErr)
		}
	}
	if !strings.Contains(buf.String(), `"log_tail":"fake: sort`) {
		t.Fatalf("expected the log tail in the failure line, got %s", buf.String())
	}

	runner.FailWhen = nil
	runner.Reset()
	if _, outcome, err := st.Execute(context.Background(), env, s); err != nil || outcome != stage.OutcomeCompleted {
		t.Fatalf("expected the stage to rerun, got %s, %v", outcome, err)
	}
}

func TestExecuteFinalizeFailure(t *testing.T) {
	env, _, s := newEnv(t)
	st := copyStage(1, "extract_umi", sample.RoleReads, sample.RoleUMIExtracted)
	st.Finalize = func(context.Context, stage.Env, sample.Sample, string) error {
		return errors.New("merge failed")
	}
	_, _, err := st.Execute(context.Background(), env, s)
	if !errors.Is(err, services.ErrStageFailure) || !strings.Contains(err.Error(), "merge failed") {
		t.Fatalf("expected finalize failure as stage failure, got %v", err)
	}
}

func TestExecuteCancelledRemovesPartialOutput(t *testing.T) {
	env, _, s := newEnv(t)
	st := copyStage(1, "extract_umi", sample.RoleReads, sample.RoleUMIExtracted)
	output := st.Output(env.Config, s)

	ctx, cancel := context.WithCancel(context.Background())
	env.Runner = runnerFunc(func(ctx context.Context, inv gateway.Invocation) (gateway.Result, error) {
		testsupport.WriteFile(t, output, 100)
		cancel()
		return gateway.Result{ExitCode: -1}, ctx.Err()
	})

	_, _, err := st.Execute(ctx, env, s)
	if !errors.Is(err, context.Canceled) || !errors.Is(err, services.ErrStageFailure) {
		t.Fatalf("expected cancelled stage failure, got %v", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatalf("expected partial output removed, stat err=%v", statErr)
	}
}

func TestExecuteWarnsOnSmallOutput(t *testing.T) {
	env, runner, s := newEnv(t)
	runner.OutputSize = 10
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	env.Logger = logger
	st := copyStage(1, "extract_umi", sample.RoleReads, sample.RoleUMIExtracted)

	if _, _, err := st.Execute(context.Background(), env, s); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(buf.String(), "stage_output_small") {
		t.Fatalf("expected small output warning, got %s", buf.String())
	}
}

func TestOutcomeString(t *testing.T) {
	if stage.OutcomeSkipped.String() != "skipped" || stage.OutcomeCompleted.String() != "completed" {
		t.Fatal("unexpected outcome labels")
	}
}

func hasRole(s sample.Sample, role sample.Role) bool {
	_, err := s.Path(role)
	return err == nil
}

type runnerFunc func(context.Context, gateway.Invocation) (gateway.Result, error)

func (f runnerFunc) Run(ctx context.Context, inv gateway.Invocation) (gateway.Result, error) {
	return f(ctx, inv)
}
