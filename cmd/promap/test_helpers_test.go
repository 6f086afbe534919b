package main

import (
	"bytes"
	"context"
	"testing"

	"promap/internal/logging"
	"promap/internal/testsupport"
)

func runCLI(t *testing.T, runner *testsupport.FakeRunner, args ...string) (string, string, error) {
	t.Helper()
	ctx := &commandContext{logger: logging.NewNop()}
	if runner != nil {
		ctx.runner = runner
	}
	cmd := buildRootCommand(ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
