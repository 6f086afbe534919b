package services

import "context"

type contextKey string

const (
	runIDKey  contextKey = "run_id"
	sampleKey contextKey = "sample"
	stageKey  contextKey = "stage"
)

// WithRunID annotates context with the run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSample annotates context with the sample prefix being processed.
func WithSample(ctx context.Context, sample string) context.Context {
	if sample == "" {
		return ctx
	}
	return context.WithValue(ctx, sampleKey, sample)
}

// SampleFromContext returns the sample prefix if present.
func SampleFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sampleKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
