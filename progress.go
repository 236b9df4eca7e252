package bif

import "context"

// ProgressEvent reports a long-running archive operation.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the archive being read.
	Path string

	// Locator is the resource being materialized, if applicable.
	Locator Locator

	// BytesTotal is the size of the resource or of the operation.
	BytesTotal int64

	// FilesDone is the number of resources extracted so far.
	FilesDone int

	// FilesTotal is the number of resources being extracted.
	FilesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages.
const (
	// StageBusy is sent before a resource larger than the large-resource
	// threshold is materialized or streamed.
	StageBusy ProgressStage = iota

	// StageIdle follows StageBusy once the resource has been read or its
	// stream closed.
	StageIdle

	// StageExtracting is sent after each resource written by Extract.
	StageExtracting
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageBusy:
		return "busy"
	case StageIdle:
		return "idle"
	case StageExtracting:
		return "extracting"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates.
// Implementations must be safe for concurrent calls.
type ProgressFunc func(ProgressEvent)

type progressKey struct{}

// ContextWithProgress returns a context that routes progress events of the
// calls it is passed to fn instead of the archive's WithProgress function.
func ContextWithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

func (a *Archive) progressFor(ctx context.Context) ProgressFunc {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok && fn != nil {
		return fn
	}
	return a.progress
}

// busy reports StageBusy for resources above the large-resource threshold
// and returns the function that reports StageIdle. The returned function
// is safe to call more than once.
func (a *Archive) busy(ctx context.Context, loc Locator, size int64) func() {
	fn := a.progressFor(ctx)
	if fn == nil || size <= a.largeThreshold {
		return func() {}
	}
	ev := ProgressEvent{Stage: StageBusy, Path: a.path, Locator: loc, BytesTotal: size}
	fn(ev)
	done := false
	return func() {
		if done {
			return
		}
		done = true
		ev.Stage = StageIdle
		fn(ev)
	}
}
