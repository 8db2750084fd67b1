package script

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/scene"
	"go.uber.org/zap"
)

// RuntimeBuilderOption is a functional option applied to a runtime during construction via NewRuntime.
type RuntimeBuilderOption func(r *luaRuntime)

// WithLogger sets the logger for print output, binding diagnostics and load progress.
//
// Parameters:
//   - logger: the logger, nil keeps the no-op default
//
// Returns:
//   - RuntimeBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) RuntimeBuilderOption {
	return func(r *luaRuntime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithScene binds the runtime to s at construction. Equivalent to calling Bind.
func WithScene(s scene.Scene) RuntimeBuilderOption {
	return func(r *luaRuntime) {
		r.scene = s
	}
}

// WithCompileConcurrency caps how many files LoadFiles compiles at once. Defaults to GOMAXPROCS.
func WithCompileConcurrency(n int) RuntimeBuilderOption {
	return func(r *luaRuntime) {
		if n > 0 {
			r.compileLimit = n
		}
	}
}
