package jobsystem

import (
	"go.uber.org/zap"
)

// SchedulerBuilderOption is a functional option for configuring a Scheduler.
// Use the With* functions to create options.
type SchedulerBuilderOption func(s *scheduler)

// WithWorkers sets the maximum number of worker goroutines. Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithWorkers(n int) SchedulerBuilderOption {
	return func(s *scheduler) {
		if n < 1 {
			n = 1
		}
		s.workers = n
	}
}

// WithQueueSize sets the capacity of the pending task queue. Submitting to a full queue blocks.
//
// Parameters:
//   - n: the queue capacity (minimum 1)
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithQueueSize(n int) SchedulerBuilderOption {
	return func(s *scheduler) {
		if n < 1 {
			n = 1
		}
		s.queueSize = n
	}
}

// WithLogger sets the logger used to report panicking tasks.
func WithLogger(l *zap.Logger) SchedulerBuilderOption {
	return func(s *scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}
