// Package jobsystem issues parallel work items onto a shared worker pool and blocks on explicit barriers.
package jobsystem

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"
)

// JobArgs describes one work item of a Dispatch.
type JobArgs struct {
	// JobIndex is the global item index in [0, jobCount).
	JobIndex uint32
	// GroupID is the index of the group the item belongs to.
	GroupID uint32
	// GroupIndex is the item index relative to its group.
	GroupIndex uint32
	// IsFirstJobInGroup is true for the first item a group processes.
	IsFirstJobInGroup bool
	// IsLastJobInGroup is true for the last item a group processes.
	IsLastJobInGroup bool
}

// Context tracks every task issued through it since the last Wait. A Context must not be
// copied after first use and must not be waited on from inside one of its own tasks.
type Context struct {
	wg      sync.WaitGroup
	pending atomic.Int64

	mu      sync.Mutex
	failure any
}

// Scheduler runs work on a bounded set of reusable goroutines.
// Items within a Dispatch have no ordering guarantee; Wait is the only synchronization point.
type Scheduler interface {
	// Dispatch partitions jobCount items into ceil(jobCount/groupSize) groups and runs task for
	// every item. Items of one group run sequentially on the same worker.
	//
	// Parameters:
	//   - ctx: the context the groups are tracked on
	//   - jobCount: number of items
	//   - groupSize: items per group (minimum 1)
	//   - task: the body run for each item
	Dispatch(ctx *Context, jobCount, groupSize int, task func(args JobArgs))

	// Execute schedules a single task.
	//
	// Parameters:
	//   - ctx: the context the task is tracked on
	//   - task: the body, called with a zero JobArgs
	Execute(ctx *Context, task func(args JobArgs))

	// Wait blocks until every task issued on ctx since the previous Wait has completed.
	// If any task panicked, Wait panics on the calling goroutine with the first failure.
	//
	// Parameters:
	//   - ctx: the context to wait on
	Wait(ctx *Context)

	// IsBusy reports whether ctx still has unfinished tasks.
	IsBusy(ctx *Context) bool

	// Workers returns the maximum number of concurrent workers.
	Workers() int

	// Close stops the worker pool. The scheduler must not be used afterwards.
	Close()

	submit(ctx *Context, fn func())
}

type scheduler struct {
	workers   int
	queueSize int
	logger    *zap.Logger
	pool      worker.DynamicWorkerPool
	nextID    atomic.Int64
}

var _ Scheduler = &scheduler{}

// NewScheduler creates a Scheduler backed by a dynamic worker pool.
// Defaults to runtime.NumCPU()-1 workers (minimum 1) and a queue of 256 tasks.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - Scheduler: the new scheduler
func NewScheduler(options ...SchedulerBuilderOption) Scheduler {
	s := &scheduler{
		workers:   max(runtime.NumCPU()-1, 1),
		queueSize: 256,
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		opt(s)
	}
	s.pool = worker.NewDynamicWorkerPool(s.workers, s.queueSize, 1*time.Second)
	return s
}

// DispatchGroupCount returns the number of groups Dispatch creates for the given sizes.
//
// Parameters:
//   - jobCount: number of items
//   - groupSize: items per group
//
// Returns:
//   - int: ceil(jobCount/groupSize), 0 when there are no items
func DispatchGroupCount(jobCount, groupSize int) int {
	if jobCount <= 0 {
		return 0
	}
	groupSize = max(groupSize, 1)
	return (jobCount + groupSize - 1) / groupSize
}

// DispatchShared is Dispatch with a group-local scratch value. The scratch starts as the zero S
// for every group and is shared by the items of that group only, which allows in-place partial
// reductions keyed on IsFirstJobInGroup / IsLastJobInGroup.
//
// Parameters:
//   - s: the scheduler
//   - ctx: the context the groups are tracked on
//   - jobCount: number of items
//   - groupSize: items per group
//   - task: the body, receiving the group's scratch
func DispatchShared[S any](s Scheduler, ctx *Context, jobCount, groupSize int, task func(args JobArgs, shared *S)) {
	groupSize = max(groupSize, 1)
	groups := DispatchGroupCount(jobCount, groupSize)
	for g := 0; g < groups; g++ {
		groupID := g
		s.submit(ctx, func() {
			var shared S
			start := groupID * groupSize
			end := min(start+groupSize, jobCount)
			for j := start; j < end; j++ {
				task(JobArgs{
					JobIndex:          uint32(j),
					GroupID:           uint32(groupID),
					GroupIndex:        uint32(j - start),
					IsFirstJobInGroup: j == start,
					IsLastJobInGroup:  j == end-1,
				}, &shared)
			}
		})
	}
}

func (s *scheduler) Dispatch(ctx *Context, jobCount, groupSize int, task func(args JobArgs)) {
	DispatchShared(s, ctx, jobCount, groupSize, func(args JobArgs, _ *struct{}) {
		task(args)
	})
}

func (s *scheduler) Execute(ctx *Context, task func(args JobArgs)) {
	s.submit(ctx, func() {
		task(JobArgs{IsFirstJobInGroup: true, IsLastJobInGroup: true})
	})
}

func (s *scheduler) Wait(ctx *Context) {
	ctx.wg.Wait()

	ctx.mu.Lock()
	failure := ctx.failure
	ctx.failure = nil
	ctx.mu.Unlock()
	if failure != nil {
		panic(failure)
	}
}

func (s *scheduler) IsBusy(ctx *Context) bool {
	return ctx.pending.Load() > 0
}

func (s *scheduler) Workers() int {
	return s.workers
}

func (s *scheduler) Close() {
	s.pool.Stop()
}

// submit wraps fn so the context barrier is released and a panic is captured for Wait
// instead of killing the worker goroutine.
func (s *scheduler) submit(ctx *Context, fn func()) {
	ctx.wg.Add(1)
	ctx.pending.Add(1)
	id := int(s.nextID.Add(1))
	s.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			defer ctx.wg.Done()
			defer ctx.pending.Add(-1)
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("jobsystem: task panicked", zap.Int("task", id), zap.Any("panic", r))
					ctx.mu.Lock()
					if ctx.failure == nil {
						ctx.failure = fmt.Sprintf("jobsystem: task %d panicked: %v", id, r)
					}
					ctx.mu.Unlock()
				}
			}()
			fn()
			return nil, nil
		},
	})
}
