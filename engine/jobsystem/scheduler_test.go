package jobsystem

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchGroupCount(t *testing.T) {
	assert.Equal(t, 0, DispatchGroupCount(0, 64))
	assert.Equal(t, 1, DispatchGroupCount(1, 64))
	assert.Equal(t, 1, DispatchGroupCount(64, 64))
	assert.Equal(t, 2, DispatchGroupCount(65, 64))
	assert.Equal(t, 10, DispatchGroupCount(10, 0))
}

func TestDispatchRunsEveryItemOnce(t *testing.T) {
	s := NewScheduler(WithWorkers(4))
	defer s.Close()

	const count = 1000
	hits := make([]int32, count)
	var ctx Context
	s.Dispatch(&ctx, count, 7, func(args JobArgs) {
		atomic.AddInt32(&hits[args.JobIndex], 1)
	})
	s.Wait(&ctx)

	for i, h := range hits {
		require.Equal(t, int32(1), h, "item %d", i)
	}
	assert.False(t, s.IsBusy(&ctx))
}

func TestDispatchGroupFlags(t *testing.T) {
	s := NewScheduler(WithWorkers(3))
	defer s.Close()

	const count, groupSize = 25, 8
	var mu sync.Mutex
	firsts := map[uint32]uint32{}
	lasts := map[uint32]uint32{}
	var ctx Context
	s.Dispatch(&ctx, count, groupSize, func(args JobArgs) {
		assert.Equal(t, args.JobIndex/groupSize, args.GroupID)
		assert.Equal(t, args.JobIndex%groupSize, args.GroupIndex)
		mu.Lock()
		defer mu.Unlock()
		if args.IsFirstJobInGroup {
			firsts[args.GroupID] = args.JobIndex
		}
		if args.IsLastJobInGroup {
			lasts[args.GroupID] = args.JobIndex
		}
	})
	s.Wait(&ctx)

	assert.Equal(t, map[uint32]uint32{0: 0, 1: 8, 2: 16, 3: 24}, firsts)
	assert.Equal(t, map[uint32]uint32{0: 7, 1: 15, 2: 23, 3: 24}, lasts)
}

func TestDispatchSharedReduction(t *testing.T) {
	s := NewScheduler(WithWorkers(4))
	defer s.Close()

	const count, groupSize = 100, 16
	partial := make([]int, DispatchGroupCount(count, groupSize))
	var ctx Context
	DispatchShared(s, &ctx, count, groupSize, func(args JobArgs, sum *int) {
		if args.IsFirstJobInGroup {
			*sum = 0
		}
		*sum += int(args.JobIndex)
		if args.IsLastJobInGroup {
			partial[args.GroupID] = *sum
		}
	})
	s.Wait(&ctx)

	total := 0
	for _, p := range partial {
		total += p
	}
	assert.Equal(t, count*(count-1)/2, total)
}

func TestExecuteAndWaitBarrier(t *testing.T) {
	s := NewScheduler(WithWorkers(2))
	defer s.Close()

	var ctx Context
	var stage1 atomic.Int32
	for i := 0; i < 10; i++ {
		s.Execute(&ctx, func(JobArgs) { stage1.Add(1) })
	}
	s.Wait(&ctx)
	require.Equal(t, int32(10), stage1.Load())

	var seen atomic.Int32
	s.Dispatch(&ctx, 10, 1, func(JobArgs) { seen.Store(stage1.Load()) })
	s.Wait(&ctx)
	assert.Equal(t, int32(10), seen.Load())
}

func TestWaitPropagatesPanic(t *testing.T) {
	s := NewScheduler(WithWorkers(2))
	defer s.Close()

	var ctx Context
	s.Execute(&ctx, func(JobArgs) { panic("boom") })
	assert.Panics(t, func() { s.Wait(&ctx) })

	// the context is usable after the failure was reported
	s.Execute(&ctx, func(JobArgs) {})
	assert.NotPanics(t, func() { s.Wait(&ctx) })
}
