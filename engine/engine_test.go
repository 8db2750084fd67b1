package engine

import (
	"context"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-scene/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubScene records Update calls. Methods it does not override are never called by the engine.
type stubScene struct {
	scene.Scene
	key     int
	active  bool
	order   *[]int
	deltas  []float32
	explode bool
}

func (s *stubScene) Active() bool { return s.active }

func (s *stubScene) Update(dt float32) {
	if s.explode {
		panic("boom")
	}
	*s.order = append(*s.order, s.key)
	s.deltas = append(s.deltas, dt)
}

func TestStepUpdatesActiveScenesInKeyOrder(t *testing.T) {
	var order []int
	e := NewEngine(
		WithScene(5, &stubScene{key: 5, active: true, order: &order}),
		WithScene(-1, &stubScene{key: -1, active: true, order: &order}),
		WithScene(2, &stubScene{key: 2, active: false, order: &order}),
	)
	e.AddScene(3, &stubScene{key: 3, active: true, order: &order})

	var ticked []float32
	e.SetTickCallback(func(dt float32) {
		ticked = append(ticked, dt)
		order = append(order, 100)
	})

	require.NoError(t, e.Step(0.25))

	assert.Equal(t, []int{100, -1, 3, 5}, order)
	assert.Equal(t, []float32{0.25}, ticked)
	assert.Equal(t, 1, e.Frames())
}

func TestRemoveSceneStopsUpdates(t *testing.T) {
	var order []int
	e := NewEngine(WithScene(1, &stubScene{key: 1, active: true, order: &order}))
	e.RemoveScene(1)

	require.NoError(t, e.Step(0.1))

	assert.Empty(t, order)
	assert.Nil(t, e.Scene(1))
	assert.Empty(t, e.Scenes())
}

func TestUnpacedRunStopsAtFrameLimit(t *testing.T) {
	var order []int
	stub := &stubScene{key: 0, active: true, order: &order}
	e := NewEngine(WithPacing(false), WithTickRate(50), WithFrameLimit(5), WithScene(0, stub))

	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, 5, e.Frames())
	require.Len(t, stub.deltas, 5)
	for _, dt := range stub.deltas {
		assert.InDelta(t, 0.02, dt, 1e-6)
	}
}

func TestRunHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine()
	assert.ErrorIs(t, e.Run(ctx), context.Canceled)
	assert.Zero(t, e.Frames())
}

func TestQuitFromTickCallbackStopsPacedRun(t *testing.T) {
	e := NewEngine(WithTickRate(1000))
	e.SetTickCallback(func(float32) {
		if e.Frames() == 2 {
			e.Quit()
			e.Quit()
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Run(ctx))
	assert.Equal(t, 3, e.Frames())
}

func TestPanickingSceneEndsRunWithError(t *testing.T) {
	var order []int
	e := NewEngine(
		WithPacing(false),
		WithScene(0, &stubScene{key: 0, active: true, order: &order, explode: true}),
	)

	err := e.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine: frame 0: boom")
	assert.Zero(t, e.Frames())
}

func TestRealSceneAdvancesTime(t *testing.T) {
	s := scene.NewScene("main")
	t.Cleanup(s.Close)
	e := NewEngine(WithPacing(false), WithTickRate(60), WithFrameLimit(30), WithScene(0, s), WithProfiling(true))

	require.NoError(t, e.Run(context.Background()))

	assert.InDelta(t, 0.5, s.Time(), 1e-3)
	assert.Equal(t, 30, e.Frames())
}
