package animation

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestFindKeys(t *testing.T) {
	times := []float32{0, 1, 2, 3}

	ks := FindKeys(times, 1.5)
	assert.Equal(t, 1, ks.Left)
	assert.Equal(t, 2, ks.Right)
	assert.Equal(t, float32(0), ks.First)
	assert.Equal(t, float32(3), ks.Last)

	exact := FindKeys(times, 2)
	assert.Equal(t, 2, exact.Left)
	assert.Equal(t, 2, exact.Right)

	assert.False(t, FindKeys(times, 3.5).InRange(3.5))
	assert.True(t, FindKeys(times, 3).InRange(3))
}

func TestLinearReproducesKeyframesExactly(t *testing.T) {
	times := []float32{0, 0.4, 1.3}
	data := []float32{2, 7.25, -3.5}
	out := make([]float32, 1)

	for k, time := range times {
		ks := FindKeys(times, time)
		Sample(ModeLinear, times, data, 1, ks, time, out)
		assert.Equal(t, data[k], out[0], "key %d", k)
	}

	ks := FindKeys([]float32{0, 1}, 0.5)
	Sample(ModeLinear, []float32{0, 1}, []float32{0, 10}, 1, ks, 0.5, out)
	assert.InDelta(t, 5, out[0], 1e-6)
}

func TestStepNeverBlends(t *testing.T) {
	times := []float32{0, 1}
	data := []float32{0, 0, 0, 10, 20, 30}
	out := make([]float32, 3)

	for _, timer := range []float32{0, 0.25, 0.5, 0.51, 0.99, 1} {
		ks := FindKeys(times, timer)
		Sample(ModeStep, times, data, 3, ks, timer, out)
		if timer > 0.5 {
			assert.Equal(t, []float32{10, 20, 30}, out, "timer %v", timer)
		} else {
			assert.Equal(t, []float32{0, 0, 0}, out, "timer %v", timer)
		}
	}
}

func TestCubicSplineEndpointsAndTangents(t *testing.T) {
	times := []float32{0, 2}
	// [in, value, out] per key
	data := []float32{
		0, 1, 0,
		0, 5, 0,
	}
	out := make([]float32, 1)

	for _, tc := range []struct {
		timer float32
		want  float32
	}{
		{0, 1},
		{2, 5},
		{1, 3}, // flat tangents are symmetric around the midpoint
	} {
		ks := FindKeys(times, tc.timer)
		Sample(ModeCubicSpline, times, data, 1, ks, tc.timer, out)
		assert.InDelta(t, tc.want, out[0], 1e-5, "timer %v", tc.timer)
	}

	// a positive out tangent overshoots the linear midpoint
	data[2] = 4
	ks := FindKeys(times, 1)
	Sample(ModeCubicSpline, times, data, 1, ks, 1, out)
	assert.Greater(t, out[0], float32(3))
}

func TestSampleRotationSlerpsAndNormalizes(t *testing.T) {
	times := []float32{0, 1}
	q1 := common.QuatFromAxisAngle(common.Vec3{0, 1, 0}, math32.Pi/2)
	data := []float32{0, 0, 0, 1, q1[0], q1[1], q1[2], q1[3]}

	ks := FindKeys(times, 0.5)
	q := SampleRotation(ModeLinear, times, data, ks, 0.5)
	want := common.QuatFromAxisAngle(common.Vec3{0, 1, 0}, math32.Pi/4)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, want[i], q[i], 1e-5)
	}
	assert.InDelta(t, 1, q.Dot(q), 1e-5)
}

func TestEventWindowClamp(t *testing.T) {
	times := []float32{1, 2}
	ks := FindKeys(times, 0.5).ClampForEvents()
	assert.Equal(t, float32(1), ks.TimeLeft)
	assert.Equal(t, float32(2), ks.TimeRight)
}
