package camera

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestControllerWorldDrivesCamera(t *testing.T) {
	cc := NewCameraController(
		WithTarget(common.Vec3{1, 2, 3}),
		WithRadius(10),
		WithAzimuth(math32.Pi/4),
		WithElevation(0.3),
	)

	var cam Camera
	cam.SetDefaults()
	cam.TransformCamera(cc.World())
	cam.UpdateCamera()

	pos := cc.Position()
	assert.InDelta(t, 10, pos.Distance(cc.Target()), 1e-4)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, pos[i], cam.Eye[i], 1e-4)
	}

	dir := cc.Target().Sub(pos).Normalize()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, dir[i], cam.At[i], 1e-4)
	}

	// the target sits straight ahead in view space and inside the frustum
	v := cam.View.TransformPoint(cc.Target())
	assert.InDelta(t, 0, v[0], 1e-3)
	assert.InDelta(t, 0, v[1], 1e-3)
	assert.InDelta(t, -10, v[2], 1e-3)
	assert.True(t, cam.Frustum.IntersectsSphere(common.Sphere{Center: cc.Target(), Radius: 0.1}))
	assert.False(t, cam.Frustum.IntersectsSphere(common.Sphere{Center: pos.Sub(dir.Scale(5)), Radius: 0.1}))
}

func TestControllerClampsAndOrbits(t *testing.T) {
	cc := NewCameraController(WithRadiusBounds(2, 5), WithRadius(100), WithOrbitSpeed(1))
	assert.Equal(t, float32(5), cc.Radius())

	cc.Zoom(10)
	assert.Equal(t, float32(2), cc.Radius())

	cc.Orbit(0, 10)
	assert.InDelta(t, math32.Pi/2-0.1, cc.Elevation(), 1e-6)

	cc.Update(0.5)
	assert.InDelta(t, 0.5, cc.Azimuth(), 1e-6)
	cc.Update(0)
	assert.InDelta(t, 0.5, cc.Azimuth(), 1e-6)
}

func TestUniformMarshal(t *testing.T) {
	var cam Camera
	cam.SetDefaults()
	cam.Eye = common.Vec3{4, 5, 6}
	u := cam.Uniform()
	buf := u.Marshal()
	assert.Len(t, buf, 80)
	assert.Equal(t, 80, u.Size())
}
