package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/chewxy/math32"
)

// cameraControllerImpl keeps spherical coordinates relative to the target and recomputes the
// position whenever any of them change.
type cameraControllerImpl struct {
	mu sync.Mutex

	position common.Vec3
	target   common.Vec3

	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	// orbitSpeed is the automatic azimuth rate in radians per second.
	orbitSpeed float32
	zoomSpeed  float32
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates an orbit controller with sensible defaults.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		radius:    25.0,
		elevation: math32.Pi / 6,

		minRadius:    1.0,
		maxRadius:    2000.0,
		minElevation: -math32.Pi/2 + 0.1,
		maxElevation: math32.Pi/2 - 0.1,

		zoomSpeed: 1.0,
	}
	for _, option := range options {
		option(cc)
	}
	cc.radius = common.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = common.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
	return cc
}

// updatePosition recomputes the camera position from spherical coordinates.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) updatePosition() {
	sinElev, cosElev := math32.Sincos(cc.elevation)
	sinAzim, cosAzim := math32.Sincos(cc.azimuth)
	cc.position = cc.target.Add(common.Vec3{
		cc.radius * cosElev * sinAzim,
		cc.radius * sinElev,
		cc.radius * cosElev * cosAzim,
	})
}

func (cc *cameraControllerImpl) Position() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *cameraControllerImpl) Target() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *cameraControllerImpl) SetTarget(target common.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Orbit(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth += dAzimuth
	cc.elevation = common.Clamp(cc.elevation+dElevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = common.Clamp(cc.radius-delta*cc.zoomSpeed, cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *cameraControllerImpl) SetRadius(radius float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = common.Clamp(radius, cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *cameraControllerImpl) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}

func (cc *cameraControllerImpl) Update(dt float32) {
	if cc.orbitSpeed == 0 || dt <= 0 {
		return
	}
	cc.Orbit(cc.orbitSpeed*dt, 0)
}

func (cc *cameraControllerImpl) World() common.Mat4 {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	forward := cc.target.Sub(cc.position)
	if forward.LengthSq() == 0 {
		forward = common.Vec3{0, 0, 1}
	}
	forward = forward.Normalize()
	right := common.Vec3{0, 1, 0}.Cross(forward)
	if right.LengthSq() == 0 {
		right = common.Vec3{1, 0, 0}
	}
	right = right.Normalize()
	up := forward.Cross(right)

	m := common.Mat4Identity()
	m[0], m[1], m[2] = right[0], right[1], right[2]
	m[4], m[5], m[6] = up[0], up[1], up[2]
	m[8], m[9], m[10] = forward[0], forward[1], forward[2]
	m[12], m[13], m[14] = cc.position[0], cc.position[1], cc.position[2]
	return m
}
