package camera

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
)

// CameraController owns an orbiting camera position around a pivot and produces the world
// matrix a camera entity's transform should take. Safe for concurrent use.
type CameraController interface {
	// Position returns the camera's world-space position.
	Position() common.Vec3

	// Target returns the look-at/pivot point.
	Target() common.Vec3

	// SetTarget sets the pivot point and recomputes position from spherical coordinates.
	//
	// Parameters:
	//   - target: world-space pivot
	SetTarget(target common.Vec3)

	// Orbit rotates the camera around the target.
	//
	// Parameters:
	//   - dAzimuth: horizontal angle delta in radians
	//   - dElevation: vertical angle delta in radians, clamped to the elevation bounds
	Orbit(dAzimuth, dElevation float32)

	// Zoom adjusts the orbit radius. Positive delta moves closer to the target.
	//
	// Parameters:
	//   - delta: zoom amount scaled by the zoom speed
	Zoom(delta float32)

	// Radius returns the current distance from the target.
	Radius() float32

	// SetRadius sets the orbit radius, clamped to min/max bounds.
	SetRadius(radius float32)

	// Azimuth returns the horizontal angle around the Y axis in radians.
	Azimuth() float32

	// Elevation returns the vertical angle from the horizontal plane in radians.
	Elevation() float32

	// Update advances the automatic orbit by dt seconds.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Update(dt float32)

	// World returns the matrix that places a camera at Position looking at Target with +Y up.
	// Passing it to Camera.TransformCamera reproduces the controller's eye and direction.
	//
	// Returns:
	//   - common.Mat4: rigid world matrix
	World() common.Mat4
}
