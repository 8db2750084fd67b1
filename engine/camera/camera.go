// Package camera holds the perspective camera value stored per camera entity and the orbit
// controller that drives a camera transform.
package camera

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/chewxy/math32"
)

// Camera is a perspective camera. Eye, At and Up are derived from the owning entity's world
// transform by TransformCamera; the matrices and frustum are rebuilt by UpdateCamera.
type Camera struct {
	Width  float32 `yaml:"width"`
	Height float32 `yaml:"height"`
	ZNear  float32 `yaml:"z_near"`
	ZFar   float32 `yaml:"z_far"`
	// FOV is the vertical field of view in radians.
	FOV           float32     `yaml:"fov"`
	FocalLength   float32     `yaml:"focal_length"`
	ApertureSize  float32     `yaml:"aperture_size"`
	ApertureShape common.Vec2 `yaml:"aperture_shape"`

	Eye common.Vec3 `yaml:"eye"`
	// At is the unit viewing direction, not a target point.
	At common.Vec3 `yaml:"at"`
	Up common.Vec3 `yaml:"up"`

	View              common.Mat4    `yaml:"-"`
	Projection        common.Mat4    `yaml:"-"`
	ViewProjection    common.Mat4    `yaml:"-"`
	InvView           common.Mat4    `yaml:"-"`
	InvProjection     common.Mat4    `yaml:"-"`
	InvViewProjection common.Mat4    `yaml:"-"`
	Frustum           common.Frustum `yaml:"-"`
}

// SetDefaults initializes a camera looking down +Z with a 60 degree field of view.
func (c *Camera) SetDefaults() {
	c.Width = 1
	c.Height = 1
	c.ZNear = 0.1
	c.ZFar = 1000
	c.FOV = math32.Pi / 3
	c.FocalLength = 1
	c.ApertureShape = common.Vec2{1, 1}
	c.At = common.Vec3{0, 0, 1}
	c.Up = common.Vec3{0, 1, 0}
	c.UpdateCamera()
}

// CreatePerspective sets the projection parameters and rebuilds the matrices.
//
// Parameters:
//   - width, height: viewport size, only the ratio is used
//   - near, far: clip plane distances
//   - fov: vertical field of view in radians
func (c *Camera) CreatePerspective(width, height, near, far, fov float32) {
	c.Width = width
	c.Height = height
	c.ZNear = near
	c.ZFar = far
	c.FOV = fov
	c.UpdateCamera()
}

// TransformCamera places the camera at the origin of world, looking along its local +Z axis
// with its local +Y axis as up.
func (c *Camera) TransformCamera(world common.Mat4) {
	c.Eye = world.TransformPoint(common.Vec3{})
	c.At = world.TransformNormal(common.Vec3{0, 0, 1}).Normalize()
	c.Up = world.TransformNormal(common.Vec3{0, 1, 0}).Normalize()
}

// UpdateCamera rebuilds the view, projection and derived matrices and the view frustum.
func (c *Camera) UpdateCamera() {
	common.LookAt(c.View[:], c.Eye, c.Eye.Add(c.At), c.Up)
	aspect := float32(1)
	if c.Height > 0 {
		aspect = c.Width / c.Height
	}
	common.Perspective(c.Projection[:], c.FOV, aspect, c.ZNear, c.ZFar)
	c.ViewProjection = c.Projection.Mul(c.View)
	c.InvView = c.View.Inverse()
	c.InvProjection = c.Projection.Inverse()
	c.InvViewProjection = c.ViewProjection.Inverse()
	c.Frustum = common.ExtractFrustumFromMatrix(c.ViewProjection)
}

// Uniform returns the GPU record of the camera.
func (c *Camera) Uniform() GPUCameraUniform {
	return GPUCameraUniform{
		ViewProj:       c.ViewProjection,
		CameraPosition: c.Eye,
	}
}
