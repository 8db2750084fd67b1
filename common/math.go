// Package common holds the float32 vector, quaternion, matrix and bounding-volume math shared by
// every engine package. Matrices are column-major and transform column vectors.
package common

import (
	"github.com/chewxy/math32"
)

// Mat4 is a 4x4 float32 matrix stored in column-major order (OpenGL/WebGPU convention).
// Vectors are treated as columns, so a.Mul(b) applies b first and a second.
type Mat4 [16]float32

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// Mat4Identity returns the identity matrix.
func Mat4Identity() Mat4 {
	var m Mat4
	Identity(m[:])
	return m
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// All matrices are stored in column-major order (OpenGL/WebGPU convention).
// Result: out = a * b
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// Mul returns m * b.
func (m Mat4) Mul(b Mat4) Mat4 {
	var out Mat4
	Mul4(out[:], m[:], b[:])
	return out
}

// Invert4 computes the inverse of a 4x4 column-major matrix using the Laplace
// expansion (cofactor) method. If the matrix is singular (determinant ≈ 0) the
// output is left unchanged and the function returns false.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - m: source matrix (16 elements, column-major)
//
// Returns:
//   - bool: true if the matrix was successfully inverted, false if singular
func Invert4(out, m []float32) bool {
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 {
		return false
	}

	invDet := 1.0 / det

	out[0] = (m[5]*c5 - m[6]*c4 + m[7]*c3) * invDet
	out[1] = (-m[1]*c5 + m[2]*c4 - m[3]*c3) * invDet
	out[2] = (m[13]*s5 - m[14]*s4 + m[15]*s3) * invDet
	out[3] = (-m[9]*s5 + m[10]*s4 - m[11]*s3) * invDet

	out[4] = (-m[4]*c5 + m[6]*c2 - m[7]*c1) * invDet
	out[5] = (m[0]*c5 - m[2]*c2 + m[3]*c1) * invDet
	out[6] = (-m[12]*s5 + m[14]*s2 - m[15]*s1) * invDet
	out[7] = (m[8]*s5 - m[10]*s2 + m[11]*s1) * invDet

	out[8] = (m[4]*c4 - m[5]*c2 + m[7]*c0) * invDet
	out[9] = (-m[0]*c4 + m[1]*c2 - m[3]*c0) * invDet
	out[10] = (m[12]*s4 - m[13]*s2 + m[15]*s0) * invDet
	out[11] = (-m[8]*s4 + m[9]*s2 - m[11]*s0) * invDet

	out[12] = (-m[4]*c3 + m[5]*c1 - m[6]*c0) * invDet
	out[13] = (m[0]*c3 - m[1]*c1 + m[2]*c0) * invDet
	out[14] = (-m[12]*s3 + m[13]*s1 - m[14]*s0) * invDet
	out[15] = (m[8]*s3 - m[9]*s1 + m[10]*s0) * invDet

	return true
}

// Inverse returns the inverse of m. A singular matrix yields the identity.
func (m Mat4) Inverse() Mat4 {
	out := Mat4Identity()
	Invert4(out[:], m[:])
	return out
}

// Transpose returns the transpose of m.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[r*4+c] = m[c*4+r]
		}
	}
	return out
}

// TransformPoint transforms p as a position (w = 1), without the perspective divide.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	return Vec3{
		m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12],
		m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13],
		m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14],
	}
}

// TransformCoord transforms p as a position and divides by the resulting w.
func (m Mat4) TransformCoord(p Vec3) Vec3 {
	w := m[3]*p[0] + m[7]*p[1] + m[11]*p[2] + m[15]
	v := m.TransformPoint(p)
	if w != 0 && w != 1 {
		v = v.Scale(1 / w)
	}
	return v
}

// TransformNormal transforms n as a direction (w = 0).
func (m Mat4) TransformNormal(n Vec3) Vec3 {
	return Vec3{
		m[0]*n[0] + m[4]*n[1] + m[8]*n[2],
		m[1]*n[0] + m[5]*n[1] + m[9]*n[2],
		m[2]*n[0] + m[6]*n[1] + m[10]*n[2],
	}
}

// Translation returns the translation column of m.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// MaxScale returns the largest axis scale encoded in m.
func (m Mat4) MaxScale() float32 {
	s := m.Scale()
	return math32.Max(s[0], math32.Max(s[1], s[2]))
}

// Scale returns the per-axis scale encoded in the basis columns of m.
func (m Mat4) Scale() Vec3 {
	return Vec3{
		Vec3{m[0], m[1], m[2]}.Length(),
		Vec3{m[4], m[5], m[6]}.Length(),
		Vec3{m[8], m[9], m[10]}.Length(),
	}
}

// Decompose splits an affine matrix into scale, rotation and translation such that
// Compose(scale, rotation, translation) reproduces m.
//
// Returns:
//   - Vec3: scale
//   - Quat: rotation
//   - Vec3: translation
func (m Mat4) Decompose() (Vec3, Quat, Vec3) {
	scale := m.Scale()
	x := Vec3{m[0], m[1], m[2]}
	y := Vec3{m[4], m[5], m[6]}
	z := Vec3{m[8], m[9], m[10]}
	if x.Cross(y).Dot(z) < 0 {
		scale[0] = -scale[0]
	}
	rot := Mat4Identity()
	for i, axis := range [3]Vec3{x, y, z} {
		if scale[i] != 0 {
			axis = axis.Scale(1 / scale[i])
		}
		rot[i*4+0], rot[i*4+1], rot[i*4+2] = axis[0], axis[1], axis[2]
	}
	return scale, QuatFromMat4(rot), m.Translation()
}

// Mat4Translation returns a translation matrix.
func Mat4Translation(t Vec3) Mat4 {
	m := Mat4Identity()
	m[12], m[13], m[14] = t[0], t[1], t[2]
	return m
}

// Mat4Scaling returns a scale matrix.
func Mat4Scaling(s Vec3) Mat4 {
	m := Mat4Identity()
	m[0], m[5], m[10] = s[0], s[1], s[2]
	return m
}

// Mat4FromQuat returns the rotation matrix of a unit quaternion.
func Mat4FromQuat(q Quat) Mat4 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	m := Mat4Identity()
	m[0] = 1 - 2*(yy+zz)
	m[1] = 2 * (xy + wz)
	m[2] = 2 * (xz - wy)

	m[4] = 2 * (xy - wz)
	m[5] = 1 - 2*(xx+zz)
	m[6] = 2 * (yz + wx)

	m[8] = 2 * (xz + wy)
	m[9] = 2 * (yz - wx)
	m[10] = 1 - 2*(xx+yy)
	return m
}

// Compose builds the affine matrix T * R * S, so scale is applied first and translation last.
//
// Parameters:
//   - s: per-axis scale
//   - r: unit rotation quaternion
//   - t: translation
//
// Returns:
//   - Mat4: the composed matrix
func Compose(s Vec3, r Quat, t Vec3) Mat4 {
	m := Mat4FromQuat(r)
	for i := 0; i < 3; i++ {
		m[i*4+0] *= s[i]
		m[i*4+1] *= s[i]
		m[i*4+2] *= s[i]
	}
	m[12], m[13], m[14] = t[0], t[1], t[2]
	return m
}

// Perspective creates a perspective projection matrix.
// Uses WebGPU clip space [0, 1].
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
func Perspective(out []float32, fovY, aspect, near, far float32) {
	f := 1.0 / math32.Tan(fovY/2.0)
	Identity(out)

	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	out[15] = 0.0
}

// LookAt creates a view matrix that positions and orients the camera.
// The resulting matrix transforms world coordinates to view/camera space.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - eye: camera position in world space
//   - center: target point the camera looks at
//   - up: up vector defining camera orientation (typically 0,1,0)
func LookAt(out []float32, eye, center, up Vec3) {
	z := eye.Sub(center)
	if z.Length() == 0 {
		z = Vec3{0, 0, 1}
	}
	z = z.Normalize()
	x := up.Cross(z)
	if x.Length() == 0 {
		x = Vec3{1, 0, 0}
	}
	x = x.Normalize()
	y := z.Cross(x)

	out[0], out[4], out[8], out[12] = x[0], x[1], x[2], -x.Dot(eye)
	out[1], out[5], out[9], out[13] = y[0], y[1], y[2], -y.Dot(eye)
	out[2], out[6], out[10], out[14] = z[0], z[1], z[2], -z.Dot(eye)
	out[3], out[7], out[11], out[15] = 0, 0, 0, 1
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, t float32) float32 {
	return a*(1-t) + b*t
}

// InverseLerp returns where value lies between a and b, 0 when a == b.
func InverseLerp(a, b, value float32) float32 {
	if a == b {
		return 0
	}
	return (value - a) / (b - a)
}

// Saturate clamps x to [0, 1].
func Saturate(x float32) float32 {
	return Clamp(x, 0, 1)
}

// Clamp clamps x to [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	return math32.Min(math32.Max(x, lo), hi)
}
