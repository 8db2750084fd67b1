package common

import (
	"github.com/chewxy/math32"
)

// Quat is a rotation quaternion stored as (x, y, z, w).
type Quat [4]float32

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat { return Quat{0, 0, 0, 1} }

// QuatFromAxisAngle returns the rotation of angle radians around a unit axis.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	s, c := math32.Sincos(angle * 0.5)
	return Quat{axis[0] * s, axis[1] * s, axis[2] * s, c}
}

// QuatFromMat4 extracts the rotation of an orthonormal basis stored in the upper 3x3 of m.
func QuatFromMat4(m Mat4) Quat {
	m00, m11, m22 := m[0], m[5], m[10]
	trace := m00 + m11 + m22
	var q Quat
	switch {
	case trace > 0:
		s := math32.Sqrt(trace+1) * 2
		q = Quat{(m[6] - m[9]) / s, (m[8] - m[2]) / s, (m[1] - m[4]) / s, 0.25 * s}
	case m00 > m11 && m00 > m22:
		s := math32.Sqrt(1+m00-m11-m22) * 2
		q = Quat{0.25 * s, (m[4] + m[1]) / s, (m[8] + m[2]) / s, (m[6] - m[9]) / s}
	case m11 > m22:
		s := math32.Sqrt(1+m11-m00-m22) * 2
		q = Quat{(m[4] + m[1]) / s, 0.25 * s, (m[9] + m[6]) / s, (m[8] - m[2]) / s}
	default:
		s := math32.Sqrt(1+m22-m00-m11) * 2
		q = Quat{(m[8] + m[2]) / s, (m[9] + m[6]) / s, 0.25 * s, (m[1] - m[4]) / s}
	}
	return q.Normalize()
}

// Mul returns the Hamilton product q * r, which applies r first and q second.
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		q[3]*r[0] + q[0]*r[3] + q[1]*r[2] - q[2]*r[1],
		q[3]*r[1] - q[0]*r[2] + q[1]*r[3] + q[2]*r[0],
		q[3]*r[2] + q[0]*r[1] - q[1]*r[0] + q[2]*r[3],
		q[3]*r[3] - q[0]*r[0] - q[1]*r[1] - q[2]*r[2],
	}
}

func (q Quat) Dot(r Quat) float32 { return q[0]*r[0] + q[1]*r[1] + q[2]*r[2] + q[3]*r[3] }

// Normalize returns a unit quaternion, or identity for a zero quaternion.
func (q Quat) Normalize() Quat {
	l := math32.Sqrt(q.Dot(q))
	if l == 0 {
		return QuatIdentity()
	}
	inv := 1 / l
	return Quat{q[0] * inv, q[1] * inv, q[2] * inv, q[3] * inv}
}

// Rotate rotates v by q.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q[0], q[1], q[2]}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q[3])).Add(u.Cross(t))
}

// Slerp spherically interpolates from q to r along the shortest arc.
//
// Parameters:
//   - r: target rotation
//   - t: interpolation factor in [0, 1]
//
// Returns:
//   - Quat: the interpolated rotation (not renormalized)
func (q Quat) Slerp(r Quat, t float32) Quat {
	cosOmega := q.Dot(r)
	if cosOmega < 0 {
		cosOmega = -cosOmega
		r = Quat{-r[0], -r[1], -r[2], -r[3]}
	}
	var k0, k1 float32
	if cosOmega > 0.9999 {
		k0 = 1 - t
		k1 = t
	} else {
		sinOmega := math32.Sqrt(1 - cosOmega*cosOmega)
		omega := math32.Atan2(sinOmega, cosOmega)
		inv := 1 / sinOmega
		k0 = math32.Sin((1-t)*omega) * inv
		k1 = math32.Sin(t*omega) * inv
	}
	return Quat{
		q[0]*k0 + r[0]*k1,
		q[1]*k0 + r[1]*k1,
		q[2]*k0 + r[2]*k1,
		q[3]*k0 + r[3]*k1,
	}
}

// QuatFromRollPitchYaw returns the rotation that applies roll around Z, then pitch around X,
// then yaw around Y.
//
// Parameters:
//   - pitch: rotation around the X axis in radians
//   - yaw: rotation around the Y axis in radians
//   - roll: rotation around the Z axis in radians
//
// Returns:
//   - Quat: the combined rotation
func QuatFromRollPitchYaw(pitch, yaw, roll float32) Quat {
	qx := QuatFromAxisAngle(Vec3{1, 0, 0}, pitch)
	qy := QuatFromAxisAngle(Vec3{0, 1, 0}, yaw)
	qz := QuatFromAxisAngle(Vec3{0, 0, 1}, roll)
	return qy.Mul(qx).Mul(qz)
}

// QuatBetween returns the shortest rotation that turns unit vector from onto unit vector to.
// Returns identity when either vector is zero or they already point the same way.
func QuatBetween(from, to Vec3) Quat {
	axis := from.Cross(to)
	if axis.LengthSq() < 1e-12 {
		return QuatIdentity()
	}
	angle := math32.Acos(Clamp(from.Dot(to), -1, 1))
	return QuatFromAxisAngle(axis.Normalize(), angle)
}

// Conjugate returns the inverse of a unit quaternion.
func (q Quat) Conjugate() Quat {
	return Quat{-q[0], -q[1], -q[2], q[3]}
}
