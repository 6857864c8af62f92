package geom

import "math"

// Mat3 is a 3x3 row-major matrix used for view rotations.
//
//	| m[0] m[1] m[2] |
//	| m[3] m[4] m[5] |
//	| m[6] m[7] m[8] |
type Mat3 [9]float64

// Identity3 returns the identity matrix.
func Identity3() Mat3 {
	return Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// RotateX returns a rotation about the X axis (radians).
func RotateX(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{1, 0, 0, 0, c, -s, 0, s, c}
}

// RotateY returns a rotation about the Y axis (radians).
func RotateY(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{c, 0, s, 0, 1, 0, -s, 0, c}
}

// RotateZ returns a rotation about the Z axis (radians).
func RotateZ(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{c, -s, 0, s, c, 0, 0, 0, 1}
}

// RotationXYZ composes Rz * Ry * Rx: X is applied first, Z last.
func RotationXYZ(angles Vec3) Mat3 {
	return RotateZ(angles.Z).Multiply(RotateY(angles.Y)).Multiply(RotateX(angles.X))
}

// Multiply returns m * o. This applies o first, then m.
func (m Mat3) Multiply(o Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i*3+j] = m[i*3]*o[j] + m[i*3+1]*o[3+j] + m[i*3+2]*o[6+j]
		}
	}
	return r
}

// Apply transforms v.
func (m Mat3) Apply(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

// Transpose returns the transpose, which is the inverse for rotations.
func (m Mat3) Transpose() Mat3 {
	return Mat3{m[0], m[3], m[6], m[1], m[4], m[7], m[2], m[5], m[8]}
}

// IsIdentity checks if this is the identity matrix (within epsilon).
func (m Mat3) IsIdentity() bool {
	const eps = 1e-10
	id := Identity3()
	for i := range m {
		if math.Abs(m[i]-id[i]) >= eps {
			return false
		}
	}
	return true
}
