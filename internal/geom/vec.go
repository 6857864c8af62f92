package geom

import "math"

// Vec2 is a point or direction in pixel space.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec3 is a point or direction in world space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// InvalidVec2 returns the sentinel used for failed projections.
func InvalidVec2() Vec2 {
	return Vec2{X: math.NaN(), Y: math.NaN()}
}

// IsValid reports whether both components are finite.
func (v Vec2) IsValid() bool {
	return isFinite(v.X) && isFinite(v.Y)
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

func (v Vec2) Scale(f float64) Vec2 {
	return Vec2{v.X * f, v.Y * f}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vec2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

func (v Vec2) Distance(o Vec2) float64 {
	return v.Sub(o).Length()
}

// Vec returns the 3D point (x, y, z).
func Vec(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{v.X * f, v.Y * f, v.Z * f}
}

// Mul multiplies component-wise.
func (v Vec3) Mul(o Vec3) Vec3 {
	return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z}
}

// Div divides component-wise. The caller guarantees non-zero divisors.
func (v Vec3) Div(o Vec3) Vec3 {
	return Vec3{v.X / o.X, v.Y / o.Y, v.Z / o.Z}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

func (v Vec3) Distance(o Vec3) float64 {
	return v.Sub(o).Length()
}

// Normalize returns the unit vector in the direction of v. ok is false when
// v has zero or non-finite length; the returned vector is then meaningless.
func (v Vec3) Normalize() (n Vec3, ok bool) {
	l := v.Length()
	if l < Epsilon || !isFinite(l) {
		return Vec3{}, false
	}
	return v.Scale(1 / l), true
}

// IsValid reports whether all components are finite.
func (v Vec3) IsValid() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

// XY drops the Z component.
func (v Vec3) XY() Vec2 {
	return Vec2{v.X, v.Y}
}

// MinComponents returns the component-wise minimum.
func MinComponents(a, b Vec3) Vec3 {
	return Vec3{min(a.X, b.X), min(a.Y, b.Y), min(a.Z, b.Z)}
}

// MaxComponents returns the component-wise maximum.
func MaxComponents(a, b Vec3) Vec3 {
	return Vec3{max(a.X, b.X), max(a.Y, b.Y), max(a.Z, b.Z)}
}

// Epsilon is the length below which a direction is considered degenerate.
const Epsilon = 1e-12

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// PointSegmentDistance returns the distance from p to the segment ab.
// A zero-length segment degrades to the distance to a.
func PointSegmentDistance(p, a, b Vec3) float64 {
	d := b.Sub(a)
	dd := d.Dot(d)
	if dd < Epsilon {
		return p.Distance(a)
	}
	t := p.Sub(a).Dot(d) / dd
	t = max(0, min(1, t))
	return p.Distance(a.Add(d.Scale(t)))
}
