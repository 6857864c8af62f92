package scene

import (
	"fmt"
	"math"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
	"github.com/inamate/vecview/internal/view"
)

const (
	// MinRadius is the smallest radius a control-point drag can produce.
	MinRadius = 1e-3

	circleSegments = 64
)

// Circle is a circle of Radius around Center in the plane with the given
// Normal.
//
// With Use3D set the circle is drawn as its exact projection under the view
// rotation, which is an ellipse. Without it the circle is drawn as a screen
// circle, and FixedRadius makes Radius a pixel size instead of a world size.
type Circle struct {
	Base
	Center      geom.Vec3
	Radius      float64
	Normal      geom.Vec3
	Use3D       bool
	FixedRadius bool
}

var (
	_ Element       = (*Circle)(nil)
	_ ViewHitTester = (*Circle)(nil)
)

// NewCircle returns a 3D circle. It fails for a negative radius or a zero
// normal.
func NewCircle(id string, center geom.Vec3, radius float64, normal geom.Vec3, style Style) (*Circle, error) {
	if !(radius >= 0) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("circle radius %v: %w", radius, ErrDegenerate)
	}
	if _, ok := normal.Normalize(); !ok {
		return nil, fmt.Errorf("circle normal %v: %w", normal, ErrDegenerate)
	}
	return &Circle{
		Base:   Base{ID: id, Style: style},
		Center: center,
		Radius: radius,
		Normal: normal,
		Use3D:  true,
	}, nil
}

func (c *Circle) Kind() Kind { return KindCircle }

// PlaneBasis returns two orthonormal vectors spanning the circle's plane.
// ok is false when the normal is degenerate.
func (c *Circle) PlaneBasis() (u, v geom.Vec3, ok bool) {
	n, ok := c.Normal.Normalize()
	if !ok {
		return geom.Vec3{}, geom.Vec3{}, false
	}
	tmp := geom.Vec(1, 0, 0)
	if math.Abs(n.X) >= 0.9 {
		tmp = geom.Vec(0, 1, 0)
	}
	u, ok = n.Cross(tmp).Normalize()
	if !ok {
		return geom.Vec3{}, geom.Vec3{}, false
	}
	v, ok = n.Cross(u).Normalize()
	return u, v, ok
}

// screen reports whether the circle is drawn as a screen circle rather than
// as its projection.
func (c *Circle) screen() bool {
	if !c.Use3D {
		return true
	}
	_, _, ok := c.PlaneBasis()
	return !ok
}

// fixed reports whether Radius is in pixels.
func (c *Circle) fixed() bool {
	return c.FixedRadius && c.screen()
}

// Bounds is tight for 3D circles. Screen circles and circles with a
// degenerate normal get the bounding cube of the sphere. A fixed-radius
// circle has no world extent beyond its center; see PixelPad.
func (c *Circle) Bounds() geom.Box3 {
	if c.fixed() {
		return geom.BoxFromPoints(c.Center)
	}
	r := c.Radius
	if c.Use3D {
		if u, v, ok := c.PlaneBasis(); ok {
			ext := geom.Vec(
				math.Abs(u.X)*r+math.Abs(v.X)*r,
				math.Abs(u.Y)*r+math.Abs(v.Y)*r,
				math.Abs(u.Z)*r+math.Abs(v.Z)*r,
			)
			return geom.NewBox(c.Center.Sub(ext), c.Center.Add(ext))
		}
	}
	ext := geom.Vec(r, r, r)
	return geom.NewBox(c.Center.Sub(ext), c.Center.Add(ext))
}

// PixelPad adds the pixel radius of a fixed-radius circle to the stroke.
func (c *Circle) PixelPad(s view.Settings) float64 {
	pad := c.Base.PixelPad(s)
	if c.fixed() {
		pad += c.pixelRadius(s)
	}
	return pad
}

func (c *Circle) pixelRadius(s view.Settings) float64 {
	r := c.Radius
	if !c.FixedRadius {
		r = s.DistanceRealToPixel(r)
	}
	return min(max(r, 1), view.MaxPixelCoord)
}

func (c *Circle) Emit(t render.Target, s view.Settings) {
	if c.Use3D {
		if u, v, ok := c.PlaneBasis(); ok {
			c.emitProjected(t, s, u, v)
			return
		}
	}
	pc, ok := project(s, c.Center)
	if !ok {
		return
	}
	r := c.pixelRadius(s)
	t.DrawEllipse(pc, r, r, 0, c.pen(), c.Style.Fill)
}

// emitProjected draws the image of the circle under the view. The circle is
// c + u·r·cos θ + v·r·sin θ; the view is affine, so its image is
// pc + a·cos θ + b·sin θ with a and b the projected half-axes u·r and v·r.
// The ellipse semi-axes are the square roots of the eigenvalues of a·aᵀ + b·bᵀ.
func (c *Circle) emitProjected(t render.Target, s view.Settings, u, v geom.Vec3) {
	e, ok := ProjectEllipse(s, c.Center, u.Scale(c.Radius), v.Scale(c.Radius))
	if !ok {
		return
	}
	if e.Minor < 0.5 {
		c.emitSegments(t, s, u, v)
		return
	}
	center := s.ClampToRangePoint(e.Center)
	major := min(e.Major, view.MaxPixelCoord)
	minor := min(e.Minor, view.MaxPixelCoord)
	t.DrawEllipse(center, major, minor, e.Angle, c.pen(), c.Style.Fill)
}

// emitSegments draws a polygon approximation, used when the circle is seen
// edge-on.
func (c *Circle) emitSegments(t render.Target, s view.Settings, u, v geom.Vec3) {
	p := render.NewPath(circleSegments + 2)
	started := false
	for i := 0; i <= circleSegments; i++ {
		th := 2 * math.Pi * float64(i) / circleSegments
		w := c.Center.Add(u.Scale(c.Radius * math.Cos(th))).Add(v.Scale(c.Radius * math.Sin(th)))
		px, ok := project(s, w)
		if !ok {
			started = false
			continue
		}
		if !started {
			p.MoveTo(px)
			started = true
		} else {
			p.LineTo(px)
		}
	}
	t.DrawPath(p, c.pen())
}

// Ellipse is a pixel-space ellipse. Angle is the rotation of the major
// axis from +X in radians, clockwise on screen.
type Ellipse struct {
	Center geom.Vec2
	Major  float64
	Minor  float64
	Angle  float64
}

// ProjectEllipse projects the ellipse center + a·cos θ + b·sin θ, given in
// world space, to pixel space.
func ProjectEllipse(s view.Settings, center, a, b geom.Vec3) (Ellipse, bool) {
	pc, _ := s.WorldToPixel(center)
	pa, _ := s.WorldToPixel(center.Add(a))
	pb, _ := s.WorldToPixel(center.Add(b))
	if !pc.IsValid() || !pa.IsValid() || !pb.IsValid() {
		return Ellipse{}, false
	}
	ax, ay := pa.X-pc.X, pa.Y-pc.Y
	bx, by := pb.X-pc.X, pb.Y-pc.Y

	p := ax*ax + bx*bx
	q := ax*ay + bx*by
	r := ay*ay + by*by
	mean := (p + r) / 2
	d := math.Hypot((p-r)/2, q)
	l1 := mean + d
	l2 := max(mean-d, 0)

	return Ellipse{
		Center: pc,
		Major:  math.Sqrt(l1),
		Minor:  math.Sqrt(l2),
		Angle:  0.5 * math.Atan2(2*q, p-r),
	}, true
}

// HitTest measures the distance from p to the circle's rim. A fixed-radius
// circle has no world-sized rim, so only its center is hit; HitTestView
// tests it against the drawn rim.
func (c *Circle) HitTest(p geom.Vec3, tol float64) bool {
	d := p.Sub(c.Center)
	if c.fixed() {
		return d.Length() <= tol
	}
	if n, ok := c.Normal.Normalize(); ok && c.Use3D {
		h := d.Dot(n)
		inPlane := d.Sub(n.Scale(h)).Length()
		return math.Hypot(h, inPlane-c.Radius) <= tol
	}
	return math.Abs(d.Length()-c.Radius) <= tol
}

// HitTestView measures fixed-radius circles in pixels under s.
func (c *Circle) HitTestView(p geom.Vec3, tol float64, s view.Settings) bool {
	if !c.fixed() {
		return c.HitTest(p, tol)
	}
	pc, _ := s.WorldToPixel(c.Center)
	pp, _ := s.WorldToPixel(p)
	if !pc.IsValid() || !pp.IsValid() {
		return false
	}
	return math.Abs(pc.Distance(pp)-c.pixelRadius(s)) <= s.DistanceRealToPixel(tol)
}

// ControlPoints are the center followed by four rim handles. A
// fixed-radius circle only has its center.
func (c *Circle) ControlPoints() []geom.Vec3 {
	if c.fixed() {
		return []geom.Vec3{c.Center}
	}
	u, v, ok := c.PlaneBasis()
	if !ok || !c.Use3D {
		u, v = geom.Vec(1, 0, 0), geom.Vec(0, 1, 0)
	}
	r := c.Radius
	return []geom.Vec3{
		c.Center,
		c.Center.Add(u.Scale(r)),
		c.Center.Add(v.Scale(r)),
		c.Center.Sub(u.Scale(r)),
		c.Center.Sub(v.Scale(r)),
	}
}

// MoveControlPoint moves the center, or sets the radius from a rim handle.
func (c *Circle) MoveControlPoint(i int, p geom.Vec3) error {
	switch {
	case i == 0:
		c.Center = p
	case i >= 1 && i <= 4 && !c.fixed():
		r := c.Center.Distance(p)
		if r <= MinRadius {
			return fmt.Errorf("circle radius %v: %w", r, ErrDegenerate)
		}
		c.Radius = r
	default:
		return fmt.Errorf("circle has %d control points, got %d: %w", len(c.ControlPoints()), i, ErrControlPoint)
	}
	return nil
}
