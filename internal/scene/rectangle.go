package scene

import (
	"fmt"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
	"github.com/inamate/vecview/internal/view"
)

// Rectangle is an axis-aligned rectangle in the XY plane at height Z.
type Rectangle struct {
	Base
	Min geom.Vec2
	Max geom.Vec2
	Z   float64
}

var _ Element = (*Rectangle)(nil)

// NewRectangle normalises the corners so Min <= Max.
func NewRectangle(id string, a, b geom.Vec2, z float64, style Style) *Rectangle {
	r := &Rectangle{Base: Base{ID: id, Style: style}, Z: z}
	r.setCorners(a, b)
	return r
}

func (r *Rectangle) setCorners(a, b geom.Vec2) {
	r.Min = geom.Vec2{X: min(a.X, b.X), Y: min(a.Y, b.Y)}
	r.Max = geom.Vec2{X: max(a.X, b.X), Y: max(a.Y, b.Y)}
}

func (r *Rectangle) Kind() Kind { return KindRectangle }

// Corners returns the corners counter-clockwise from Min.
func (r *Rectangle) Corners() [4]geom.Vec3 {
	return [4]geom.Vec3{
		geom.Vec(r.Min.X, r.Min.Y, r.Z),
		geom.Vec(r.Max.X, r.Min.Y, r.Z),
		geom.Vec(r.Max.X, r.Max.Y, r.Z),
		geom.Vec(r.Min.X, r.Max.Y, r.Z),
	}
}

func (r *Rectangle) Bounds() geom.Box3 {
	return geom.NewBox(geom.Vec(r.Min.X, r.Min.Y, r.Z), geom.Vec(r.Max.X, r.Max.Y, r.Z))
}

// Emit draws a screen rectangle while the view is unrotated and the
// projected quadrilateral otherwise.
func (r *Rectangle) Emit(t render.Target, s view.Settings) {
	cs := r.Corners()
	if !s.IsRotated() {
		a, ok := project(s, cs[0])
		if !ok {
			return
		}
		b, ok := project(s, cs[2])
		if !ok {
			return
		}
		t.DrawRectangle(geom.RectFromPoints(a, b), r.pen(), r.Style.Fill)
		return
	}
	pts := make([]geom.Vec2, 0, 4)
	for _, c := range cs {
		px, ok := project(s, c)
		if !ok {
			return
		}
		pts = append(pts, px)
	}
	t.DrawPolygon(pts, r.pen(), r.Style.Fill)
}

// HitTest picks the outline, or the interior when the rectangle is filled.
func (r *Rectangle) HitTest(p geom.Vec3, tol float64) bool {
	cs := r.Corners()
	for i := range cs {
		if geom.PointSegmentDistance(p, cs[i], cs[(i+1)%4]) <= tol {
			return true
		}
	}
	if r.Style.Fill.A == 0 {
		return false
	}
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y &&
		p.Z >= r.Z-tol && p.Z <= r.Z+tol
}

// ControlPoints are the four corners and the center.
func (r *Rectangle) ControlPoints() []geom.Vec3 {
	cs := r.Corners()
	c := geom.Vec((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2, r.Z)
	return []geom.Vec3{cs[0], cs[1], cs[2], cs[3], c}
}

// MoveControlPoint drags a corner with the opposite corner fixed, or moves
// the whole rectangle by its center. The Z of p is ignored for corners.
func (r *Rectangle) MoveControlPoint(i int, p geom.Vec3) error {
	cs := r.Corners()
	switch {
	case i >= 0 && i < 4:
		opp := cs[(i+2)%4]
		r.setCorners(p.XY(), opp.XY())
	case i == 4:
		c := r.ControlPoints()[4]
		d := p.Sub(c)
		r.Min = r.Min.Add(d.XY())
		r.Max = r.Max.Add(d.XY())
		r.Z += d.Z
	default:
		return fmt.Errorf("rectangle has 5 control points, got %d: %w", i, ErrControlPoint)
	}
	return nil
}
