package scene

import (
	"fmt"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
	"github.com/inamate/vecview/internal/view"
)

// Polyline is an open or closed chain of segments.
type Polyline struct {
	Base
	Points []geom.Vec3
	Closed bool
}

var _ Element = (*Polyline)(nil)

func NewPolyline(id string, pts []geom.Vec3, closed bool, style Style) *Polyline {
	return &Polyline{Base: Base{ID: id, Style: style}, Points: append([]geom.Vec3(nil), pts...), Closed: closed}
}

func (p *Polyline) Kind() Kind { return KindPolyline }

func (p *Polyline) Bounds() geom.Box3 {
	return geom.BoxFromPoints(p.Points...)
}

// Emit strokes the chain as a path. A closed, filled polyline whose points
// all project is drawn as a polygon so the fill shows.
func (p *Polyline) Emit(t render.Target, s view.Settings) {
	if len(p.Points) < 2 {
		return
	}
	pts := make([]geom.Vec2, len(p.Points))
	complete := true
	for i, w := range p.Points {
		px, ok := project(s, w)
		if !ok {
			complete = false
		}
		pts[i] = px
	}
	if p.Closed && complete && p.Style.Fill.A > 0 {
		t.DrawPolygon(pts, p.pen(), p.Style.Fill)
		return
	}

	path := render.NewPath(len(pts) + 1)
	started := false
	for _, px := range pts {
		if !px.IsValid() {
			started = false
			continue
		}
		if !started {
			path.MoveTo(px)
			started = true
		} else {
			path.LineTo(px)
		}
	}
	if p.Closed && complete {
		path.Close()
	}
	t.DrawPath(path, p.pen())
}

func (p *Polyline) HitTest(pt geom.Vec3, tol float64) bool {
	n := len(p.Points)
	if n == 1 {
		return pt.Distance(p.Points[0]) <= tol
	}
	for i := 0; i+1 < n; i++ {
		if geom.PointSegmentDistance(pt, p.Points[i], p.Points[i+1]) <= tol {
			return true
		}
	}
	if p.Closed && n > 2 {
		return geom.PointSegmentDistance(pt, p.Points[n-1], p.Points[0]) <= tol
	}
	return false
}

func (p *Polyline) ControlPoints() []geom.Vec3 {
	return append([]geom.Vec3(nil), p.Points...)
}

func (p *Polyline) MoveControlPoint(i int, pt geom.Vec3) error {
	if i < 0 || i >= len(p.Points) {
		return fmt.Errorf("polyline has %d control points, got %d: %w", len(p.Points), i, ErrControlPoint)
	}
	p.Points[i] = pt
	return nil
}
