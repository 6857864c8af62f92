package scene

import (
	"fmt"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
	"github.com/inamate/vecview/internal/view"
)

// Line is a straight segment between two world points.
type Line struct {
	Base
	Start geom.Vec3
	End   geom.Vec3
}

var _ Element = (*Line)(nil)

func NewLine(id string, start, end geom.Vec3, style Style) *Line {
	return &Line{Base: Base{ID: id, Style: style}, Start: start, End: end}
}

func (l *Line) Kind() Kind { return KindLine }

func (l *Line) Bounds() geom.Box3 {
	return geom.BoxFromPoints(l.Start, l.End)
}

func (l *Line) Emit(t render.Target, s view.Settings) {
	a, ok := project(s, l.Start)
	if !ok {
		return
	}
	b, ok := project(s, l.End)
	if !ok {
		return
	}
	t.DrawLine(a, b, l.pen())
}

func (l *Line) HitTest(p geom.Vec3, tol float64) bool {
	return geom.PointSegmentDistance(p, l.Start, l.End) <= tol
}

// ControlPoints are the start, the end and the midpoint.
func (l *Line) ControlPoints() []geom.Vec3 {
	return []geom.Vec3{l.Start, l.End, l.Start.Add(l.End).Scale(0.5)}
}

// MoveControlPoint moves an end, or the whole line when i is the midpoint.
func (l *Line) MoveControlPoint(i int, p geom.Vec3) error {
	switch i {
	case 0:
		l.Start = p
	case 1:
		l.End = p
	case 2:
		d := p.Sub(l.Start.Add(l.End).Scale(0.5))
		l.Start = l.Start.Add(d)
		l.End = l.End.Add(d)
	default:
		return fmt.Errorf("line has 3 control points, got %d: %w", i, ErrControlPoint)
	}
	return nil
}
