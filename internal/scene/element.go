// Package scene holds the drawable elements of a document and the layers
// that order them.
package scene

import (
	"errors"
	"image/color"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
	"github.com/inamate/vecview/internal/view"
)

var (
	ErrNotFound      = errors.New("scene: element not found")
	ErrLayerNotFound = errors.New("scene: layer not found")
	ErrDuplicateID   = errors.New("scene: duplicate id")
	ErrNoActiveLayer = errors.New("scene: no active layer")
	ErrControlPoint  = errors.New("scene: control point out of range")
	ErrDegenerate    = errors.New("scene: degenerate geometry")
)

// Kind names an element variant. The values double as the document type tags.
type Kind string

const (
	KindLine      Kind = "line"
	KindCircle    Kind = "circle"
	KindRectangle Kind = "rectangle"
	KindLabel     Kind = "label"
	KindPolyline  Kind = "polyline"
)

// Style is the stroke and fill of an element. A fill with zero alpha is not drawn.
type Style struct {
	Color color.NRGBA
	Width float64
	Fill  color.NRGBA
}

// DefaultStyle is a one-pixel black stroke without fill.
var DefaultStyle = Style{Color: color.NRGBA{A: 255}, Width: 1}

// Base carries the fields every element has.
type Base struct {
	ID       string
	Style    Style
	Selected bool
}

// Meta returns the shared fields.
func (b *Base) Meta() *Base { return b }

func (b *Base) pen() render.Pen {
	return render.Pen{Color: b.Style.Color, Width: b.Style.Width, Selected: b.Selected}
}

// PixelPad is how far the stroke reaches past the geometry, in pixels.
func (b *Base) PixelPad(view.Settings) float64 {
	return b.pen().StrokeWidth()/2 + 1
}

// Element is a drawable, hit-testable, editable piece of geometry.
//
// Elements do not know which layer holds them. Mutations made through
// Layer.Modify or LayerManager.Modify keep the layer's cached bounds right;
// anything mutated directly must be followed by Touch.
type Element interface {
	Meta() *Base
	Kind() Kind
	Bounds() geom.Box3
	Emit(t render.Target, s view.Settings)
	// HitTest reports whether world point p lies within tol world units
	// of the element.
	HitTest(p geom.Vec3, tol float64) bool
	ControlPoints() []geom.Vec3
	MoveControlPoint(i int, p geom.Vec3) error
}

// ViewHitTester is implemented by elements whose drawn size depends on the
// view. Hit tests made with a view prefer it over HitTest.
type ViewHitTester interface {
	HitTestView(p geom.Vec3, tol float64, s view.Settings) bool
}

func hitTest(el Element, p geom.Vec3, tol float64, s *view.Settings) bool {
	if vh, ok := el.(ViewHitTester); ok && s != nil {
		return vh.HitTestView(p, tol, *s)
	}
	return el.HitTest(p, tol)
}

// project maps w to a clamped pixel, reporting false if it does not project.
func project(s view.Settings, w geom.Vec3) (geom.Vec2, bool) {
	px, _ := s.WorldToPixel(w)
	if !px.IsValid() {
		return px, false
	}
	return s.ClampToRangePoint(px), true
}
