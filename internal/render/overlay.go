package render

import (
	"image/color"
	"math"
	"strconv"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/view"
)

const (
	// GridCells is the number of grid cells drawn along each axis of each plane.
	GridCells = 20

	// MinGridPixels hides the grid once its spacing shrinks below this many pixels.
	MinGridPixels = 0.1

	axisPixels      = 80.0
	arrowPixels     = 20.0
	arrowHalfPixels = 10.0

	scaleBarMargin = 10.0
	scaleBarTick   = 5.0
	scaleBarFont   = 10.0
	axisLabelFont  = 12.0
)

var (
	black     = color.NRGBA{A: 255}
	lightGray = color.NRGBA{R: 211, G: 211, B: 211, A: 255}
	axisLabel = color.NRGBA{B: 255, A: 255}
)

// NiceDistance returns the largest 1, 2 or 5 times a power of ten that does
// not exceed d. Non-positive or non-finite input returns 0.
func NiceDistance(d float64) float64 {
	if !(d > 0) || math.IsInf(d, 0) {
		return 0
	}
	mag := math.Pow(10, math.Floor(math.Log10(d)))
	n := d / mag
	// Log10 of an exact power of ten can land just below the integer.
	if n >= 10 {
		mag *= 10
		n /= 10
	}
	switch {
	case n >= 5:
		return 5 * mag
	case n >= 2:
		return 2 * mag
	default:
		return mag
	}
}

// ScaleBar returns the world length and pixel length of a scale bar no
// longer than targetPixels.
func ScaleBar(s view.Settings, targetPixels int) (world, pixels float64) {
	if targetPixels <= 0 {
		return 0, 0
	}
	world = NiceDistance(s.DistancePixelToReal(float64(targetPixels)))
	return world, s.DistanceRealToPixel(world)
}

// DrawScaleBar draws the scale bar in the bottom-left corner of the viewport.
func DrawScaleBar(t Target, s view.Settings, targetPixels int) {
	world, length := ScaleBar(s, targetPixels)
	if world == 0 || length <= 0 {
		return
	}
	pen := Pen{Color: black, Width: 1}
	x0 := s.Viewport.X + scaleBarMargin
	x1 := x0 + length
	y := s.Viewport.Bottom() - scaleBarMargin - scaleBarTick

	t.DrawLine(geom.Vec2{X: x0, Y: y}, geom.Vec2{X: x1, Y: y}, pen)
	t.DrawLine(geom.Vec2{X: x0, Y: y - scaleBarTick}, geom.Vec2{X: x0, Y: y + scaleBarTick}, pen)
	t.DrawLine(geom.Vec2{X: x1, Y: y - scaleBarTick}, geom.Vec2{X: x1, Y: y + scaleBarTick}, pen)

	label := strconv.FormatFloat(world, 'g', -1, 64) + " units"
	t.DrawString(label, geom.Vec2{X: x0 + scaleBarMargin, Y: y - scaleBarFont - 4}, scaleBarFont, black)
}

// GridPath builds the XY, XZ and YZ grid planes from the world origin,
// GridCells cells of spacing world units each. It returns an empty path if
// the grid would be too dense to see.
func GridPath(s view.Settings, spacing float64) *Path {
	p := NewPath(12 * (GridCells + 1))
	if !(spacing > 0) || s.DistanceRealToPixel(spacing) < MinGridPixels {
		return p
	}
	span := GridCells * spacing
	for i := 0; i <= GridCells; i++ {
		c := float64(i) * spacing
		// XY plane
		addSegment(p, s, geom.Vec(0, c, 0), geom.Vec(span, c, 0))
		addSegment(p, s, geom.Vec(c, 0, 0), geom.Vec(c, span, 0))
		// XZ plane
		addSegment(p, s, geom.Vec(0, 0, c), geom.Vec(span, 0, c))
		addSegment(p, s, geom.Vec(c, 0, 0), geom.Vec(c, 0, span))
		// YZ plane
		addSegment(p, s, geom.Vec(0, 0, c), geom.Vec(0, span, c))
		addSegment(p, s, geom.Vec(0, c, 0), geom.Vec(0, c, span))
	}
	return p
}

// DrawGrid strokes GridPath in light gray.
func DrawGrid(t Target, s view.Settings, spacing float64) {
	p := GridPath(s, spacing)
	if p.IsEmpty() {
		return
	}
	t.DrawPath(p, Pen{Color: lightGray, Width: 1})
}

// Axis is one arrow of the axes overlay.
type Axis struct {
	Label string
	Tip   geom.Vec2
}

// AxesPath builds the X, Y and Z arrows from the world origin. Arrow sizes
// are fixed in pixels whatever the zoom.
func AxesPath(s view.Settings) (*Path, []Axis) {
	p := NewPath(18)
	axes := make([]Axis, 0, 3)
	l := s.DistancePixelToReal(axisPixels)
	a := s.DistancePixelToReal(arrowPixels)
	w := s.DistancePixelToReal(arrowHalfPixels)

	arrows := []struct {
		label       string
		end, b1, b2 geom.Vec3
	}{
		{"X", geom.Vec(l, 0, 0), geom.Vec(l-a, w, 0), geom.Vec(l-a, -w, 0)},
		{"Y", geom.Vec(0, l, 0), geom.Vec(w, l-a, 0), geom.Vec(-w, l-a, 0)},
		{"Z", geom.Vec(0, 0, l), geom.Vec(w, 0, l-a), geom.Vec(-w, 0, l-a)},
	}
	for _, ar := range arrows {
		tip, ok := project(s, ar.end)
		if !ok {
			continue
		}
		addSegment(p, s, geom.Vec3{}, ar.end)
		addSegment(p, s, ar.end, ar.b1)
		addSegment(p, s, ar.end, ar.b2)
		axes = append(axes, Axis{Label: ar.label, Tip: tip})
	}
	return p, axes
}

// DrawAxes strokes the axes and labels each arrow tip.
func DrawAxes(t Target, s view.Settings) {
	p, axes := AxesPath(s)
	if p.IsEmpty() {
		return
	}
	t.DrawPath(p, Pen{Color: black, Width: 2})
	for _, ax := range axes {
		t.DrawString(ax.Label, ax.Tip, axisLabelFont, axisLabel)
	}
}

func project(s view.Settings, w geom.Vec3) (geom.Vec2, bool) {
	px, _ := s.WorldToPixel(w)
	if !px.IsValid() {
		return px, false
	}
	return s.ClampToRangePoint(px), true
}

func addSegment(p *Path, s view.Settings, a, b geom.Vec3) {
	pa, ok := project(s, a)
	if !ok {
		return
	}
	pb, ok := project(s, b)
	if !ok {
		return
	}
	p.MoveTo(pa)
	p.LineTo(pb)
}
