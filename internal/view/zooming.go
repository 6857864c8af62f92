package view

import (
	"math"

	"github.com/inamate/vecview/internal/geom"
)

const (
	// ZoomInStep and ZoomOutStep are the factors applied by ZoomIn and ZoomOut.
	ZoomInStep  = 1.1
	ZoomOutStep = 0.9

	// DefaultPadding is the zoom-extents margin in percent.
	DefaultPadding = 5.0

	// DefaultHistory is the number of previous views kept for ZoomPrevious.
	DefaultHistory = 32

	// MinFitExtent floors a degenerate axis (a point, or an axis-parallel
	// line) when fitting bounds, in world units.
	MinFitExtent = 1e-3

	// PanStepPixels is the distance moved by PanStep.
	PanStepPixels = 5.0
)

// Extents is anything that can report the union bounds of its visible content.
type Extents interface {
	VisibleBounds() geom.Box3
}

// PanDirection selects a keyboard pan.
type PanDirection int

const (
	PanXPlus PanDirection = iota
	PanXMinus
	PanYPlus
	PanYMinus
)

// Zooming computes new view settings for zoom, pan, fit and rotate actions.
//
// Each action takes the current Settings and returns a new value; the only
// state Zooming keeps is a bounded stack of previous views for ZoomPrevious.
// Zooming is not safe for concurrent use.
type Zooming struct {
	history  []Settings
	capacity int
}

// NewZooming returns a Zooming that remembers up to capacity previous views.
// A non-positive capacity selects DefaultHistory.
func NewZooming(capacity int) *Zooming {
	if capacity <= 0 {
		capacity = DefaultHistory
	}
	return &Zooming{capacity: capacity}
}

// HistoryLen returns the number of views available to ZoomPrevious.
func (z *Zooming) HistoryLen() int {
	return len(z.history)
}

// Reset drops the history.
func (z *Zooming) Reset() {
	z.history = nil
}

// ZoomIn zooms in by ZoomInStep keeping the world point under (px, py) fixed.
func (z *Zooming) ZoomIn(s Settings, px, py float64) Settings {
	return z.ZoomBy(s, ZoomInStep, px, py)
}

// ZoomOut zooms out by ZoomOutStep keeping the world point under (px, py) fixed.
func (z *Zooming) ZoomOut(s Settings, px, py float64) Settings {
	return z.ZoomBy(s, ZoomOutStep, px, py)
}

// ZoomBy multiplies every zoom component by factor around the pivot pixel.
// The world point on the base plane under the pivot stays under the pivot.
func (z *Zooming) ZoomBy(s Settings, factor, px, py float64) Settings {
	if !(factor > 0) || math.IsInf(factor, 0) || !s.IsValid() {
		return s
	}
	pivot := geom.Vec2{X: px, Y: py}
	w := s.PixelToWorld(pivot)
	if !w.IsValid() {
		return s
	}
	n := s.WithZoom(s.Zoom.Scale(factor)).anchor(w, pivot)
	return z.record(s, n)
}

// ZoomExtents fits the visible bounds of ext into the viewport with a
// padding margin in percent. An empty scene leaves s unchanged.
func (z *Zooming) ZoomExtents(s Settings, ext Extents, padding float64) Settings {
	if ext == nil {
		panic("view: ZoomExtents called with nil extents")
	}
	n, ok := fit(s, ext.VisibleBounds(), padding)
	if !ok {
		return s
	}
	return z.record(s, n)
}

// ZoomToRectangle fits the box spanned by two world points with no padding.
// A rectangle that projects to a single pixel is ignored.
func (z *Zooming) ZoomToRectangle(s Settings, worldStart, worldEnd geom.Vec3) Settings {
	if !worldStart.IsValid() || !worldEnd.IsValid() {
		return s
	}
	box := geom.NewBox(worldStart, worldEnd)
	r, ok := s.ProjectBox(box)
	if !ok || (r.Width < 1 && r.Height < 1) {
		return s
	}
	n, ok := fit(s, box, 0)
	if !ok {
		return s
	}
	return z.record(s, n)
}

// GetRegionViewSettings fits an arbitrary region. It does not touch the
// history: region views are used for export, not for navigation.
func (z *Zooming) GetRegionViewSettings(s Settings, region geom.Box3, padding float64) Settings {
	n, ok := fit(s, region, padding)
	if !ok {
		return s
	}
	return n
}

// ZoomPrevious returns the most recently replaced view, or s if there is
// none. The viewport of s is kept: history restores where the view looked,
// not the output size it had then.
func (z *Zooming) ZoomPrevious(s Settings) Settings {
	if len(z.history) == 0 {
		return s
	}
	last := z.history[len(z.history)-1]
	z.history = z.history[:len(z.history)-1]
	return last.WithViewport(s.Viewport)
}

// Pan moves the content by (dx, dy) pixels, whatever the rotation.
func (z *Zooming) Pan(s Settings, dx, dy float64) Settings {
	if dx == 0 && dy == 0 {
		return s
	}
	c := s.Center()
	w := s.PixelToWorld(c)
	if !w.IsValid() {
		return s
	}
	n := s.anchor(w, geom.Vec2{X: c.X + dx, Y: c.Y + dy})
	return z.record(s, n)
}

// PanStep pans by PanStepPixels. PanXPlus moves content right, PanYPlus up.
func (z *Zooming) PanStep(s Settings, dir PanDirection) Settings {
	switch dir {
	case PanXPlus:
		return z.Pan(s, PanStepPixels, 0)
	case PanXMinus:
		return z.Pan(s, -PanStepPixels, 0)
	case PanYPlus:
		return z.Pan(s, 0, -PanStepPixels)
	case PanYMinus:
		return z.Pan(s, 0, PanStepPixels)
	}
	return s
}

// Rotate sets the rotation angles (radians). The rotation pivot becomes the
// base-plane point under pivotPixel, and that point keeps its pixel position.
func (z *Zooming) Rotate(s Settings, angles geom.Vec3, pivotPixel geom.Vec2) Settings {
	if !angles.IsValid() {
		return s
	}
	w := s.PixelToWorld(pivotPixel)
	if !w.IsValid() {
		return s
	}
	n := s.WithRotation(angles, w.Add(s.Shift)).anchor(w, pivotPixel)
	return z.record(s, n)
}

// Resize swaps the usable viewport. The world point at the viewport center
// stays at the center; history is untouched.
func (z *Zooming) Resize(s Settings, viewport geom.Rect) Settings {
	return s.WithViewport(viewport)
}

func (z *Zooming) record(old, n Settings) Settings {
	if SameView(old, n) {
		return old
	}
	if len(z.history) >= z.capacity {
		copy(z.history, z.history[1:])
		z.history = z.history[:len(z.history)-1]
	}
	z.history = append(z.history, old)
	return n
}

// SameView reports whether two settings describe the same mapping.
func SameView(a, b Settings) bool {
	return a.Viewport == b.Viewport && a.Zoom == b.Zoom && a.Shift == b.Shift &&
		a.Rotation == b.Rotation && a.Pivot == b.Pivot
}

// fit scales the current zoom uniformly so box fills the viewport, then
// centers it. Per-axis zoom ratios are preserved.
func fit(s Settings, box geom.Box3, padding float64) (Settings, bool) {
	if !box.IsValid() || !s.IsValid() || s.Viewport.IsEmpty() {
		return s, false
	}
	r, ok := s.ProjectBox(box)
	if !ok {
		return s, false
	}
	if padding < 0 || math.IsNaN(padding) {
		padding = 0
	}
	floor := MinFitExtent * s.ZoomFactorAverage()
	pad := 1 + padding/100
	ex := max(r.Width, floor) * pad
	ey := max(r.Height, floor) * pad

	k := min(s.Viewport.Width/ex, s.Viewport.Height/ey)
	if !(k > 0) || math.IsInf(k, 0) {
		return s, false
	}
	n := s.WithZoom(s.Zoom.Scale(k))
	return n.anchor(box.Center(), n.Center()), true
}
