package render

import (
	"math"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/view"
)

// PixelPadder is implemented by drawables that paint outside their world
// bounds by a view-dependent number of pixels, such as screen-sized markers,
// text and wide strokes.
type PixelPadder interface {
	PixelPad(s view.Settings) float64
}

// IsVisible reports whether a world-space box can show up in the viewport.
//
// All eight corners are projected and their pixel bounding rectangle is
// tested against the viewport, edges inclusive. Under rotation this may
// report boxes that are not actually on screen, but never misses one that is.
// Empty boxes and boxes that fail to project are not visible.
func IsVisible(b geom.Box3, s view.Settings) bool {
	return IsVisiblePadded(b, s, 0)
}

// IsVisiblePadded is IsVisible with the projected rectangle grown by pad
// pixels on every side.
func IsVisiblePadded(b geom.Box3, s view.Settings, pad float64) bool {
	if b.IsEmpty() {
		return false
	}
	r, ok := s.ProjectBox(b)
	if !ok {
		return false
	}
	if math.IsInf(pad, 1) {
		return true
	}
	if pad > 0 {
		r = r.Inflate(pad)
	}
	return r.IntersectsWith(s.Viewport)
}

// DrawableVisible culls d by its bounds plus the pixel padding it reports.
func DrawableVisible(d Drawable, s view.Settings) bool {
	var pad float64
	if p, ok := d.(PixelPadder); ok {
		pad = p.PixelPad(s)
	}
	return IsVisiblePadded(d.Bounds(), s, pad)
}
