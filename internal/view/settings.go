package view

import (
	"math"

	"github.com/inamate/vecview/internal/geom"
)

const (
	// MaxPixelCoord bounds pixel coordinates handed to backends.
	MaxPixelCoord = 1e6

	// MinZoom and MaxZoom bound every zoom component.
	MinZoom = 1e-6
	MaxZoom = 1e6
)

// Settings is the viewport transform between world space and pixel space.
//
// Settings is an immutable value: every pan, zoom or rotate builds a new
// value from the fields of the old one. The world-to-pixel mapping is
// composed in this fixed order:
//
//  1. translate:  t = p + Shift
//  2. rotate:     r = R·(t − Pivot) + Pivot, R = Rz·Ry·Rx
//  3. scale:      s = r ⊙ Zoom
//  4. project:    pixel = (cx + s.x, cy − s.y), depth = s.z
//
// where (cx, cy) is the center of Viewport. World +Y points up on screen.
// Pivot is expressed in the shifted frame (after step 1), so changing Shift
// pans the scene underneath a fixed rotation center.
type Settings struct {
	Viewport geom.Rect `json:"viewport"`
	Zoom     geom.Vec3 `json:"zoom"`
	Shift    geom.Vec3 `json:"shift"`
	Rotation geom.Vec3 `json:"rotation"`
	Pivot    geom.Vec3 `json:"pivot"`

	// rot caches R. Values built by struct literal or JSON decoding have
	// hasRot unset and recompute R on use.
	rot    geom.Mat3
	hasRot bool
}

// New builds a transform from its parts.
func New(viewport geom.Rect, zoom, shift, rotation, pivot geom.Vec3) Settings {
	s := Settings{
		Viewport: viewport,
		Zoom:     zoom,
		Shift:    shift,
		Rotation: rotation,
		Pivot:    pivot,
	}
	s.rot = geom.RotationXYZ(rotation)
	s.hasRot = true
	return s
}

// Default returns the document-open transform: unit zoom, no shift, no rotation.
func Default(viewport geom.Rect) Settings {
	return New(viewport, geom.Vec(1, 1, 1), geom.Vec3{}, geom.Vec3{}, geom.Vec3{})
}

// WithViewport returns a copy using a different usable viewport.
func (s Settings) WithViewport(r geom.Rect) Settings {
	return New(r, s.Zoom, s.Shift, s.Rotation, s.Pivot)
}

// WithZoom returns a copy with a different zoom, clamped to [MinZoom, MaxZoom].
func (s Settings) WithZoom(z geom.Vec3) Settings {
	return New(s.Viewport, clampZoom(z), s.Shift, s.Rotation, s.Pivot)
}

// WithShift returns a copy with a different world shift.
func (s Settings) WithShift(shift geom.Vec3) Settings {
	return New(s.Viewport, s.Zoom, shift, s.Rotation, s.Pivot)
}

// WithRotation returns a copy with a different rotation and pivot.
func (s Settings) WithRotation(angles, pivot geom.Vec3) Settings {
	return New(s.Viewport, s.Zoom, s.Shift, angles, pivot)
}

func (s Settings) rotation() geom.Mat3 {
	if s.hasRot {
		return s.rot
	}
	return geom.RotationXYZ(s.Rotation)
}

// IsValid reports whether the transform can map points: finite fields and
// strictly positive zoom on every axis.
func (s Settings) IsValid() bool {
	return s.Zoom.IsValid() && s.Shift.IsValid() && s.Rotation.IsValid() && s.Pivot.IsValid() &&
		s.Zoom.X > 0 && s.Zoom.Y > 0 && s.Zoom.Z > 0
}

// IsRotated reports whether any rotation angle is non-zero.
func (s Settings) IsRotated() bool {
	return s.Rotation != geom.Vec3{}
}

// Center returns the viewport center in pixels.
func (s Settings) Center() geom.Vec2 {
	return s.Viewport.Center()
}

// ZoomFactorAverage is the mean of the X and Y zoom. It converts scalar
// lengths (radii, tolerances, line widths) between the two spaces.
func (s Settings) ZoomFactorAverage() float64 {
	return (s.Zoom.X + s.Zoom.Y) / 2
}

// WorldToPixel maps a world point to pixel space. depth is the scaled,
// rotated Z component; it is informational only and never used for
// occlusion. Non-finite input or an invalid transform yields an invalid
// pixel (check with IsValid).
func (s Settings) WorldToPixel(p geom.Vec3) (pixel geom.Vec2, depth float64) {
	if !p.IsValid() || !s.IsValid() {
		return geom.InvalidVec2(), math.NaN()
	}
	t := p.Add(s.Shift)
	r := s.rotation().Apply(t.Sub(s.Pivot)).Add(s.Pivot)
	sc := r.Mul(s.Zoom)
	c := s.Center()
	return geom.Vec2{X: c.X + sc.X, Y: c.Y - sc.Y}, sc.Z
}

// PixelToViewPlane returns the point in the rotated (pre-scale) frame that
// projects to px at the given depth.
func (s Settings) PixelToViewPlane(px geom.Vec2, depth float64) geom.Vec3 {
	c := s.Center()
	sc := geom.Vec3{X: px.X - c.X, Y: c.Y - px.Y, Z: depth}
	return sc.Div(s.Zoom)
}

// PixelToWorldAt inverts WorldToPixel for a pixel and a known depth.
func (s Settings) PixelToWorldAt(px geom.Vec2, depth float64) geom.Vec3 {
	if !px.IsValid() || !s.IsValid() {
		return geom.Vec3{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
	}
	r := s.PixelToViewPlane(px, depth)
	t := s.rotation().Transpose().Apply(r.Sub(s.Pivot)).Add(s.Pivot)
	return t.Sub(s.Shift)
}

// PixelToWorld maps a pixel back to the world point on the projection's
// base plane (depth 0).
func (s Settings) PixelToWorld(px geom.Vec2) geom.Vec3 {
	return s.PixelToWorldAt(px, 0)
}

// DistanceRealToPixel converts a world length to pixels, ignoring rotation.
func (s Settings) DistanceRealToPixel(d float64) float64 {
	return d * s.ZoomFactorAverage()
}

// DistancePixelToReal converts a pixel length to world units.
func (s Settings) DistancePixelToReal(d float64) float64 {
	avg := s.ZoomFactorAverage()
	if avg <= 0 {
		return math.Inf(1)
	}
	return d / avg
}

// WorldTolerance converts a pick tolerance in pixels to world units.
func (s Settings) WorldTolerance(pixels float64) float64 {
	return s.DistancePixelToReal(pixels)
}

// ClampToRangePoint keeps px inside ±MaxPixelCoord around the viewport
// center. The offset from the center is scaled down uniformly so the
// direction is kept and only the magnitude changes. Invalid points are
// returned unchanged.
func (s Settings) ClampToRangePoint(px geom.Vec2) geom.Vec2 {
	if !px.IsValid() {
		return px
	}
	c := s.Center()
	d := px.Sub(c)
	m := max(math.Abs(d.X), math.Abs(d.Y))
	if m <= MaxPixelCoord {
		return px
	}
	return c.Add(d.Scale(MaxPixelCoord / m))
}

// ProjectBox returns the pixel-space bounding rectangle of all eight
// corners of b. ok is false for empty boxes or invalid projections.
func (s Settings) ProjectBox(b geom.Box3) (r geom.Rect, ok bool) {
	if b.IsEmpty() {
		return geom.Rect{}, false
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range b.Corners() {
		p, _ := s.WorldToPixel(c)
		if !p.IsValid() {
			return geom.Rect{}, false
		}
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return geom.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// anchor returns a copy of s whose shift is adjusted so that world point w
// lands on pixel target. Depth is left free.
func (s Settings) anchor(w geom.Vec3, target geom.Vec2) Settings {
	cur, _ := s.WorldToPixel(w)
	if !cur.IsValid() || !target.IsValid() {
		return s
	}
	// A shift delta δ moves the scaled point by Zoom ⊙ (R·δ).
	d := geom.Vec3{
		X: (target.X - cur.X) / s.Zoom.X,
		Y: -(target.Y - cur.Y) / s.Zoom.Y,
	}
	delta := s.rotation().Transpose().Apply(d)
	return s.WithShift(s.Shift.Add(delta))
}

func clampZoom(z geom.Vec3) geom.Vec3 {
	c := func(f float64) float64 {
		if math.IsNaN(f) {
			return 1
		}
		return max(MinZoom, min(MaxZoom, f))
	}
	return geom.Vec3{X: c(z.X), Y: c(z.Y), Z: c(z.Z)}
}
