package view

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/vecview/internal/geom"
)

const eps = 1e-6

func viewport800x600() geom.Rect {
	return geom.Rect{Width: 800, Height: 600}
}

func randomSettings(rng *rand.Rand) Settings {
	f := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }
	return New(
		geom.Rect{X: f(0, 50), Y: f(0, 50), Width: f(100, 2000), Height: f(100, 2000)},
		geom.Vec(f(0.05, 20), f(0.05, 20), f(0.05, 20)),
		geom.Vec(f(-500, 500), f(-500, 500), f(-500, 500)),
		geom.Vec(f(-math.Pi, math.Pi), f(-math.Pi, math.Pi), f(-math.Pi, math.Pi)),
		geom.Vec(f(-100, 100), f(-100, 100), f(-100, 100)),
	)
}

func assertVec2Near(t *testing.T, want, got geom.Vec2, tol float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "x")
	assert.InDelta(t, want.Y, got.Y, tol, "y")
}

func assertVec3Near(t *testing.T, want, got geom.Vec3, tol float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "x")
	assert.InDelta(t, want.Y, got.Y, tol, "y")
	assert.InDelta(t, want.Z, got.Z, tol, "z")
}

func TestWorldToPixelOriginAtViewportCenter(t *testing.T) {
	s := Default(viewport800x600())

	px, depth := s.WorldToPixel(geom.Vec3{})
	assertVec2Near(t, geom.Vec2{X: 400, Y: 300}, px, eps)
	assert.InDelta(t, 0, depth, eps)

	// +Y is up on screen.
	px, _ = s.WorldToPixel(geom.Vec(10, 20, 0))
	assertVec2Near(t, geom.Vec2{X: 410, Y: 280}, px, eps)
	assertVec3Near(t, geom.Vec(10, 20, 0), s.PixelToWorld(px), eps)
}

func TestWorldToPixelInvalidInput(t *testing.T) {
	s := Default(viewport800x600())

	px, _ := s.WorldToPixel(geom.Vec(math.NaN(), 0, 0))
	assert.False(t, px.IsValid())

	px, _ = s.WorldToPixel(geom.Vec(math.Inf(1), 0, 0))
	assert.False(t, px.IsValid())

	bad := s.WithShift(geom.Vec(0, math.NaN(), 0))
	px, _ = bad.WorldToPixel(geom.Vec3{})
	assert.False(t, px.IsValid())
	assert.False(t, bad.PixelToWorld(geom.Vec2{X: 1, Y: 1}).IsValid())
}

func TestRoundTripOnBasePlane(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		s := randomSettings(rng)
		px := geom.Vec2{
			X: s.Viewport.X + rng.Float64()*s.Viewport.Width,
			Y: s.Viewport.Y + rng.Float64()*s.Viewport.Height,
		}

		w := s.PixelToWorld(px)
		got, depth := s.WorldToPixel(w)
		require.True(t, got.IsValid())
		assertVec2Near(t, px, got, 1e-6)
		assert.InDelta(t, 0, depth, 1e-6)

		back := s.PixelToWorld(got)
		assertVec3Near(t, w, back, 1e-6)
	}
}

func TestRoundTripWithDepth(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 500; i++ {
		s := randomSettings(rng)
		p := geom.Vec(rng.Float64()*2000-1000, rng.Float64()*2000-1000, rng.Float64()*2000-1000)

		px, depth := s.WorldToPixel(p)
		assertVec3Near(t, p, s.PixelToWorldAt(px, depth), 1e-6)
	}
}

func TestUnrotatedBasePlaneIsWorldZ(t *testing.T) {
	s := New(viewport800x600(), geom.Vec(2, 3, 1), geom.Vec(5, -7, 0), geom.Vec3{}, geom.Vec3{})
	p := geom.Vec(12.5, -4, 0)

	px, depth := s.WorldToPixel(p)
	assert.InDelta(t, 0, depth, eps)
	assertVec2Near(t, geom.Vec2{X: 400 + (12.5+5)*2, Y: 300 - (-4-7)*3}, px, eps)
	assertVec3Near(t, p, s.PixelToWorld(px), eps)
}

func TestRotationAroundPivotKeepsPivotFixed(t *testing.T) {
	pivot := geom.Vec(10, 10, 0)
	base := Default(viewport800x600())
	rotated := base.WithRotation(geom.Vec(0.3, -0.7, 1.1), pivot)

	want, _ := base.WorldToPixel(pivot)
	got, _ := rotated.WorldToPixel(pivot)
	assertVec2Near(t, want, got, eps)
	assert.True(t, rotated.IsRotated())
	assert.False(t, base.IsRotated())
}

func TestDistanceConversions(t *testing.T) {
	s := Default(viewport800x600()).WithZoom(geom.Vec(2, 4, 1))

	assert.InDelta(t, 3.0, s.ZoomFactorAverage(), eps)
	assert.InDelta(t, 30.0, s.DistanceRealToPixel(10), eps)
	assert.InDelta(t, 10.0, s.DistancePixelToReal(30), eps)
	assert.InDelta(t, 1.0, s.WorldTolerance(3), eps)

	// Rotation does not change scalar conversions.
	r := s.WithRotation(geom.Vec(0, 0, 1), geom.Vec3{})
	assert.InDelta(t, 30.0, r.DistanceRealToPixel(10), eps)
}

func TestClampToRangePoint(t *testing.T) {
	s := Default(viewport800x600())

	inside := geom.Vec2{X: 10, Y: -20}
	assert.Equal(t, inside, s.ClampToRangePoint(inside))

	far := geom.Vec2{X: 400 + 4e6, Y: 300 - 2e6}
	got := s.ClampToRangePoint(far)
	assert.InDelta(t, 400+MaxPixelCoord, got.X, eps)
	assert.InDelta(t, 300-MaxPixelCoord/2, got.Y, eps)

	// Direction from the center is preserved.
	dWant := math.Atan2(far.Y-300, far.X-400)
	dGot := math.Atan2(got.Y-300, got.X-400)
	assert.InDelta(t, dWant, dGot, 1e-12)

	nan := geom.InvalidVec2()
	assert.False(t, s.ClampToRangePoint(nan).IsValid())
}

func TestWithZoomClamps(t *testing.T) {
	s := Default(viewport800x600()).WithZoom(geom.Vec(0, 1e12, math.NaN()))
	assert.Equal(t, geom.Vec(MinZoom, MaxZoom, 1), s.Zoom)
	assert.True(t, s.IsValid())
}

func TestProjectBox(t *testing.T) {
	s := Default(viewport800x600())

	r, ok := s.ProjectBox(geom.NewBox(geom.Vec(-10, -10, 0), geom.Vec(10, 10, 0)))
	require.True(t, ok)
	assert.InDelta(t, 390, r.X, eps)
	assert.InDelta(t, 290, r.Y, eps)
	assert.InDelta(t, 20, r.Width, eps)
	assert.InDelta(t, 20, r.Height, eps)

	_, ok = s.ProjectBox(geom.EmptyBox())
	assert.False(t, ok)
}

func TestLiteralSettingsMatchConstructed(t *testing.T) {
	lit := Settings{
		Viewport: viewport800x600(),
		Zoom:     geom.Vec(1, 1, 1),
		Rotation: geom.Vec(0.2, 0.1, 0.4),
	}
	built := New(lit.Viewport, lit.Zoom, lit.Shift, lit.Rotation, lit.Pivot)

	p := geom.Vec(3, 4, 5)
	a, da := lit.WorldToPixel(p)
	b, db := built.WorldToPixel(p)
	assertVec2Near(t, a, b, 1e-12)
	assert.InDelta(t, da, db, 1e-12)
	assert.True(t, SameView(lit, built))
}
