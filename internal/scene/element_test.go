package scene

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
	"github.com/inamate/vecview/internal/render/raster"
	"github.com/inamate/vecview/internal/view"
)

func testView() view.Settings {
	return view.Default(geom.Rect{Width: 800, Height: 600})
}

func assertVecNear(t *testing.T, want, got geom.Vec3) {
	t.Helper()
	assert.InDelta(t, 0, want.Distance(got), 1e-9, "want %v, got %v", want, got)
}

func TestNewCircleRejectsDegenerate(t *testing.T) {
	_, err := NewCircle("c", geom.Vec3{}, -1, geom.Vec(0, 0, 1), DefaultStyle)
	assert.ErrorIs(t, err, ErrDegenerate)

	_, err = NewCircle("c", geom.Vec3{}, 1, geom.Vec3{}, DefaultStyle)
	assert.ErrorIs(t, err, ErrDegenerate)

	c, err := NewCircle("c", geom.Vec3{}, 0, geom.Vec(0, 0, 1), DefaultStyle)
	require.NoError(t, err)
	assert.True(t, c.Use3D)
}

func TestCircleBoundsFollowPlane(t *testing.T) {
	flat, err := NewCircle("c", geom.Vec(1, 2, 3), 10, geom.Vec(0, 0, 1), DefaultStyle)
	require.NoError(t, err)
	b := flat.Bounds()
	assert.Equal(t, geom.Vec(-9, -8, 3), b.Min)
	assert.Equal(t, geom.Vec(11, 12, 3), b.Max)

	tilted, err := NewCircle("t", geom.Vec3{}, 10, geom.Vec(1, 0, 1), DefaultStyle)
	require.NoError(t, err)
	tb := tilted.Bounds()
	assert.InDelta(t, 10/math.Sqrt2, tb.Max.X, 1e-9)
	assert.InDelta(t, 10, tb.Max.Y, 1e-9)
	assert.InDelta(t, 10/math.Sqrt2, tb.Max.Z, 1e-9)

	// Every rim point is inside the bounds.
	u, v, ok := tilted.PlaneBasis()
	require.True(t, ok)
	for i := 0; i < 36; i++ {
		th := float64(i) * math.Pi / 18
		p := u.Scale(10 * math.Cos(th)).Add(v.Scale(10 * math.Sin(th)))
		assert.True(t, tb.Inflate(1e-9).Contains(p))
	}

	flat.Use3D = false
	sb := flat.Bounds()
	assert.Equal(t, geom.Vec(-9, -8, -7), sb.Min)
}

func TestPlaneBasisIsOrthonormal(t *testing.T) {
	for _, n := range []geom.Vec3{geom.Vec(0, 0, 1), geom.Vec(1, 0, 0), geom.Vec(0.3, -2, 0.7)} {
		c := &Circle{Normal: n}
		u, v, ok := c.PlaneBasis()
		require.True(t, ok)
		nn, _ := n.Normalize()
		assert.InDelta(t, 1, u.Length(), 1e-12)
		assert.InDelta(t, 1, v.Length(), 1e-12)
		assert.InDelta(t, 0, u.Dot(v), 1e-12)
		assert.InDelta(t, 0, u.Dot(nn), 1e-12)
		assert.InDelta(t, 0, v.Dot(nn), 1e-12)
	}
}

func TestProjectEllipse(t *testing.T) {
	t.Run("face on", func(t *testing.T) {
		s := testView().WithZoom(geom.Vec(2, 2, 2))
		e, ok := ProjectEllipse(s, geom.Vec3{}, geom.Vec(10, 0, 0), geom.Vec(0, 10, 0))
		require.True(t, ok)
		assert.InDelta(t, 20, e.Major, 1e-9)
		assert.InDelta(t, 20, e.Minor, 1e-9)
		assert.Equal(t, geom.Vec2{X: 400, Y: 300}, e.Center)
	})

	t.Run("tilted", func(t *testing.T) {
		s := testView().WithRotation(geom.Vec(math.Pi/3, 0, 0), geom.Vec3{})
		e, ok := ProjectEllipse(s, geom.Vec3{}, geom.Vec(0, 10, 0), geom.Vec(-10, 0, 0))
		require.True(t, ok)
		assert.InDelta(t, 10, e.Major, 1e-9)
		assert.InDelta(t, 5, e.Minor, 1e-9)
		assert.InDelta(t, 0, e.Angle, 1e-9)
	})

	t.Run("rotated on screen", func(t *testing.T) {
		// Semi-axes along the screen diagonals.
		s := testView()
		a := geom.Vec(6, 6, 0)
		b := geom.Vec(-1, 1, 0)
		e, ok := ProjectEllipse(s, geom.Vec3{}, a, b)
		require.True(t, ok)
		assert.InDelta(t, a.Length(), e.Major, 1e-9)
		assert.InDelta(t, b.Length(), e.Minor, 1e-9)
		assert.InDelta(t, math.Pi/4, math.Abs(e.Angle), 1e-9)
	})

	t.Run("invalid", func(t *testing.T) {
		_, ok := ProjectEllipse(testView(), geom.Vec(math.NaN(), 0, 0), geom.Vec(1, 0, 0), geom.Vec(0, 1, 0))
		assert.False(t, ok)
	})
}

func TestCircleEmit(t *testing.T) {
	s := testView().WithZoom(geom.Vec(3, 3, 3))

	t.Run("screen circle", func(t *testing.T) {
		c, err := NewCircle("c", geom.Vec3{}, 10, geom.Vec(0, 0, 1), DefaultStyle)
		require.NoError(t, err)
		c.Use3D = false
		var r recorder
		c.Emit(&r, s)
		require.Equal(t, []string{"ellipse"}, r.calls)
		assert.InDelta(t, 30, r.ellipses[0][0], 1e-9)

		c.FixedRadius = true
		r = recorder{}
		c.Emit(&r, s)
		assert.InDelta(t, 10, r.ellipses[0][0], 1e-9)
	})

	t.Run("projected", func(t *testing.T) {
		c, err := NewCircle("c", geom.Vec3{}, 10, geom.Vec(0, 0, 1), DefaultStyle)
		require.NoError(t, err)
		var r recorder
		c.Emit(&r, s.WithRotation(geom.Vec(math.Pi/3, 0, 0), geom.Vec3{}))
		require.Equal(t, []string{"ellipse"}, r.calls)
		assert.InDelta(t, 30, r.ellipses[0][0], 1e-9)
		assert.InDelta(t, 15, r.ellipses[0][1], 1e-9)
	})

	t.Run("edge on", func(t *testing.T) {
		c, err := NewCircle("c", geom.Vec3{}, 10, geom.Vec(0, 1, 0), DefaultStyle)
		require.NoError(t, err)
		c.Selected = true
		var r recorder
		c.Emit(&r, s)
		require.Len(t, r.calls, 1)
		assert.Equal(t, "path:65", r.calls[0])
		assert.True(t, r.pens[0].Selected)
	})
}

func TestCircleControlPoints(t *testing.T) {
	c, err := NewCircle("c", geom.Vec(1, 1, 0), 5, geom.Vec(0, 0, 1), DefaultStyle)
	require.NoError(t, err)

	cps := c.ControlPoints()
	require.Len(t, cps, 5)
	for _, p := range cps[1:] {
		assert.InDelta(t, 5, p.Distance(c.Center), 1e-9)
		assert.True(t, c.HitTest(p, 1e-6))
	}

	require.NoError(t, c.MoveControlPoint(1, geom.Vec(1, 9, 0)))
	assert.InDelta(t, 8, c.Radius, 1e-12)
	assert.ErrorIs(t, c.MoveControlPoint(2, geom.Vec(1, 1, 0)), ErrDegenerate)
	assert.ErrorIs(t, c.MoveControlPoint(5, geom.Vec3{}), ErrControlPoint)

	require.NoError(t, c.MoveControlPoint(0, geom.Vec(4, 4, 4)))
	assert.Equal(t, geom.Vec(4, 4, 4), c.Center)
}

func TestCircleHitTest(t *testing.T) {
	c, err := NewCircle("c", geom.Vec3{}, 10, geom.Vec(0, 0, 1), DefaultStyle)
	require.NoError(t, err)

	assert.True(t, c.HitTest(geom.Vec(10.4, 0, 0), 0.5))
	assert.False(t, c.HitTest(geom.Vec(0, 0, 0), 0.5))
	assert.False(t, c.HitTest(geom.Vec(10, 0, 1), 0.5), "off the plane")
	assert.True(t, c.HitTest(geom.Vec(0, 10, 0.3), 0.5))
}

func TestFixedRadiusCircle(t *testing.T) {
	c, err := NewCircle("f", geom.Vec3{}, 10, geom.Vec(0, 0, 1), DefaultStyle)
	require.NoError(t, err)
	c.Use3D = false
	c.FixedRadius = true

	// Zoomed far out with the center 5 px left of the viewport: the drawn
	// 10 px circle still reaches into view.
	s := view.New(geom.Rect{Width: 800, Height: 600}, geom.Vec(0.01, 0.01, 0.01),
		geom.Vec(-40500, 0, 0), geom.Vec3{}, geom.Vec3{})
	px, _ := s.WorldToPixel(c.Center)
	require.InDelta(t, -5, px.X, 1e-9)

	assert.Equal(t, geom.BoxFromPoints(c.Center), c.Bounds())
	assert.InDelta(t, 10+1.5, c.PixelPad(s), 1e-9)
	assert.True(t, render.DrawableVisible(c, s))

	far := s.WithShift(geom.Vec(-43000, 0, 0))
	assert.False(t, render.DrawableVisible(c, far))

	rim := s.PixelToWorld(geom.Vec2{X: 5, Y: 300})
	assert.True(t, c.HitTestView(rim, s.WorldTolerance(2), s))
	assert.False(t, c.HitTestView(c.Center, s.WorldTolerance(2), s))
	assert.True(t, c.HitTest(c.Center, 1e-6))

	assert.Len(t, c.ControlPoints(), 1)
	assert.ErrorIs(t, c.MoveControlPoint(1, geom.Vec(1, 0, 0)), ErrControlPoint)
}

func TestLabelBoundsCoverGlyphs(t *testing.T) {
	rt, err := raster.New()
	require.NoError(t, err)

	for _, text := range []string{"WWWWWWWWWW", "mmmm", "vecview sample"} {
		l := NewLabel("t", geom.Vec3{}, text, 20, DefaultStyle)
		assert.GreaterOrEqual(t, l.Width(), rt.MeasureString(text, 20), text)
	}

	// The drawn text ends about 40 px into the viewport.
	l := NewLabel("t", geom.Vec(-550, 0, 0), "WWWWWWWWWW", 20, DefaultStyle)
	assert.True(t, render.DrawableVisible(l, testView()))
	assert.Greater(t, l.PixelPad(testView()), 5.0)
}

func TestLine(t *testing.T) {
	l := NewLine("l", geom.Vec(0, 0, 0), geom.Vec(10, 0, 0), DefaultStyle)

	assert.True(t, l.HitTest(geom.Vec(5, 0.5, 0), 1))
	assert.False(t, l.HitTest(geom.Vec(12, 0, 0), 1))

	require.NoError(t, l.MoveControlPoint(2, geom.Vec(5, 3, 0)))
	assert.Equal(t, geom.Vec(0, 3, 0), l.Start)
	assert.Equal(t, geom.Vec(10, 3, 0), l.End)
	assert.ErrorIs(t, l.MoveControlPoint(3, geom.Vec3{}), ErrControlPoint)

	var r recorder
	l.Emit(&r, testView())
	assert.Equal(t, []string{"line"}, r.calls)

	r = recorder{}
	l.End = geom.Vec(math.NaN(), 0, 0)
	l.Emit(&r, testView())
	assert.Empty(t, r.calls)
}

func TestRectangle(t *testing.T) {
	r := NewRectangle("r", geom.Vec2{X: 10, Y: 5}, geom.Vec2{X: 0, Y: 0}, 2, DefaultStyle)
	assert.Equal(t, geom.Vec2{}, r.Min)
	assert.Equal(t, geom.Vec2{X: 10, Y: 5}, r.Max)
	assert.Equal(t, geom.NewBox(geom.Vec(0, 0, 2), geom.Vec(10, 5, 2)), r.Bounds())

	assert.True(t, r.HitTest(geom.Vec(5, 0.1, 2), 0.2))
	assert.False(t, r.HitTest(geom.Vec(5, 2.5, 2), 0.2), "hollow interior")
	r.Style.Fill = color.NRGBA{R: 255, A: 255}
	assert.True(t, r.HitTest(geom.Vec(5, 2.5, 2), 0.2))

	// Dragging corner 0 past the opposite corner flips the rectangle.
	require.NoError(t, r.MoveControlPoint(0, geom.Vec(12, 7, 0)))
	assert.Equal(t, geom.Vec2{X: 10, Y: 5}, r.Min)
	assert.Equal(t, geom.Vec2{X: 12, Y: 7}, r.Max)

	require.NoError(t, r.MoveControlPoint(4, geom.Vec(0, 0, 2)))
	assert.Equal(t, geom.Vec2{X: -1, Y: -1}, r.Min)
	assert.Equal(t, geom.Vec2{X: 1, Y: 1}, r.Max)
	assert.ErrorIs(t, r.MoveControlPoint(5, geom.Vec3{}), ErrControlPoint)

	var rec recorder
	r.Emit(&rec, testView())
	assert.Equal(t, []string{"rect"}, rec.calls)

	rec = recorder{}
	r.Emit(&rec, testView().WithRotation(geom.Vec(0, 0, 0.3), geom.Vec3{}))
	assert.Equal(t, []string{"polygon:4"}, rec.calls)
}

func TestLabel(t *testing.T) {
	l := NewLabel("t", geom.Vec(0, 0, 0), "abcd", 10, DefaultStyle)
	assert.InDelta(t, 40, l.Width(), 1e-12)
	assertVecNear(t, geom.Vec(40, 10, 0), l.Bounds().Max)
	assert.True(t, l.HitTest(geom.Vec(12, 5, 0), 0))
	assert.False(t, l.HitTest(geom.Vec(45, 5, 0), 1))

	var r recorder
	l.Emit(&r, testView())
	assert.Equal(t, []string{"text:abcd"}, r.calls)

	// Too small to read.
	r = recorder{}
	l.Emit(&r, testView().WithZoom(geom.Vec(0.05, 0.05, 0.05)))
	assert.Empty(t, r.calls)

	empty := NewLabel("e", geom.Vec(1, 2, 3), "", 10, DefaultStyle)
	assert.Equal(t, geom.Vec(1, 2, 3), empty.Bounds().Min)
	assert.Equal(t, geom.Vec(1, 2, 3), empty.Bounds().Max)

	assert.ErrorIs(t, l.MoveControlPoint(1, geom.Vec3{}), ErrControlPoint)
}

func TestPolyline(t *testing.T) {
	pts := []geom.Vec3{geom.Vec(0, 0, 0), geom.Vec(10, 0, 0), geom.Vec(10, 10, 0)}
	p := NewPolyline("p", pts, false, DefaultStyle)
	pts[0] = geom.Vec(99, 99, 99)
	assert.Equal(t, geom.Vec(0, 0, 0), p.Points[0], "points are copied")

	assert.False(t, p.HitTest(geom.Vec(5, 5, 0), 0.5))
	p.Closed = true
	assert.True(t, p.HitTest(geom.Vec(5, 5, 0), 0.5), "closing segment")

	var r recorder
	p.Emit(&r, testView())
	assert.Equal(t, []string{"path:4"}, r.calls)

	p.Style.Fill = color.NRGBA{G: 255, A: 128}
	r = recorder{}
	p.Emit(&r, testView())
	assert.Equal(t, []string{"polygon:3"}, r.calls)

	// An invalid point breaks the path and drops the fill.
	p.Points[1] = geom.Vec(math.Inf(1), 0, 0)
	r = recorder{}
	p.Emit(&r, testView())
	assert.Equal(t, []string{"path:2"}, r.calls)

	assert.ErrorIs(t, p.MoveControlPoint(3, geom.Vec3{}), ErrControlPoint)
	require.NoError(t, p.MoveControlPoint(2, geom.Vec(1, 1, 1)))
	assert.Equal(t, geom.Vec(1, 1, 1), p.ControlPoints()[2])
}
