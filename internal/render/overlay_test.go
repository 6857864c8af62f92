package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/view"
)

func TestNiceDistance(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{100, 100},
		{99, 50},
		{37, 20},
		{19.9, 10},
		{5, 5},
		{1000, 1000},
		{0.7, 0.5},
		{0.0031, 0.002},
		{0, 0},
		{-4, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NiceDistance(tt.in), 1e-12, "NiceDistance(%v)", tt.in)
	}
}

func TestScaleBarNeverExceedsTarget(t *testing.T) {
	for _, z := range []float64{0.013, 0.5, 1, 2.7, 28.57, 400} {
		s := view.Default(geom.Rect{Width: 800, Height: 600}).WithZoom(geom.Vec(z, z, 1))
		world, px := ScaleBar(s, 100)
		assert.Greater(t, world, 0.0)
		assert.LessOrEqual(t, px, 100.0+1e-9)
		assert.Greater(t, px, 100.0/2.5-1e-9, "a nice value is within a factor of 2.5 of the target")
	}
}

func TestGridPath(t *testing.T) {
	s := view.Default(geom.Rect{Width: 800, Height: 600})

	p := GridPath(s, 10)
	// Three planes, two line families each, GridCells+1 lines per family.
	assert.Equal(t, 3*2*(GridCells+1)*2, p.Len())

	tiny := s.WithZoom(geom.Vec(1e-4, 1e-4, 1e-4))
	assert.True(t, GridPath(tiny, 10).IsEmpty())
	assert.True(t, GridPath(s, 0).IsEmpty())
}

func TestAxesPath(t *testing.T) {
	s := view.Default(geom.Rect{Width: 800, Height: 600}).WithZoom(geom.Vec(4, 4, 4))

	p, axes := AxesPath(s)
	assert.Equal(t, 18, p.Len())
	if assert.Len(t, axes, 3) {
		// The X arrow is 80 px long whatever the zoom.
		assert.InDelta(t, 480, axes[0].Tip.X, 1e-9)
		assert.InDelta(t, 300, axes[0].Tip.Y, 1e-9)
		assert.InDelta(t, 220, axes[1].Tip.Y, 1e-9)
		assert.Equal(t, "Z", axes[2].Label)
	}
}

func TestPathSVGData(t *testing.T) {
	p := NewPath(4)
	p.MoveTo(geom.Vec2{X: 1, Y: 2.5})
	p.LineTo(geom.Vec2{X: 10, Y: -3})
	p.LineTo(geom.Vec2{X: 0, Y: 0})
	p.Close()
	assert.Equal(t, "M1 2.5 L10 -3 L0 0 Z", p.SVGData())
	assert.Equal(t, "", NewPath(0).SVGData())
}
