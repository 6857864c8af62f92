package scene

import (
	"fmt"
	"unicode/utf8"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
	"github.com/inamate/vecview/internal/view"
)

const (
	// labelAdvance bounds the advance of one glyph as a fraction of the text
	// height. The widest glyphs of the bundled face stay under one em.
	labelAdvance = 1.0

	// labelDescent is how far glyphs may reach below the text box, as a
	// fraction of the text height.
	labelDescent = 0.25

	maxLabelPixels = 1000
)

// Label is text whose size scales with the view. Position is the bottom-left
// corner of the text box in world space; Height is in world units.
type Label struct {
	Base
	Position geom.Vec3
	Text     string
	Height   float64
}

var _ Element = (*Label)(nil)

func NewLabel(id string, pos geom.Vec3, text string, height float64, style Style) *Label {
	return &Label{Base: Base{ID: id, Style: style}, Position: pos, Text: text, Height: height}
}

func (l *Label) Kind() Kind { return KindLabel }

// Width is an upper bound of the text width in world units.
func (l *Label) Width() float64 {
	return float64(utf8.RuneCountInString(l.Text)) * l.Height * labelAdvance
}

func (l *Label) Bounds() geom.Box3 {
	if l.Text == "" {
		return geom.BoxFromPoints(l.Position)
	}
	return geom.NewBox(l.Position, l.Position.Add(geom.Vec(l.Width(), l.Height, 0)))
}

// PixelPad covers descenders below the text box.
func (l *Label) PixelPad(s view.Settings) float64 {
	return l.Base.PixelPad(s) + labelDescent*min(s.DistanceRealToPixel(l.Height), maxLabelPixels)
}

func (l *Label) Emit(t render.Target, s view.Settings) {
	if l.Text == "" {
		return
	}
	topLeft, ok := project(s, l.Position.Add(geom.Vec(0, l.Height, 0)))
	if !ok {
		return
	}
	size := s.DistanceRealToPixel(l.Height)
	if size < 1 {
		return
	}
	c := l.Style.Color
	if l.Selected {
		c = render.SelectionColor
	}
	t.DrawString(l.Text, topLeft, min(size, maxLabelPixels), c)
}

func (l *Label) HitTest(p geom.Vec3, tol float64) bool {
	b := l.Bounds()
	return p.X >= b.Min.X-tol && p.X <= b.Max.X+tol &&
		p.Y >= b.Min.Y-tol && p.Y <= b.Max.Y+tol &&
		p.Z >= b.Min.Z-tol && p.Z <= b.Max.Z+tol
}

func (l *Label) ControlPoints() []geom.Vec3 {
	return []geom.Vec3{l.Position}
}

func (l *Label) MoveControlPoint(i int, p geom.Vec3) error {
	if i != 0 {
		return fmt.Errorf("label has 1 control point, got %d: %w", i, ErrControlPoint)
	}
	l.Position = p
	return nil
}
