// Package raster is a CPU drawing backend built on fogleman/gg.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"slices"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
)

// Target rasterises into an owned RGBA buffer. The scene cache is a copy of
// that buffer taken at EndScene.
type Target struct {
	img *image.RGBA
	dc  *gg.Context

	cache  []byte
	cacheW int
	cacheH int

	font      *truetype.Font
	faces     map[float64]font.Face
	faceOrder []float64
}

// maxFaces bounds the face cache. Label sizes follow the zoom, so a long
// session sees an unbounded number of sizes.
const maxFaces = 16

var _ render.Target = (*Target)(nil)

// New returns a target with no frame yet.
func New() (*Target, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Target{font: f, faces: make(map[float64]font.Face)}, nil
}

// BeginFrame starts a fresh frame and discards the cached scene.
func (t *Target) BeginFrame(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("begin frame: bad size %dx%d", width, height)
	}
	if t.img == nil || t.img.Rect.Dx() != width || t.img.Rect.Dy() != height {
		t.img = image.NewRGBA(image.Rect(0, 0, width, height))
		t.dc = gg.NewContextForRGBA(t.img)
	} else {
		t.dc.Identity()
		t.dc.ResetClip()
		t.dc.ClearPath()
	}
	t.cache = nil
	return nil
}

// BeginFrameFromCache restores the cached scene into the frame buffer.
func (t *Target) BeginFrameFromCache() error {
	if t.img == nil || t.cache == nil ||
		t.cacheW != t.img.Rect.Dx() || t.cacheH != t.img.Rect.Dy() {
		return render.ErrNoCache
	}
	copy(t.img.Pix, t.cache)
	t.dc.Identity()
	t.dc.ClearPath()
	return nil
}

// EndScene snapshots the frame buffer as the scene cache.
func (t *Target) EndScene() {
	if t.img == nil {
		return
	}
	t.cache = slices.Clone(t.img.Pix)
	t.cacheW, t.cacheH = t.img.Rect.Dx(), t.img.Rect.Dy()
}

func (t *Target) EndFrame() {
	if t.dc != nil {
		t.dc.ClearPath()
	}
}

// PixelData returns a copy of the frame in RGBA32Premul layout.
func (t *Target) PixelData() (render.PixelData, bool) {
	if t.img == nil {
		return render.PixelData{}, false
	}
	return render.PixelData{
		Bytes:  slices.Clone(t.img.Pix),
		Width:  t.img.Rect.Dx(),
		Height: t.img.Rect.Dy(),
		Layout: render.RGBA32Premul,
	}, true
}

// Image returns a copy of the current frame.
func (t *Target) Image() *image.RGBA {
	if t.img == nil {
		return nil
	}
	out := image.NewRGBA(t.img.Rect)
	copy(out.Pix, t.img.Pix)
	return out
}

// WriteTo encodes the current frame as PNG.
func (t *Target) WriteTo(w io.Writer) (int64, error) {
	if t.img == nil {
		return 0, fmt.Errorf("write png: no frame")
	}
	cw := &countingWriter{w: w}
	err := png.Encode(cw, t.img)
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (t *Target) Clear(c color.NRGBA) {
	if t.dc == nil {
		return
	}
	t.dc.SetColor(c)
	t.dc.Clear()
}

func (t *Target) DrawLine(a, b geom.Vec2, pen render.Pen) {
	if t.dc == nil || !a.IsValid() || !b.IsValid() {
		return
	}
	t.dc.DrawLine(a.X, a.Y, b.X, b.Y)
	t.stroke(pen)
}

func (t *Target) DrawEllipse(c geom.Vec2, rx, ry, angle float64, pen render.Pen, fill color.NRGBA) {
	if t.dc == nil || !c.IsValid() || !(rx >= 0) || !(ry >= 0) {
		return
	}
	t.dc.Push()
	if angle != 0 && !math.IsNaN(angle) {
		t.dc.RotateAbout(angle, c.X, c.Y)
	}
	t.dc.DrawEllipse(c.X, c.Y, rx, ry)
	t.fillStroke(pen, fill)
	t.dc.Pop()
}

func (t *Target) DrawRectangle(r geom.Rect, pen render.Pen, fill color.NRGBA) {
	if t.dc == nil {
		return
	}
	t.dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	t.fillStroke(pen, fill)
}

func (t *Target) DrawPolygon(pts []geom.Vec2, pen render.Pen, fill color.NRGBA) {
	if t.dc == nil || len(pts) < 2 {
		return
	}
	t.dc.NewSubPath()
	for i, p := range pts {
		if i == 0 {
			t.dc.MoveTo(p.X, p.Y)
		} else {
			t.dc.LineTo(p.X, p.Y)
		}
	}
	t.dc.ClosePath()
	t.fillStroke(pen, fill)
}

func (t *Target) DrawPath(p *render.Path, pen render.Pen) {
	if t.dc == nil || p == nil || p.IsEmpty() {
		return
	}
	for _, s := range p.Segments() {
		switch s.Op {
		case render.OpMoveTo:
			t.dc.MoveTo(s.Point.X, s.Point.Y)
		case render.OpLineTo:
			t.dc.LineTo(s.Point.X, s.Point.Y)
		case render.OpClose:
			t.dc.ClosePath()
		}
	}
	t.stroke(pen)
}

func (t *Target) DrawString(text string, pos geom.Vec2, size float64, c color.NRGBA) {
	if t.dc == nil || text == "" || !pos.IsValid() || !(size > 0) {
		return
	}
	t.dc.SetFontFace(t.face(size))
	t.dc.SetColor(c)
	t.dc.DrawStringAnchored(text, pos.X, pos.Y, 0, 1)
}

// DrawImage scales img into dst with bilinear filtering.
func (t *Target) DrawImage(img image.Image, dst geom.Rect) {
	if t.img == nil || img == nil || dst.IsEmpty() {
		return
	}
	r := image.Rect(
		int(math.Round(dst.X)), int(math.Round(dst.Y)),
		int(math.Round(dst.Right())), int(math.Round(dst.Bottom())),
	)
	draw.BiLinear.Scale(t.img, r, img, img.Bounds(), draw.Over, nil)
}

func (t *Target) stroke(pen render.Pen) {
	t.dc.SetColor(pen.StrokeColor())
	t.dc.SetLineWidth(pen.StrokeWidth())
	if pen.Selected {
		t.dc.SetDash(6, 3)
	} else {
		t.dc.SetDash()
	}
	t.dc.Stroke()
}

func (t *Target) fillStroke(pen render.Pen, fill color.NRGBA) {
	if fill.A > 0 {
		t.dc.SetColor(fill)
		t.dc.FillPreserve()
	}
	t.stroke(pen)
}

// face returns a font face for size, rounded to a quarter point. The least
// recently used face is dropped once maxFaces are cached.
func (t *Target) face(size float64) font.Face {
	size = math.Round(size*4) / 4
	if f, ok := t.faces[size]; ok {
		if i := slices.Index(t.faceOrder, size); i >= 0 {
			t.faceOrder = append(slices.Delete(t.faceOrder, i, i+1), size)
		}
		return f
	}
	if len(t.faceOrder) >= maxFaces {
		old := t.faceOrder[0]
		t.faceOrder = slices.Delete(t.faceOrder, 0, 1)
		t.faces[old].Close()
		delete(t.faces, old)
	}
	f := truetype.NewFace(t.font, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	t.faces[size] = f
	t.faceOrder = append(t.faceOrder, size)
	return f
}

// MeasureString returns the advance width of text at size in pixels.
func (t *Target) MeasureString(text string, size float64) float64 {
	if text == "" || !(size > 0) {
		return 0
	}
	return float64(font.MeasureString(t.face(size), text)) / 64
}
