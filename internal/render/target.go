package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/view"
)

// ErrNoCache is returned by BeginFrameFromCache when the backend holds no
// cached scene for the current dimensions.
var ErrNoCache = errors.New("render: no cached scene")

// Target is a drawing backend. All coordinates are pixels.
//
// A frame is BeginFrame (or BeginFrameFromCache), draw calls, EndFrame. After
// a BeginFrame the caller may call EndScene once to snapshot the current
// contents as the base that BeginFrameFromCache restores. BeginFrame discards
// any earlier snapshot, as does a change of dimensions.
type Target interface {
	BeginFrame(width, height int) error
	BeginFrameFromCache() error
	EndScene()
	EndFrame()
	// PixelData returns the finished frame. The buffer is owned by the caller.
	PixelData() (PixelData, bool)

	Clear(c color.NRGBA)
	DrawLine(a, b geom.Vec2, pen Pen)
	// DrawEllipse draws an ellipse with semi-axes rx, ry rotated by angle
	// radians (clockwise on screen). A fill with zero alpha is not drawn;
	// the same holds for the other fill arguments.
	DrawEllipse(center geom.Vec2, rx, ry, angle float64, pen Pen, fill color.NRGBA)
	DrawRectangle(r geom.Rect, pen Pen, fill color.NRGBA)
	DrawPolygon(pts []geom.Vec2, pen Pen, fill color.NRGBA)
	DrawPath(p *Path, pen Pen)
	// DrawString draws text with its top-left corner at pos.
	DrawString(text string, pos geom.Vec2, size float64, c color.NRGBA)
	DrawImage(img image.Image, dst geom.Rect)
}

// VectorTarget is implemented by backends whose output is a document rather
// than a pixel buffer. The manager does not extract pixels from them.
type VectorTarget interface {
	Target
	IsVector() bool
}

// Drawable is anything the manager can cull and draw.
type Drawable interface {
	Bounds() geom.Box3
	Emit(t Target, s view.Settings)
}

// Scene yields drawables in draw order. Returning false from fn stops the walk.
type Scene interface {
	WalkVisible(fn func(Drawable) bool)
}

// Pen describes a stroke.
type Pen struct {
	Color    color.NRGBA
	Width    float64
	Selected bool
}

// SelectionColor strokes selected elements.
var SelectionColor = color.NRGBA{R: 0, G: 120, B: 215, A: 255}

// StrokeColor returns the color a backend should stroke with.
func (p Pen) StrokeColor() color.NRGBA {
	if p.Selected {
		return SelectionColor
	}
	return p.Color
}

// StrokeWidth returns the stroke width, never below one pixel.
func (p Pen) StrokeWidth() float64 {
	w := p.Width
	if p.Selected {
		w += 1
	}
	return max(w, 1)
}

// PixelLayout tags the channel order of PixelData.
type PixelLayout int

const (
	// RGBA32Premul is R, G, B, A bytes with color premultiplied by alpha.
	RGBA32Premul PixelLayout = iota
	// BGRA32Premul is B, G, R, A bytes with color premultiplied by alpha.
	BGRA32Premul
)

func (l PixelLayout) String() string {
	switch l {
	case RGBA32Premul:
		return "rgba32-premul"
	case BGRA32Premul:
		return "bgra32-premul"
	}
	return fmt.Sprintf("PixelLayout(%d)", int(l))
}

// PixelData is a top-down frame buffer with a 4*Width stride.
type PixelData struct {
	Bytes  []byte
	Width  int
	Height int
	Layout PixelLayout
}

// IsEmpty reports whether p holds no frame.
func (p PixelData) IsEmpty() bool {
	return len(p.Bytes) == 0
}

// ToRGBA converts the buffer into an image in RGBA order.
func (p PixelData) ToRGBA() (*image.RGBA, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("convert pixels: bad size %dx%d", p.Width, p.Height)
	}
	n := p.Width * p.Height * 4
	if len(p.Bytes) < n {
		return nil, fmt.Errorf("convert pixels: have %d bytes, need %d", len(p.Bytes), n)
	}
	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	switch p.Layout {
	case RGBA32Premul:
		copy(img.Pix, p.Bytes[:n])
	case BGRA32Premul:
		for i := 0; i < n; i += 4 {
			img.Pix[i+0] = p.Bytes[i+2]
			img.Pix[i+1] = p.Bytes[i+1]
			img.Pix[i+2] = p.Bytes[i+0]
			img.Pix[i+3] = p.Bytes[i+3]
		}
	default:
		return nil, fmt.Errorf("convert pixels: unsupported layout %v", p.Layout)
	}
	return img, nil
}
