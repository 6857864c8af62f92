// Package display is a drawing backend that compiles draw calls into a
// display list for a Canvas2D front end. The list is JSON-encodable and is
// executed in order (painter's order, back to front).
package display

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
)

// Command is one drawing operation. Op is one of "clear", "line",
// "ellipse", "rect", "polygon", "path", "text" or "image". Coordinates are
// pixels.
type Command struct {
	Op          string       `json:"op"`
	Points      [][2]float64 `json:"points,omitempty"`
	Path        string       `json:"path,omitempty"`        // SVG path data for "path"
	Rect        *[4]float64  `json:"rect,omitempty"`        // x, y, width, height
	Radii       *[2]float64  `json:"radii,omitempty"`       // ellipse semi-axes
	Angle       float64      `json:"angle,omitempty"`       // ellipse rotation, radians
	Fill        string       `json:"fill,omitempty"`        // CSS color
	Stroke      string       `json:"stroke,omitempty"`      // CSS color
	StrokeWidth float64      `json:"strokeWidth,omitempty"` // pixels
	Dashed      bool         `json:"dashed,omitempty"`
	Text        string       `json:"text,omitempty"`
	Size        float64      `json:"size,omitempty"`       // font size in pixels
	ImageWidth  int          `json:"imageWidth,omitempty"` // source size for "image"
	ImageHeight int          `json:"imageHeight,omitempty"`
}

// Target builds a display list per frame. Images are not embedded; an
// "image" command tells the front end where to draw its own copy of the
// background.
type Target struct {
	commands []Command
	width    int
	height   int
	inFrame  bool

	cache  []Command
	cacheW int
	cacheH int
}

var _ render.VectorTarget = (*Target)(nil)

func New() *Target {
	return &Target{}
}

func (t *Target) BeginFrame(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("begin frame: bad size %dx%d", width, height)
	}
	t.width, t.height = width, height
	t.commands = t.commands[:0]
	t.cache = nil
	t.inFrame = true
	return nil
}

func (t *Target) BeginFrameFromCache() error {
	if t.cache == nil || t.cacheW != t.width || t.cacheH != t.height {
		return render.ErrNoCache
	}
	t.commands = append(t.commands[:0], t.cache...)
	t.inFrame = true
	return nil
}

func (t *Target) EndScene() {
	t.cache = slices.Clone(t.commands)
	if t.cache == nil {
		t.cache = []Command{}
	}
	t.cacheW, t.cacheH = t.width, t.height
}

func (t *Target) EndFrame() {
	t.inFrame = false
}

func (t *Target) PixelData() (render.PixelData, bool) {
	return render.PixelData{}, false
}

func (t *Target) IsVector() bool { return true }

// Commands returns a copy of the current frame's display list.
func (t *Target) Commands() []Command {
	return slices.Clone(t.commands)
}

// Size returns the frame size in pixels.
func (t *Target) Size() (width, height int) {
	return t.width, t.height
}

// JSON encodes the current display list. An empty frame encodes as "[]".
func (t *Target) JSON() (string, error) {
	if len(t.commands) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(t.commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

func (t *Target) add(c Command) {
	t.commands = append(t.commands, c)
}

func (t *Target) Clear(c color.NRGBA) {
	t.commands = t.commands[:0]
	t.add(Command{Op: "clear", Fill: css(c)})
}

func (t *Target) DrawLine(a, b geom.Vec2, pen render.Pen) {
	c := Command{Op: "line", Points: [][2]float64{{a.X, a.Y}, {b.X, b.Y}}}
	stroke(&c, pen)
	t.add(c)
}

func (t *Target) DrawEllipse(center geom.Vec2, rx, ry, angle float64, pen render.Pen, fill color.NRGBA) {
	c := Command{
		Op:     "ellipse",
		Points: [][2]float64{{center.X, center.Y}},
		Radii:  &[2]float64{rx, ry},
		Angle:  angle,
		Fill:   css(fill),
	}
	stroke(&c, pen)
	t.add(c)
}

func (t *Target) DrawRectangle(r geom.Rect, pen render.Pen, fill color.NRGBA) {
	c := Command{Op: "rect", Rect: &[4]float64{r.X, r.Y, r.Width, r.Height}, Fill: css(fill)}
	stroke(&c, pen)
	t.add(c)
}

func (t *Target) DrawPolygon(pts []geom.Vec2, pen render.Pen, fill color.NRGBA) {
	if len(pts) < 2 {
		return
	}
	c := Command{Op: "polygon", Points: points(pts), Fill: css(fill)}
	stroke(&c, pen)
	t.add(c)
}

func (t *Target) DrawPath(p *render.Path, pen render.Pen) {
	if p == nil || p.IsEmpty() {
		return
	}
	c := Command{Op: "path", Path: p.SVGData()}
	stroke(&c, pen)
	t.add(c)
}

func (t *Target) DrawString(text string, pos geom.Vec2, size float64, col color.NRGBA) {
	if text == "" || !(size > 0) {
		return
	}
	t.add(Command{Op: "text", Points: [][2]float64{{pos.X, pos.Y}}, Text: text, Size: size, Fill: css(col)})
}

func (t *Target) DrawImage(img image.Image, dst geom.Rect) {
	if img == nil {
		return
	}
	b := img.Bounds()
	t.add(Command{
		Op:          "image",
		Rect:        &[4]float64{dst.X, dst.Y, dst.Width, dst.Height},
		ImageWidth:  b.Dx(),
		ImageHeight: b.Dy(),
	})
}

func stroke(c *Command, pen render.Pen) {
	c.Stroke = css(pen.StrokeColor())
	c.StrokeWidth = pen.StrokeWidth()
	c.Dashed = pen.Selected
}

func points(pts []geom.Vec2) [][2]float64 {
	out := make([][2]float64, len(pts))
	for i, p := range pts {
		out[i] = [2]float64{p.X, p.Y}
	}
	return out
}

// css formats a color for Canvas2D. Transparent colors are omitted.
func css(c color.NRGBA) string {
	switch c.A {
	case 0:
		return ""
	case 255:
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	a := math.Round(float64(c.A)/255*1000) / 1000
	return fmt.Sprintf("rgba(%d,%d,%d,%g)", c.R, c.G, c.B, a)
}
