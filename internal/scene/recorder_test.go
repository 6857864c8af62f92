package scene

import (
	"fmt"
	"image"
	"image/color"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
)

// recorder is a Target that logs draw calls.
type recorder struct {
	calls    []string
	ellipses [][3]float64
	pens     []render.Pen
}

func (r *recorder) BeginFrame(int, int) error { return nil }
func (r *recorder) BeginFrameFromCache() error { return render.ErrNoCache }
func (r *recorder) EndScene() {}
func (r *recorder) EndFrame() {}
func (r *recorder) PixelData() (render.PixelData, bool) { return render.PixelData{}, false }
func (r *recorder) Clear(color.NRGBA) { r.calls = append(r.calls, "clear") }
func (r *recorder) DrawImage(image.Image, geom.Rect) { r.calls = append(r.calls, "image") }
func (r *recorder) DrawPath(p *render.Path, pen render.Pen) { r.add(fmt.Sprintf("path:%d", p.Len()), pen) }

func (r *recorder) DrawLine(a, b geom.Vec2, pen render.Pen) {
	r.add("line", pen)
}

func (r *recorder) DrawEllipse(_ geom.Vec2, rx, ry, angle float64, pen render.Pen, _ color.NRGBA) {
	r.ellipses = append(r.ellipses, [3]float64{rx, ry, angle})
	r.add("ellipse", pen)
}

func (r *recorder) DrawRectangle(geom.Rect, render.Pen, color.NRGBA) {
	r.calls = append(r.calls, "rect")
}

func (r *recorder) DrawPolygon(pts []geom.Vec2, pen render.Pen, _ color.NRGBA) {
	r.add(fmt.Sprintf("polygon:%d", len(pts)), pen)
}

func (r *recorder) DrawString(text string, _ geom.Vec2, _ float64, _ color.NRGBA) {
	r.calls = append(r.calls, "text:"+text)
}

func (r *recorder) add(call string, pen render.Pen) {
	r.calls = append(r.calls, call)
	r.pens = append(r.pens, pen)
}
