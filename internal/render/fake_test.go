package render

import (
	"image"
	"image/color"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/view"
)

// fakeTarget counts lifecycle calls and records what was drawn into the
// current frame, keeping a copy of the scene at EndScene.
type fakeTarget struct {
	beginFrame     int
	beginFromCache int
	endScene       int
	endFrame       int

	width, height int
	frame         []string
	cached        []string
	hasCache      bool

	failBegin  error
	failPixels bool
	seq        byte
}

func (f *fakeTarget) BeginFrame(w, h int) error {
	f.beginFrame++
	if f.failBegin != nil {
		return f.failBegin
	}
	f.width, f.height = w, h
	f.frame = nil
	f.cached = nil
	f.hasCache = false
	return nil
}

func (f *fakeTarget) BeginFrameFromCache() error {
	f.beginFromCache++
	if !f.hasCache {
		return ErrNoCache
	}
	f.frame = append([]string(nil), f.cached...)
	return nil
}

func (f *fakeTarget) EndScene() {
	f.endScene++
	f.cached = append([]string(nil), f.frame...)
	f.hasCache = true
}

func (f *fakeTarget) EndFrame() { f.endFrame++ }

func (f *fakeTarget) PixelData() (PixelData, bool) {
	if f.failPixels {
		return PixelData{}, false
	}
	f.seq++
	buf := make([]byte, f.width*f.height*4)
	if len(buf) > 0 {
		buf[0] = f.seq
	}
	return PixelData{Bytes: buf, Width: f.width, Height: f.height, Layout: RGBA32Premul}, true
}

func (f *fakeTarget) record(s string) { f.frame = append(f.frame, s) }

func (f *fakeTarget) Clear(color.NRGBA) { f.record("clear") }
func (f *fakeTarget) DrawLine(a, b geom.Vec2, pen Pen) { f.record("line") }
func (f *fakeTarget) DrawEllipse(geom.Vec2, float64, float64, float64, Pen, color.NRGBA) { f.record("ellipse") }
func (f *fakeTarget) DrawRectangle(geom.Rect, Pen, color.NRGBA) { f.record("rect") }
func (f *fakeTarget) DrawPolygon([]geom.Vec2, Pen, color.NRGBA) { f.record("polygon") }
func (f *fakeTarget) DrawPath(*Path, Pen) { f.record("path") }
func (f *fakeTarget) DrawString(text string, _ geom.Vec2, _ float64, _ color.NRGBA) {
	f.record("text:" + text)
}
func (f *fakeTarget) DrawImage(image.Image, geom.Rect) { f.record("image") }

func (f *fakeTarget) count(s string) int {
	n := 0
	for _, x := range f.frame {
		if x == s {
			n++
		}
	}
	return n
}

// box is a drawable with fixed bounds that records itself by name.
type box struct {
	name   string
	bounds geom.Box3
	emits  int
}

func (b *box) Bounds() geom.Box3 { return b.bounds }

func (b *box) Emit(t Target, _ view.Settings) {
	b.emits++
	if r, ok := t.(interface{ record(string) }); ok {
		r.record(b.name)
	}
}

type sliceScene []Drawable

func (s sliceScene) WalkVisible(fn func(Drawable) bool) {
	for _, d := range s {
		if !fn(d) {
			return
		}
	}
}
