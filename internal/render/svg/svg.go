// Package svg is a recording backend that writes frames as SVG documents.
package svg

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
)

// Target records draw calls as SVG elements. It has no pixels; PixelData
// always reports false and callers use WriteTo instead.
//
// Drawing with no frame begun panics.
type Target struct {
	doc  *etree.Document
	root *etree.Element

	width  int
	height int

	cache  *etree.Document
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
	t.doc, t.root = newDocument(width, height)
	t.cache = nil
	return nil
}

func (t *Target) BeginFrameFromCache() error {
	if t.cache == nil || t.cacheW != t.width || t.cacheH != t.height {
		return render.ErrNoCache
	}
	t.doc = t.cache.Copy()
	t.root = t.doc.Root()
	return nil
}

func (t *Target) EndScene() {
	if t.doc == nil {
		return
	}
	t.cache = t.doc.Copy()
	t.cacheW, t.cacheH = t.width, t.height
}

func (t *Target) EndFrame() {}

func (t *Target) PixelData() (render.PixelData, bool) {
	return render.PixelData{}, false
}

func (t *Target) IsVector() bool { return true }

// WriteTo writes the current frame as an indented SVG document.
func (t *Target) WriteTo(w io.Writer) (int64, error) {
	if t.doc == nil {
		return 0, fmt.Errorf("write svg: no frame")
	}
	out := t.doc.Copy()
	out.Indent(2)
	return out.WriteTo(w)
}

// String returns the current frame as SVG text.
func (t *Target) String() string {
	var b strings.Builder
	if _, err := t.WriteTo(&b); err != nil {
		return ""
	}
	return b.String()
}

func newDocument(width, height int) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("svg")
	root.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	root.CreateAttr("width", strconv.Itoa(width))
	root.CreateAttr("height", strconv.Itoa(height))
	root.CreateAttr("viewBox", fmt.Sprintf("0 0 %d %d", width, height))
	return doc, root
}

// Clear drops everything drawn so far and paints the background.
func (t *Target) Clear(c color.NRGBA) {
	if t.root == nil {
		return
	}
	for _, ch := range t.root.ChildElements() {
		t.root.RemoveChild(ch)
	}
	el := t.root.CreateElement("rect")
	el.CreateAttr("width", "100%")
	el.CreateAttr("height", "100%")
	setPaint(el, "fill", c)
}

func (t *Target) DrawLine(a, b geom.Vec2, pen render.Pen) {
	if t.root == nil || !a.IsValid() || !b.IsValid() {
		return
	}
	el := t.root.CreateElement("line")
	el.CreateAttr("x1", num(a.X))
	el.CreateAttr("y1", num(a.Y))
	el.CreateAttr("x2", num(b.X))
	el.CreateAttr("y2", num(b.Y))
	setStroke(el, pen)
}

func (t *Target) DrawEllipse(c geom.Vec2, rx, ry, angle float64, pen render.Pen, fill color.NRGBA) {
	if t.root == nil || !c.IsValid() || !(rx >= 0) || !(ry >= 0) {
		return
	}
	el := t.root.CreateElement("ellipse")
	el.CreateAttr("cx", num(c.X))
	el.CreateAttr("cy", num(c.Y))
	el.CreateAttr("rx", num(rx))
	el.CreateAttr("ry", num(ry))
	if angle != 0 && !math.IsNaN(angle) {
		deg := angle * 180 / math.Pi
		el.CreateAttr("transform", fmt.Sprintf("rotate(%s %s %s)", num(deg), num(c.X), num(c.Y)))
	}
	setFill(el, fill)
	setStroke(el, pen)
}

func (t *Target) DrawRectangle(r geom.Rect, pen render.Pen, fill color.NRGBA) {
	if t.root == nil {
		return
	}
	el := t.root.CreateElement("rect")
	el.CreateAttr("x", num(r.X))
	el.CreateAttr("y", num(r.Y))
	el.CreateAttr("width", num(max(r.Width, 0)))
	el.CreateAttr("height", num(max(r.Height, 0)))
	setFill(el, fill)
	setStroke(el, pen)
}

func (t *Target) DrawPolygon(pts []geom.Vec2, pen render.Pen, fill color.NRGBA) {
	if t.root == nil || len(pts) < 2 {
		return
	}
	var b strings.Builder
	for i, p := range pts {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(num(p.X))
		b.WriteByte(',')
		b.WriteString(num(p.Y))
	}
	el := t.root.CreateElement("polygon")
	el.CreateAttr("points", b.String())
	setFill(el, fill)
	setStroke(el, pen)
}

func (t *Target) DrawPath(p *render.Path, pen render.Pen) {
	if t.root == nil || p == nil || p.IsEmpty() {
		return
	}
	el := t.root.CreateElement("path")
	el.CreateAttr("d", p.SVGData())
	el.CreateAttr("fill", "none")
	setStroke(el, pen)
}

func (t *Target) DrawString(text string, pos geom.Vec2, size float64, c color.NRGBA) {
	if t.root == nil || text == "" || !pos.IsValid() || !(size > 0) {
		return
	}
	el := t.root.CreateElement("text")
	el.CreateAttr("x", num(pos.X))
	el.CreateAttr("y", num(pos.Y))
	el.CreateAttr("font-family", "sans-serif")
	el.CreateAttr("font-size", num(size))
	el.CreateAttr("dominant-baseline", "hanging")
	setPaint(el, "fill", c)
	el.SetText(text)
}

// DrawImage embeds img as a PNG data URI.
func (t *Target) DrawImage(img image.Image, dst geom.Rect) {
	if t.root == nil || img == nil || dst.IsEmpty() {
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return
	}
	el := t.root.CreateElement("image")
	el.CreateAttr("x", num(dst.X))
	el.CreateAttr("y", num(dst.Y))
	el.CreateAttr("width", num(dst.Width))
	el.CreateAttr("height", num(dst.Height))
	el.CreateAttr("preserveAspectRatio", "none")
	el.CreateAttr("href", "data:image/png;base64,"+base64.StdEncoding.EncodeToString(buf.Bytes()))
}

func setStroke(el *etree.Element, pen render.Pen) {
	setPaint(el, "stroke", pen.StrokeColor())
	el.CreateAttr("stroke-width", num(pen.StrokeWidth()))
	if pen.Selected {
		el.CreateAttr("stroke-dasharray", "6 3")
	}
}

func setFill(el *etree.Element, c color.NRGBA) {
	if c.A == 0 {
		el.CreateAttr("fill", "none")
		return
	}
	setPaint(el, "fill", c)
}

func setPaint(el *etree.Element, attr string, c color.NRGBA) {
	el.CreateAttr(attr, fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
	if c.A < 255 {
		el.CreateAttr(attr+"-opacity", num(float64(c.A)/255))
	}
}

func num(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}
