package engine

import (
	"fmt"

	"github.com/inamate/vecview/internal/document"
	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/scene"
	"github.com/inamate/vecview/internal/view"
)

// BuildScene builds the layer manager for a document. Layers keep their
// document order; the document's active layer becomes active if it exists.
// Element additions during a build are not counted as changes.
func BuildScene(doc *document.Document) (*scene.LayerManager, error) {
	m := scene.NewLayerManager()
	for _, dl := range doc.Layers {
		l, err := m.AddLayer(dl.ID, dl.Name)
		if err != nil {
			return nil, fmt.Errorf("build layer %s: %w", dl.ID, err)
		}
		if err := m.SetLayerVisible(l.ID(), dl.Visible); err != nil {
			return nil, err
		}
		for _, de := range dl.Elements {
			el, err := ElementFromDocument(de)
			if err != nil {
				return nil, fmt.Errorf("build layer %s: %w", dl.ID, err)
			}
			if err := m.AddElementTo(l.ID(), el, false); err != nil {
				return nil, fmt.Errorf("build layer %s: %w", dl.ID, err)
			}
		}
	}
	if doc.ActiveLayer != "" {
		if _, ok := m.Layer(doc.ActiveLayer); ok {
			_ = m.SetActive(doc.ActiveLayer)
		}
	}
	return m, nil
}

// ElementFromDocument decodes a tagged document element.
func ElementFromDocument(de document.Element) (scene.Element, error) {
	if de.ID == "" {
		return nil, fmt.Errorf("element without id")
	}
	style, err := styleFromDocument(de.Style)
	if err != nil {
		return nil, fmt.Errorf("element %s: %w", de.ID, err)
	}
	data, err := de.Decode()
	if err != nil {
		return nil, err
	}
	switch d := data.(type) {
	case document.LineData:
		return scene.NewLine(de.ID, vec(d.Start), vec(d.End), style), nil
	case document.CircleData:
		c, err := scene.NewCircle(de.ID, vec(d.Center), d.Radius, normalOrZ(d.Normal), style)
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", de.ID, err)
		}
		c.Use3D = !d.Flat
		c.FixedRadius = d.FixedRadius
		return c, nil
	case document.RectangleData:
		return scene.NewRectangle(de.ID,
			geom.Vec2{X: d.Min[0], Y: d.Min[1]},
			geom.Vec2{X: d.Max[0], Y: d.Max[1]},
			d.Z, style), nil
	case document.LabelData:
		if !(d.Height > 0) {
			return nil, fmt.Errorf("element %s: label height %v: %w", de.ID, d.Height, scene.ErrDegenerate)
		}
		return scene.NewLabel(de.ID, vec(d.Position), d.Text, d.Height, style), nil
	case document.PolylineData:
		pts := make([]geom.Vec3, len(d.Points))
		for i, p := range d.Points {
			pts[i] = vec(p)
		}
		return scene.NewPolyline(de.ID, pts, d.Closed, style), nil
	}
	return nil, fmt.Errorf("element %s: %w", de.ID, document.ErrUnknownElement)
}

// ElementToDocument encodes a scene element in its tagged document form.
func ElementToDocument(el scene.Element) (document.Element, error) {
	b := el.Meta()
	style := document.Style{
		Stroke:      document.FormatColor(b.Style.Color),
		StrokeWidth: b.Style.Width,
		Fill:        document.FormatColor(b.Style.Fill),
	}
	var data any
	switch e := el.(type) {
	case *scene.Line:
		data = document.LineData{Start: point(e.Start), End: point(e.End)}
	case *scene.Circle:
		data = document.CircleData{
			Center:      point(e.Center),
			Radius:      e.Radius,
			Normal:      point(e.Normal),
			Flat:        !e.Use3D,
			FixedRadius: e.FixedRadius,
		}
	case *scene.Rectangle:
		data = document.RectangleData{
			Min: [2]float64{e.Min.X, e.Min.Y},
			Max: [2]float64{e.Max.X, e.Max.Y},
			Z:   e.Z,
		}
	case *scene.Label:
		data = document.LabelData{Position: point(e.Position), Text: e.Text, Height: e.Height}
	case *scene.Polyline:
		pts := make([]document.Point, len(e.Points))
		for i, p := range e.Points {
			pts[i] = point(p)
		}
		data = document.PolylineData{Points: pts, Closed: e.Closed}
	default:
		return document.Element{}, fmt.Errorf("encode element %s: %T: %w", b.ID, el, document.ErrUnknownElement)
	}
	return document.NewElement(b.ID, style, data)
}

// SnapshotDocument writes the scene and view back into a copy of meta.
// Layer order, visibility and the active layer are taken from the scene.
func SnapshotDocument(meta document.Document, m *scene.LayerManager, s view.Settings) (*document.Document, error) {
	doc := meta
	doc.Layers = make([]document.Layer, 0, len(m.Layers()))
	for _, l := range m.Layers() {
		dl := document.Layer{ID: l.ID(), Name: l.Name(), Visible: l.Visible(), Elements: []document.Element{}}
		for _, el := range l.Elements() {
			de, err := ElementToDocument(el)
			if err != nil {
				return nil, err
			}
			dl.Elements = append(dl.Elements, de)
		}
		doc.Layers = append(doc.Layers, dl)
	}
	doc.ActiveLayer = ""
	if a := m.Active(); a != nil {
		doc.ActiveLayer = a.ID()
	}
	doc.View = viewToDocument(s)
	return &doc, nil
}

func viewToDocument(s view.Settings) *document.View {
	return &document.View{
		Zoom:     point(s.Zoom),
		Shift:    point(s.Shift),
		Rotation: point(s.Rotation),
		Pivot:    point(s.Pivot),
	}
}

// viewFromDocument applies a saved view to a viewport. ok is false if the
// saved view cannot map points.
func viewFromDocument(v *document.View, viewport geom.Rect) (view.Settings, bool) {
	s := view.New(viewport, vec(v.Zoom), vec(v.Shift), vec(v.Rotation), vec(v.Pivot))
	return s, s.IsValid()
}

func styleFromDocument(ds document.Style) (scene.Style, error) {
	stroke, err := document.ParseColor(ds.Stroke)
	if err != nil {
		return scene.Style{}, err
	}
	fill, err := document.ParseColor(ds.Fill)
	if err != nil {
		return scene.Style{}, err
	}
	return scene.Style{Color: stroke, Width: ds.StrokeWidth, Fill: fill}, nil
}

func vec(p document.Point) geom.Vec3 {
	return geom.Vec(p[0], p[1], p[2])
}

func point(v geom.Vec3) document.Point {
	return document.Point{v.X, v.Y, v.Z}
}

// normalOrZ treats an omitted normal as +Z.
func normalOrZ(p document.Point) geom.Vec3 {
	if p == (document.Point{}) {
		return geom.Vec(0, 0, 1)
	}
	return vec(p)
}
