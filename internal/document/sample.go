package document

import (
	"time"

	"github.com/inamate/vecview/internal/typeid"
)

// NewEmptyDocument returns a document with one empty, active layer.
func NewEmptyDocument(id, name string) *Document {
	now := time.Now().UTC().Format(time.RFC3339)
	layerID := typeid.NewLayerID()
	return &Document{
		ID:          id,
		Name:        name,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
		BackColor:   "#ffffff",
		ActiveLayer: layerID,
		Layers: []Layer{
			{ID: layerID, Name: "Layer 1", Visible: true, Elements: []Element{}},
		},
	}
}

// NewSampleDocument returns a small drawing with a few of each element type
// spread over two layers.
func NewSampleDocument(id string) *Document {
	doc := NewEmptyDocument(id, "Sample")
	geo := &doc.Layers[0]
	geo.Name = "Geometry"

	outline := Style{Stroke: "#16213e", StrokeWidth: 2}
	add := func(l *Layer, style Style, data any) {
		el, err := NewElement(typeid.NewElementID(), style, data)
		if err != nil {
			panic(err)
		}
		l.Elements = append(l.Elements, el)
	}

	add(geo, Style{Stroke: "#000000", StrokeWidth: 2, Fill: "#e94560"}, RectangleData{
		Min: [2]float64{-200, -100},
		Max: [2]float64{0, 50},
	})
	add(geo, Style{Stroke: "#0f3460", StrokeWidth: 2, Fill: "#0f346080"}, CircleData{
		Center: Point{150, 0, 0},
		Radius: 80,
		Normal: Point{0, 0, 1},
	})
	add(geo, outline, CircleData{
		Center: Point{150, 0, 0},
		Radius: 80,
		Normal: Point{1, 0, 0},
	})
	add(geo, Style{Stroke: "#2d6a4f", StrokeWidth: 3}, LineData{
		Start: Point{-250, -150, 0},
		End:   Point{250, 150, 100},
	})
	add(geo, Style{Stroke: "#2d6a4f", StrokeWidth: 2, Fill: "#53d769"}, PolylineData{
		Points: []Point{{-100, 120, 0}, {0, 220, 0}, {100, 120, 0}},
		Closed: true,
	})

	notes := Layer{ID: typeid.NewLayerID(), Name: "Notes", Visible: true}
	add(&notes, Style{Stroke: "#1a1a2e"}, LabelData{
		Position: Point{-200, 70, 0},
		Text:     "vecview sample",
		Height:   20,
	})
	add(&notes, Style{Stroke: "#c78400", StrokeWidth: 1}, CircleData{
		Center:      Point{-100, -25, 0},
		Radius:      6,
		Normal:      Point{0, 0, 1},
		Flat:        true,
		FixedRadius: true,
	})
	doc.Layers = append(doc.Layers, notes)
	return doc
}
