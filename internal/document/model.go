// Package document is the JSON form of a drawing: layers of tagged
// elements, a background and a saved view.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ErrUnknownElement is returned when an element's type tag is not recognised.
var ErrUnknownElement = errors.New("document: unknown element type")

type Document struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Version     int     `json:"version"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
	BackColor   string  `json:"backColor"`
	Background  string  `json:"background,omitempty"` // asset id of a background image
	ActiveLayer string  `json:"activeLayer"`
	Layers      []Layer `json:"layers"`
	View        *View   `json:"view,omitempty"`
}

type Layer struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Visible  bool      `json:"visible"`
	Elements []Element `json:"elements"`
}

type ElementType string

const (
	TypeLine      ElementType = "line"
	TypeCircle    ElementType = "circle"
	TypeRectangle ElementType = "rectangle"
	TypeLabel     ElementType = "label"
	TypePolyline  ElementType = "polyline"
)

type Style struct {
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Fill        string  `json:"fill,omitempty"`
}

// Element is one tagged element. Data holds the variant fields for Type.
type Element struct {
	ID    string          `json:"id"`
	Type  ElementType     `json:"type"`
	Style Style           `json:"style"`
	Data  json.RawMessage `json:"data"`
}

// Point is an [x, y, z] triple.
type Point [3]float64

type LineData struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

type CircleData struct {
	Center      Point   `json:"center"`
	Radius      float64 `json:"radius"`
	Normal      Point   `json:"normal"`
	Flat        bool    `json:"flat,omitempty"`
	FixedRadius bool    `json:"fixedRadius,omitempty"`
}

type RectangleData struct {
	Min [2]float64 `json:"min"`
	Max [2]float64 `json:"max"`
	Z   float64    `json:"z"`
}

type LabelData struct {
	Position Point   `json:"position"`
	Text     string  `json:"text"`
	Height   float64 `json:"height"`
}

type PolylineData struct {
	Points []Point `json:"points"`
	Closed bool    `json:"closed"`
}

// View is a saved viewport: everything but the pixel size.
type View struct {
	Zoom     Point `json:"zoom"`
	Shift    Point `json:"shift"`
	Rotation Point `json:"rotation"`
	Pivot    Point `json:"pivot"`
}

// Parse decodes a document from JSON.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &doc, nil
}

// Marshal encodes the document as JSON.
func (d *Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// NewElement builds an element from a typed payload.
func NewElement(id string, style Style, data any) (Element, error) {
	var t ElementType
	switch data.(type) {
	case LineData, *LineData:
		t = TypeLine
	case CircleData, *CircleData:
		t = TypeCircle
	case RectangleData, *RectangleData:
		t = TypeRectangle
	case LabelData, *LabelData:
		t = TypeLabel
	case PolylineData, *PolylineData:
		t = TypePolyline
	default:
		return Element{}, fmt.Errorf("new element %s: %T: %w", id, data, ErrUnknownElement)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Element{}, fmt.Errorf("encode element %s: %w", id, err)
	}
	return Element{ID: id, Type: t, Style: style, Data: raw}, nil
}

// Decode returns the typed payload of e: one of LineData, CircleData,
// RectangleData, LabelData or PolylineData.
func (e Element) Decode() (any, error) {
	var v any
	switch e.Type {
	case TypeLine:
		v = &LineData{}
	case TypeCircle:
		v = &CircleData{}
	case TypeRectangle:
		v = &RectangleData{}
	case TypeLabel:
		v = &LabelData{}
	case TypePolyline:
		v = &PolylineData{}
	default:
		return nil, fmt.Errorf("decode element %s: %q: %w", e.ID, e.Type, ErrUnknownElement)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return nil, fmt.Errorf("decode element %s: %w", e.ID, err)
	}
	switch d := v.(type) {
	case *LineData:
		return *d, nil
	case *CircleData:
		return *d, nil
	case *RectangleData:
		return *d, nil
	case *LabelData:
		return *d, nil
	default:
		return *v.(*PolylineData), nil
	}
}

// Layer returns the layer with the given id.
func (d *Document) Layer(id string) (*Layer, bool) {
	for i := range d.Layers {
		if d.Layers[i].ID == id {
			return &d.Layers[i], true
		}
	}
	return nil, false
}

// ParseColor parses "#rgb", "#rrggbb" or "#rrggbbaa". The empty string is
// transparent.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return color.NRGBA{}, nil
	}
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return color.NRGBA{}, fmt.Errorf("parse color %q: missing #", s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("parse color %q: bad length", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// FormatColor is the inverse of ParseColor. Opaque colors use the short
// "#rrggbb" form and transparent black is the empty string.
func FormatColor(c color.NRGBA) string {
	switch c.A {
	case 0:
		if c == (color.NRGBA{}) {
			return ""
		}
	case 255:
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
