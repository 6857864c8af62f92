package document

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementDecodeRoundTrip(t *testing.T) {
	data := CircleData{Center: Point{1, 2, 3}, Radius: 4, Normal: Point{0, 0, 1}, Flat: true}
	el, err := NewElement("elem_1", Style{Stroke: "#000000"}, data)
	require.NoError(t, err)
	assert.Equal(t, TypeCircle, el.Type)

	got, err := el.Decode()
	require.NoError(t, err)
	assert.Equal(t, data, got)

	ptr, err := NewElement("elem_2", Style{}, &LineData{End: Point{1, 1, 1}})
	require.NoError(t, err)
	assert.Equal(t, TypeLine, ptr.Type)
}

func TestElementDecodeErrors(t *testing.T) {
	_, err := NewElement("x", Style{}, 42)
	assert.ErrorIs(t, err, ErrUnknownElement)

	_, err = Element{ID: "x", Type: "spline", Data: []byte(`{}`)}.Decode()
	assert.ErrorIs(t, err, ErrUnknownElement)

	_, err = Element{ID: "x", Type: TypeLabel, Data: []byte(`{"text": 5}`)}.Decode()
	assert.Error(t, err)
}

func TestParseDocument(t *testing.T) {
	doc, err := Parse([]byte(`{
		"id": "doc_1",
		"backColor": "#fff",
		"activeLayer": "L1",
		"layers": [{"id": "L1", "name": "a", "visible": true, "elements": [
			{"id": "e1", "type": "polyline", "style": {"stroke": "#ff0000", "strokeWidth": 2},
			 "data": {"points": [[0,0,0],[1,1,0]], "closed": false}}
		]}]
	}`))
	require.NoError(t, err)
	require.Len(t, doc.Layers, 1)
	l, ok := doc.Layer("L1")
	require.True(t, ok)
	v, err := l.Elements[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, PolylineData{Points: []Point{{0, 0, 0}, {1, 1, 0}}}, v)

	_, err = Parse([]byte(`{`))
	assert.Error(t, err)
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.NRGBA
	}{
		{"#ff0000", color.NRGBA{R: 255, A: 255}},
		{"#0f0", color.NRGBA{G: 255, A: 255}},
		{"#0f346080", color.NRGBA{R: 0x0f, G: 0x34, B: 0x60, A: 0x80}},
		{"", color.NRGBA{}},
		{"none", color.NRGBA{}},
	}
	for _, c := range cases {
		got, err := ParseColor(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}

	for _, bad := range []string{"red", "#12", "#gggggg"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatColor(t *testing.T) {
	assert.Equal(t, "#0f3460", FormatColor(color.NRGBA{R: 0x0f, G: 0x34, B: 0x60, A: 255}))
	assert.Equal(t, "#0f346080", FormatColor(color.NRGBA{R: 0x0f, G: 0x34, B: 0x60, A: 0x80}))
	assert.Equal(t, "", FormatColor(color.NRGBA{}))

	c := color.NRGBA{R: 1, G: 2, B: 3, A: 4}
	back, err := ParseColor(FormatColor(c))
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestSampleDocumentDecodes(t *testing.T) {
	doc := NewSampleDocument("doc_x")
	assert.Equal(t, "doc_x", doc.ID)
	require.Len(t, doc.Layers, 2)
	assert.Equal(t, doc.Layers[0].ID, doc.ActiveLayer)

	seen := map[ElementType]bool{}
	for _, l := range doc.Layers {
		for _, el := range l.Elements {
			_, err := el.Decode()
			require.NoError(t, err, el.ID)
			seen[el.Type] = true
		}
	}
	assert.Len(t, seen, 5)

	raw, err := doc.Marshal()
	require.NoError(t, err)
	back, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, doc, back)
}
