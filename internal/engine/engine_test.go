package engine

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/vecview/internal/document"
	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
	"github.com/inamate/vecview/internal/render/display"
	"github.com/inamate/vecview/internal/render/raster"
	"github.com/inamate/vecview/internal/scene"
	"github.com/inamate/vecview/internal/view"
)

func testOptions() Options {
	o := DefaultOptions()
	o.Width, o.Height = 800, 600
	o.Render.ShowAxes = false
	o.Render.ShowScaleBar = false
	return o
}

func mustElement(t *testing.T, id string, style document.Style, data any) document.Element {
	t.Helper()
	el, err := document.NewElement(id, style, data)
	require.NoError(t, err)
	return el
}

// testDocument has a horizontal line through the origin on L1 and a circle
// on L2, with an identity view saved.
func testDocument(t *testing.T) *document.Document {
	t.Helper()
	black := document.Style{Stroke: "#000000", StrokeWidth: 1}
	return &document.Document{
		ID:          "doc_test",
		Name:        "test",
		BackColor:   "#202020",
		ActiveLayer: "L1",
		Layers: []document.Layer{
			{ID: "L1", Name: "one", Visible: true, Elements: []document.Element{
				mustElement(t, "line", black, document.LineData{Start: document.Point{-100, 0, 0}, End: document.Point{100, 0, 0}}),
			}},
			{ID: "L2", Name: "two", Visible: true, Elements: []document.Element{
				mustElement(t, "circle", black, document.CircleData{Center: document.Point{0, 100, 0}, Radius: 20, Normal: document.Point{0, 0, 1}}),
			}},
		},
		View: &document.View{Zoom: document.Point{1, 1, 1}},
	}
}

func newLoaded(t *testing.T) (*Engine, *display.Target) {
	t.Helper()
	d := display.New()
	e := New(d, testOptions())
	require.NoError(t, e.Load(testDocument(t)))
	return e, d
}

func ops(d *display.Target) []string {
	var out []string
	for _, c := range d.Commands() {
		out = append(out, c.Op)
	}
	return out
}

func TestLoadRendersFullFrame(t *testing.T) {
	e, d := newLoaded(t)
	assert.Equal(t, render.LevelFull, e.Pending())

	res := e.Render()
	require.True(t, res.OK)
	assert.Equal(t, render.PathFull, res.Path)
	assert.Equal(t, 2, res.Drawn)
	assert.Equal(t, render.LevelNone, e.Pending())
	assert.Equal(t, []string{"clear", "line", "ellipse"}, ops(d))
	assert.Equal(t, "#202020", d.Commands()[0].Fill)
}

func TestLoadWithoutViewFitsContent(t *testing.T) {
	doc := testDocument(t)
	doc.View = nil
	e := New(display.New(), testOptions())
	require.NoError(t, e.Load(doc))

	// Content spans 200 units in x, 120 in y.
	assert.InDelta(t, 800/(200*1.05), e.View().Zoom.X, 1e-9)
	assert.Equal(t, 0, e.Zooming().HistoryLen())
}

func TestLoadErrorKeepsState(t *testing.T) {
	e, _ := newLoaded(t)
	bad := testDocument(t)
	bad.Layers[0].Elements = append(bad.Layers[0].Elements, document.Element{ID: "x", Type: "blob", Data: []byte(`{}`)})

	err := e.Load(bad)
	assert.ErrorIs(t, err, document.ErrUnknownElement)
	_, _, ok := e.Scene().Element("line")
	assert.True(t, ok)

	assert.Error(t, e.LoadDocument([]byte(`not json`)))
}

func TestPreviewUsesCachedScene(t *testing.T) {
	e, d := newLoaded(t)
	e.Render()

	require.NoError(t, e.SetPreview(mustElement(t, "rubber", document.Style{Stroke: "#ff0000"},
		document.LineData{End: document.Point{50, 50, 0}})))
	assert.Equal(t, render.LevelOverlay, e.Pending())

	res := e.Render()
	require.True(t, res.OK)
	assert.Equal(t, render.PathCached, res.Path)
	assert.Equal(t, []string{"clear", "line", "ellipse", "line"}, ops(d))

	// Preview elements are not part of the scene.
	assert.Equal(t, 2, e.Scene().Len())
	assert.Equal(t, "", e.HitTest(400+25, 300-25))

	e.ClearPreview()
	res = e.Render()
	assert.Equal(t, render.PathCached, res.Path)
	assert.Equal(t, []string{"clear", "line", "ellipse"}, ops(d))

	e.ClearPreview()
	assert.Equal(t, render.LevelNone, e.Pending())
}

func TestViewChangesRequestViewLevel(t *testing.T) {
	e, _ := newLoaded(t)
	e.Render()

	e.Pan(10, 0)
	assert.Equal(t, render.LevelView, e.Pending())
	res := e.Render()
	assert.Equal(t, render.PathFull, res.Path)

	e.Pan(0, 0)
	assert.Equal(t, render.LevelNone, e.Pending(), "no-op pan")

	e.ZoomIn(400, 300)
	e.ZoomOut(400, 300)
	e.PanStep(view.PanYPlus)
	e.Rotate(geom.Vec(0.2, 0, 0), geom.Vec2{X: 400, Y: 300})
	assert.Equal(t, render.LevelView, e.Pending())
	assert.Equal(t, 5, e.Zooming().HistoryLen())

	before := e.View()
	e.ZoomPrevious()
	assert.False(t, view.SameView(before, e.View()))
}

func TestZoomWindow(t *testing.T) {
	e, _ := newLoaded(t)

	// 40×30 world units around (20, 15).
	e.ZoomWindow(geom.Vec2{X: 400, Y: 300}, geom.Vec2{X: 440, Y: 270})
	assert.InDelta(t, 20, e.View().Zoom.X, 1e-9)
	c, _ := e.View().WorldToPixel(geom.Vec(20, 15, 0))
	assert.InDelta(t, 400, c.X, 1e-6)
	assert.InDelta(t, 300, c.Y, 1e-6)
}

func TestZoomExtentsHonorsHiddenLayers(t *testing.T) {
	e, _ := newLoaded(t)
	e.Render()
	require.NoError(t, e.SetLayerVisible("L2", false))
	assert.Equal(t, render.LevelScene, e.Pending())

	e.ZoomExtents()
	// Only the line remains: 200 units wide, degenerate in y.
	assert.InDelta(t, 800/(200*1.05), e.View().Zoom.X, 1e-9)
	assert.ErrorIs(t, e.SetLayerVisible("nope", true), scene.ErrLayerNotFound)
}

func TestResize(t *testing.T) {
	e, d := newLoaded(t)
	e.Render()

	require.NoError(t, e.Resize(1024, 768))
	assert.Equal(t, render.LevelFull, e.Pending())
	w, h := e.Size()
	assert.Equal(t, 1024, w)
	assert.Equal(t, 768, h)

	res := e.Render()
	assert.Equal(t, render.PathFull, res.Path)
	dw, dh := d.Size()
	assert.Equal(t, 1024, dw)
	assert.Equal(t, 768, dh)

	assert.Error(t, e.Resize(0, 10))
}

func TestZoomPreviousAfterResizeKeepsSize(t *testing.T) {
	e, d := newLoaded(t)
	e.Render()

	e.ZoomIn(400, 300)
	require.NoError(t, e.Resize(1000, 800))
	e.ZoomPrevious()

	w, h := e.Size()
	assert.Equal(t, 1000, w)
	assert.Equal(t, 800, h)
	assert.Equal(t, 1.0, e.View().Zoom.X)

	res := e.Render()
	require.True(t, res.OK)
	dw, dh := d.Size()
	assert.Equal(t, 1000, dw)
	assert.Equal(t, 800, dh)
}

func TestEditsRequestSceneLevel(t *testing.T) {
	e, d := newLoaded(t)
	e.Render()

	el := mustElement(t, "rect", document.Style{Stroke: "#000000", Fill: "#ff0000"},
		document.RectangleData{Min: [2]float64{-10, -10}, Max: [2]float64{10, 10}})
	require.NoError(t, e.AddElement("", el))
	assert.Equal(t, render.LevelScene, e.Pending())
	_, l, ok := e.Scene().Element("rect")
	require.True(t, ok)
	assert.Equal(t, "L1", l.ID(), "empty layer id means the active layer")

	res := e.Render()
	assert.Equal(t, render.PathFull, res.Path)
	assert.Equal(t, []string{"clear", "line", "rect", "ellipse"}, ops(d))

	assert.ErrorIs(t, e.AddElement("L2", el), scene.ErrDuplicateID)
	assert.ErrorIs(t, e.AddElement("L9", mustElement(t, "other", document.Style{},
		document.LineData{})), scene.ErrLayerNotFound)

	require.NoError(t, e.MoveControlPoint("line", 1, geom.Vec(300, 0, 0)))
	assert.Equal(t, render.LevelScene, e.Pending())
	e.Render()
	assert.ErrorIs(t, e.MoveControlPoint("nope", 0, geom.Vec3{}), scene.ErrNotFound)

	require.NoError(t, e.MoveControlPointTo("circle", 0, geom.Vec2{X: 500, Y: 300}))
	el2, _, _ := e.Scene().Element("circle")
	assert.Equal(t, geom.Vec(100, 0, 0), el2.(*scene.Circle).Center)

	require.NoError(t, e.RemoveElement("rect"))
	assert.ErrorIs(t, e.RemoveElement("rect"), scene.ErrNotFound)
}

func TestHitTestAndSelect(t *testing.T) {
	e, d := newLoaded(t)

	assert.Equal(t, "line", e.HitTest(450, 302))
	assert.Equal(t, "circle", e.HitTest(420, 200))
	assert.Equal(t, "", e.HitTest(10, 10))

	require.NoError(t, e.Select("line"))
	assert.Equal(t, []string{"line"}, e.Selected())
	e.Render()
	line := d.Commands()[1]
	assert.True(t, line.Dashed)
	assert.Equal(t, "#0078d7", line.Stroke)

	require.NoError(t, e.Select("line"))
	assert.Equal(t, render.LevelNone, e.Pending(), "unchanged selection")
	assert.ErrorIs(t, e.Select("ghost"), scene.ErrNotFound)
	require.NoError(t, e.Select())
	assert.Empty(t, e.Selected())
}

func TestDocumentSnapshot(t *testing.T) {
	e, _ := newLoaded(t)
	e.Pan(20, 0)
	require.NoError(t, e.SetLayerVisible("L2", false))

	doc, err := e.Document()
	require.NoError(t, err)
	assert.Equal(t, "doc_test", doc.ID)
	assert.Equal(t, "L1", doc.ActiveLayer)
	require.Len(t, doc.Layers, 2)
	assert.False(t, doc.Layers[1].Visible)
	require.NotNil(t, doc.View)
	assert.Equal(t, document.Point{20, 0, 0}, doc.View.Shift)

	// Loading the snapshot reproduces the view and the scene.
	e2 := New(display.New(), testOptions())
	require.NoError(t, e2.Load(doc))
	assert.True(t, view.SameView(e.View(), e2.View()))
	assert.Equal(t, e.Scene().Len(), e2.Scene().Len())

	orig := testDocument(t)
	assert.JSONEq(t, string(orig.Layers[0].Elements[0].Data), string(doc.Layers[0].Elements[0].Data))

	_, err = New(display.New(), testOptions()).Document()
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestElementConversionRoundTrip(t *testing.T) {
	style := document.Style{Stroke: "#112233", StrokeWidth: 3, Fill: "#44556680"}
	cases := []any{
		document.LineData{Start: document.Point{1, 2, 3}, End: document.Point{4, 5, 6}},
		document.CircleData{Center: document.Point{1, 1, 1}, Radius: 2, Normal: document.Point{0, 1, 0}, Flat: true, FixedRadius: true},
		document.RectangleData{Min: [2]float64{-1, -2}, Max: [2]float64{3, 4}, Z: 5},
		document.LabelData{Position: document.Point{0, 0, 1}, Text: "x", Height: 2},
		document.PolylineData{Points: []document.Point{{0, 0, 0}, {1, 0, 0}}, Closed: true},
	}
	for _, data := range cases {
		in := mustElement(t, "e", style, data)
		se, err := ElementFromDocument(in)
		require.NoError(t, err)
		out, err := ElementToDocument(se)
		require.NoError(t, err)
		assert.Equal(t, in.Type, out.Type)
		assert.Equal(t, style, out.Style)
		assert.JSONEq(t, string(in.Data), string(out.Data))
	}

	_, err := ElementFromDocument(mustElement(t, "l", style, document.LabelData{Text: "x"}))
	assert.ErrorIs(t, err, scene.ErrDegenerate)
	_, err = ElementFromDocument(mustElement(t, "c", style, document.CircleData{Radius: -1}))
	assert.ErrorIs(t, err, scene.ErrDegenerate)
	_, err = ElementFromDocument(mustElement(t, "s", document.Style{Stroke: "red"}, document.LineData{}))
	assert.Error(t, err)
}

func TestBackgroundAndBackColor(t *testing.T) {
	rt, err := raster.New()
	require.NoError(t, err)
	e := New(rt, testOptions())
	require.NoError(t, e.Load(testDocument(t)))
	e.Render()

	e.SetBackColor(color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	assert.Equal(t, render.LevelFull, e.Pending())
	res := e.Render()
	require.True(t, res.OK)
	img, err := res.Pixels.ToRGBA()
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, img.RGBAAt(5, 5))

	doc, err := e.Document()
	require.NoError(t, err)
	assert.Equal(t, "#0a141e", doc.BackColor)

	bg := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range bg.Pix {
		bg.Pix[i] = 255
	}
	bg.Pix[0], bg.Pix[1] = 0, 0
	e.SetBackground(bg)
	assert.Equal(t, render.LevelFull, e.Pending())
	assert.NotNil(t, e.RenderOptions().Background)

	o := e.RenderOptions()
	o.Background = nil
	o.ShowGrid = true
	e.SetRenderOptions(o)
	assert.NotNil(t, e.RenderOptions().Background, "background survives option changes")
	assert.True(t, e.RenderOptions().ShowGrid)
}

func TestRegionViewLeavesEngineView(t *testing.T) {
	e, _ := newLoaded(t)
	before := e.View()

	s := e.RegionView(geom.NewBox(geom.Vec(0, 0, 0), geom.Vec(10, 10, 0)), 600, 600, 0)
	assert.InDelta(t, 60, s.Zoom.X, 1e-9)
	assert.Equal(t, 600.0, s.Viewport.Width)
	assert.True(t, view.SameView(before, e.View()))
	assert.Equal(t, 0, e.Zooming().HistoryLen())
}

func TestSetViewKeepsViewport(t *testing.T) {
	e, _ := newLoaded(t)
	s := view.Default(geom.Rect{Width: 10, Height: 10}).WithZoom(geom.Vec(3, 3, 3))
	e.SetView(s)
	assert.Equal(t, 800.0, e.View().Viewport.Width)
	assert.Equal(t, 3.0, e.View().Zoom.X)

	e.SetView(view.Settings{Zoom: geom.Vec(math.NaN(), 1, 1)})
	assert.Equal(t, 3.0, e.View().Zoom.X)
}
