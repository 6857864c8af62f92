package engine

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/inamate/vecview/internal/document"
	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
	"github.com/inamate/vecview/internal/scene"
	"github.com/inamate/vecview/internal/view"
)

// ErrNoDocument is returned by operations that need a loaded document.
var ErrNoDocument = errors.New("engine: no document loaded")

// DefaultHitTolerance is the pick radius in pixels.
const DefaultHitTolerance = 4.0

type Options struct {
	Width, Height int
	Render        render.Options
	ZoomHistory   int
	// Padding is the zoom-extents margin in percent.
	Padding float64
}

// DefaultOptions returns a 1280×720 engine with the default overlays.
func DefaultOptions() Options {
	return Options{
		Width:       1280,
		Height:      720,
		Render:      render.DefaultOptions(),
		ZoomHistory: view.DefaultHistory,
		Padding:     view.DefaultPadding,
	}
}

// Engine owns the interactive state of one open document: the scene, the
// current view and its history, preview elements and the pending
// invalidation. Every operation requests the invalidation level it needs;
// Render draws at the accumulated level and resets it.
//
// An Engine is not safe for concurrent use; one goroutine owns it.
type Engine struct {
	meta   document.Document
	loaded bool

	scene    *scene.LayerManager
	view     view.Settings
	zoom     *view.Zooming
	padding  float64
	preview  []render.Drawable
	back     color.NRGBA
	inv      render.Invalidator
	renderer *render.Manager
}

// New returns an engine drawing into t with an empty scene.
func New(t render.Target, opts Options) *Engine {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1280, 720
	}
	e := &Engine{
		scene:    scene.NewLayerManager(),
		view:     view.Default(geom.Rect{Width: float64(opts.Width), Height: float64(opts.Height)}),
		zoom:     view.NewZooming(opts.ZoomHistory),
		padding:  opts.Padding,
		back:     color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		renderer: render.NewManager(t, opts.Render),
	}
	e.inv.Request(render.LevelFull)
	return e
}

// LoadDocument parses a JSON document and loads it.
func (e *Engine) LoadDocument(data []byte) error {
	doc, err := document.Parse(data)
	if err != nil {
		return err
	}
	return e.Load(doc)
}

// Load replaces the scene with doc. The saved view is restored when the
// document has a valid one; otherwise the view fits the visible content.
// On error the engine keeps its previous state.
func (e *Engine) Load(doc *document.Document) error {
	m, err := BuildScene(doc)
	if err != nil {
		return fmt.Errorf("load document %s: %w", doc.ID, err)
	}
	back, err := document.ParseColor(doc.BackColor)
	if err != nil {
		return fmt.Errorf("load document %s: %w", doc.ID, err)
	}
	if back.A == 0 {
		back = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}

	meta := *doc
	meta.Layers = nil
	meta.View = nil
	e.meta = meta
	e.loaded = true
	e.scene = m
	e.back = back
	e.preview = nil
	e.zoom.Reset()

	viewport := e.view.Viewport
	if s, ok := viewFromSaved(doc.View, viewport); ok {
		e.view = s
	} else {
		e.view = view.Default(viewport)
		e.view = e.zoom.ZoomExtents(e.view, e.scene, e.padding)
		e.zoom.Reset()
	}
	e.inv.Request(render.LevelFull)

	slog.Info("document loaded", "documentID", doc.ID, "layers", len(doc.Layers), "elements", m.Len())
	return nil
}

func viewFromSaved(v *document.View, viewport geom.Rect) (view.Settings, bool) {
	if v == nil {
		return view.Settings{}, false
	}
	return viewFromDocument(v, viewport)
}

// Document returns the current state as a document, including the view.
func (e *Engine) Document() (*document.Document, error) {
	if !e.loaded {
		return nil, ErrNoDocument
	}
	return SnapshotDocument(e.meta, e.scene, e.view)
}

// Scene exposes the layer manager. Callers that mutate elements through it
// must call Invalidate with LevelScene.
func (e *Engine) Scene() *scene.LayerManager {
	return e.scene
}

// View returns the current view settings.
func (e *Engine) View() view.Settings {
	return e.view
}

// SetView replaces the view, for example when restoring a client's viewport.
func (e *Engine) SetView(s view.Settings) {
	if !s.IsValid() {
		return
	}
	e.setView(s.WithViewport(e.view.Viewport))
}

// Zooming exposes the zoom history.
func (e *Engine) Zooming() *view.Zooming {
	return e.zoom
}

// Pending returns the invalidation level the next Render will draw at.
func (e *Engine) Pending() render.InvalidationLevel {
	return e.inv.Pending()
}

// Invalidate requests a redraw at level or above.
func (e *Engine) Invalidate(level render.InvalidationLevel) {
	e.inv.Request(level)
}

// Resize changes the output size in pixels. The world point at the center
// stays at the center.
func (e *Engine) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("resize to %dx%d: size must be positive", width, height)
	}
	e.view = e.zoom.Resize(e.view, geom.Rect{Width: float64(width), Height: float64(height)})
	e.inv.Request(render.LevelFull)
	return nil
}

// Size returns the output size in pixels.
func (e *Engine) Size() (width, height int) {
	return int(e.view.Viewport.Width), int(e.view.Viewport.Height)
}

func (e *Engine) setView(s view.Settings) {
	if view.SameView(s, e.view) {
		return
	}
	e.view = s
	e.inv.Request(render.LevelView)
}

func (e *Engine) Pan(dx, dy float64) {
	e.setView(e.zoom.Pan(e.view, dx, dy))
}

func (e *Engine) PanStep(dir view.PanDirection) {
	e.setView(e.zoom.PanStep(e.view, dir))
}

func (e *Engine) ZoomIn(px, py float64) {
	e.setView(e.zoom.ZoomIn(e.view, px, py))
}

func (e *Engine) ZoomOut(px, py float64) {
	e.setView(e.zoom.ZoomOut(e.view, px, py))
}

// ZoomBy zooms by an arbitrary factor around a pixel, e.g. for wheel deltas.
func (e *Engine) ZoomBy(factor, px, py float64) {
	e.setView(e.zoom.ZoomBy(e.view, factor, px, py))
}

// ZoomExtents fits the visible layers into the viewport.
func (e *Engine) ZoomExtents() {
	e.setView(e.zoom.ZoomExtents(e.view, e.scene, e.padding))
}

// ZoomWindow zooms to the rectangle spanned by two pixel corners.
func (e *Engine) ZoomWindow(a, b geom.Vec2) {
	e.setView(e.zoom.ZoomToRectangle(e.view, e.view.PixelToWorld(a), e.view.PixelToWorld(b)))
}

func (e *Engine) ZoomPrevious() {
	e.setView(e.zoom.ZoomPrevious(e.view))
}

// Rotate sets the view rotation in radians around the point under pivot.
func (e *Engine) Rotate(angles geom.Vec3, pivot geom.Vec2) {
	e.setView(e.zoom.Rotate(e.view, angles, pivot))
}

// RegionView returns the view that fits region into a width×height image
// without touching the engine's own view or history.
func (e *Engine) RegionView(region geom.Box3, width, height int, padding float64) view.Settings {
	s := e.view.WithViewport(geom.Rect{Width: float64(width), Height: float64(height)})
	return e.zoom.GetRegionViewSettings(s, region, padding)
}

// AddElement decodes el and adds it to the given layer, or to the active
// layer when layerID is empty.
func (e *Engine) AddElement(layerID string, el document.Element) error {
	se, err := ElementFromDocument(el)
	if err != nil {
		return err
	}
	if layerID == "" {
		err = e.scene.AddElement(se)
	} else {
		err = e.scene.AddElementTo(layerID, se, true)
	}
	if err != nil {
		return err
	}
	e.inv.Request(render.LevelScene)
	return nil
}

func (e *Engine) RemoveElement(id string) error {
	if _, err := e.scene.RemoveElement(id); err != nil {
		return err
	}
	e.inv.Request(render.LevelScene)
	return nil
}

// MoveControlPoint drags control point i of an element to world point p.
func (e *Engine) MoveControlPoint(id string, i int, p geom.Vec3) error {
	if err := e.scene.MoveControlPoint(id, i, p); err != nil {
		return err
	}
	e.inv.Request(render.LevelScene)
	return nil
}

// MoveControlPointTo drags a control point to the base-plane point under a
// pixel.
func (e *Engine) MoveControlPointTo(id string, i int, px geom.Vec2) error {
	return e.MoveControlPoint(id, i, e.view.PixelToWorld(px))
}

func (e *Engine) SetLayerVisible(id string, visible bool) error {
	if err := e.scene.SetLayerVisible(id, visible); err != nil {
		return err
	}
	e.inv.Request(render.LevelScene)
	return nil
}

// SetPreview replaces the temporary elements drawn over the scene. They are
// never culled, cached or hit-tested.
func (e *Engine) SetPreview(els ...document.Element) error {
	preview := make([]render.Drawable, 0, len(els))
	for _, de := range els {
		se, err := ElementFromDocument(de)
		if err != nil {
			return err
		}
		preview = append(preview, se)
	}
	e.preview = preview
	e.inv.Request(render.LevelOverlay)
	return nil
}

func (e *Engine) ClearPreview() {
	if len(e.preview) == 0 {
		return
	}
	e.preview = nil
	e.inv.Request(render.LevelOverlay)
}

// HitTest returns the topmost visible element within DefaultHitTolerance
// pixels of (px, py), or "" if nothing is there.
func (e *Engine) HitTest(px, py float64) string {
	w := e.view.PixelToWorld(geom.Vec2{X: px, Y: py})
	if !w.IsValid() {
		return ""
	}
	el := e.scene.FindElementInView(w, e.view.WorldTolerance(DefaultHitTolerance), e.view)
	if el == nil {
		return ""
	}
	return el.Meta().ID
}

// Select makes ids the selection. Selected elements are drawn highlighted.
func (e *Engine) Select(ids ...string) error {
	for _, id := range ids {
		if _, _, ok := e.scene.Element(id); !ok {
			return fmt.Errorf("select %s: %w", id, scene.ErrNotFound)
		}
	}
	if e.scene.SetSelected(ids...) {
		e.inv.Request(render.LevelScene)
	}
	return nil
}

func (e *Engine) Selected() []string {
	return e.scene.Selected()
}

// SetBackground sets the image drawn under the scene; nil removes it.
func (e *Engine) SetBackground(img image.Image) {
	o := e.renderer.Options()
	o.Background = img
	e.renderer.SetOptions(o)
	e.inv.Request(render.LevelFull)
}

// SetRenderOptions replaces the overlay options, keeping the background.
func (e *Engine) SetRenderOptions(o render.Options) {
	o.Background = e.renderer.Options().Background
	e.renderer.SetOptions(o)
	e.inv.Request(render.LevelFull)
}

func (e *Engine) RenderOptions() render.Options {
	return e.renderer.Options()
}

func (e *Engine) SetBackColor(c color.NRGBA) {
	if c == e.back {
		return
	}
	e.back = c
	e.meta.BackColor = document.FormatColor(c)
	e.inv.Request(render.LevelFull)
}

// Render draws a frame at the pending level and clears it. Failed frames
// keep the level so the next Render retries a full draw.
func (e *Engine) Render() render.Result {
	level := e.inv.Take()
	w, h := e.Size()
	res := e.renderer.Render(render.Frame{
		Width:     w,
		Height:    h,
		View:      e.view,
		Scene:     e.scene,
		Temp:      e.preview,
		BackColor: e.back,
		Level:     level,
	})
	if !res.OK {
		e.inv.Request(render.LevelFull)
	}
	return res
}

// Target returns the backend the engine draws into.
func (e *Engine) Target() render.Target {
	return e.renderer.Target()
}
