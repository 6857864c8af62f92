//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/inamate/vecview/internal/document"
	"github.com/inamate/vecview/internal/engine"
	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
	"github.com/inamate/vecview/internal/render/display"
	"github.com/inamate/vecview/internal/typeid"
	"github.com/inamate/vecview/internal/view"
)

var (
	eng    *engine.Engine
	target *display.Target
)

func main() {
	target = display.New()
	eng = engine.New(target, engine.DefaultOptions())

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	api.Set("resize", js.FuncOf(resize))
	api.Set("pan", js.FuncOf(pan))
	api.Set("panStep", js.FuncOf(panStep))
	api.Set("zoomIn", js.FuncOf(zoomIn))
	api.Set("zoomOut", js.FuncOf(zoomOut))
	api.Set("zoomExtents", js.FuncOf(zoomExtents))
	api.Set("zoomWindow", js.FuncOf(zoomWindow))
	api.Set("zoomPrevious", js.FuncOf(zoomPrevious))
	api.Set("rotate", js.FuncOf(rotate))
	api.Set("addElement", js.FuncOf(addElement))
	api.Set("removeElement", js.FuncOf(removeElement))
	api.Set("moveControlPoint", js.FuncOf(moveControlPoint))
	api.Set("setLayerVisible", js.FuncOf(setLayerVisible))
	api.Set("setPreview", js.FuncOf(setPreview))
	api.Set("clearPreview", js.FuncOf(clearPreview))
	api.Set("setSelection", js.FuncOf(setSelection))

	// --- Queries (frontend ← engine) ---
	api.Set("render", js.FuncOf(renderFrame))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("pixelToWorld", js.FuncOf(pixelToWorld))
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("getSelection", js.FuncOf(getSelection))
	api.Set("getView", js.FuncOf(getView))

	js.Global().Set("vecviewEngine", api)
	js.Global().Set("vecviewWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() any {
	return js.ValueOf(map[string]any{"ok": true})
}

func fail(err error) any {
	return js.ValueOf(map[string]any{"error": err.Error()})
}

func missing(what string) any {
	return js.ValueOf(map[string]any{"error": "missing " + what})
}

func floats(args []js.Value, n int) ([]float64, bool) {
	if len(args) < n {
		return nil, false
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = args[i].Float()
	}
	return out, true
}

// --- Command handlers ---

func loadDocument(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("document JSON")
	}
	if err := eng.LoadDocument([]byte(args[0].String())); err != nil {
		return fail(err)
	}
	return ok()
}

func loadSampleDocument(this js.Value, args []js.Value) any {
	id := typeid.NewDocumentID()
	if len(args) > 0 && args[0].Type() == js.TypeString {
		id = args[0].String()
	}
	if err := eng.Load(document.NewSampleDocument(id)); err != nil {
		return fail(err)
	}
	return ok()
}

func resize(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return missing("width and height")
	}
	if err := eng.Resize(args[0].Int(), args[1].Int()); err != nil {
		return fail(err)
	}
	return ok()
}

func pan(this js.Value, args []js.Value) any {
	f, has := floats(args, 2)
	if !has {
		return missing("dx and dy")
	}
	eng.Pan(f[0], f[1])
	return nil
}

func panStep(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("direction")
	}
	dirs := map[string]view.PanDirection{
		"right": view.PanXPlus,
		"left":  view.PanXMinus,
		"up":    view.PanYPlus,
		"down":  view.PanYMinus,
	}
	dir, found := dirs[args[0].String()]
	if !found {
		return missing("valid direction")
	}
	eng.PanStep(dir)
	return nil
}

func zoomIn(this js.Value, args []js.Value) any {
	f, has := floats(args, 2)
	if !has {
		return missing("pivot")
	}
	eng.ZoomIn(f[0], f[1])
	return nil
}

func zoomOut(this js.Value, args []js.Value) any {
	f, has := floats(args, 2)
	if !has {
		return missing("pivot")
	}
	eng.ZoomOut(f[0], f[1])
	return nil
}

func zoomExtents(this js.Value, args []js.Value) any {
	eng.ZoomExtents()
	return nil
}

func zoomWindow(this js.Value, args []js.Value) any {
	f, has := floats(args, 4)
	if !has {
		return missing("corners")
	}
	eng.ZoomWindow(geom.Vec2{X: f[0], Y: f[1]}, geom.Vec2{X: f[2], Y: f[3]})
	return nil
}

func zoomPrevious(this js.Value, args []js.Value) any {
	eng.ZoomPrevious()
	return nil
}

func rotate(this js.Value, args []js.Value) any {
	f, has := floats(args, 5)
	if !has {
		return missing("angles and pivot")
	}
	eng.Rotate(geom.Vec(f[0], f[1], f[2]), geom.Vec2{X: f[3], Y: f[4]})
	return nil
}

func addElement(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("element JSON")
	}
	var el document.Element
	if err := json.Unmarshal([]byte(args[0].String()), &el); err != nil {
		return fail(err)
	}
	layerID := ""
	if len(args) > 1 && args[1].Type() == js.TypeString {
		layerID = args[1].String()
	}
	if err := eng.AddElement(layerID, el); err != nil {
		return fail(err)
	}
	return ok()
}

func removeElement(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("element id")
	}
	if err := eng.RemoveElement(args[0].String()); err != nil {
		return fail(err)
	}
	return ok()
}

func moveControlPoint(this js.Value, args []js.Value) any {
	if len(args) < 4 {
		return missing("id, index and pixel")
	}
	px := geom.Vec2{X: args[2].Float(), Y: args[3].Float()}
	if err := eng.MoveControlPointTo(args[0].String(), args[1].Int(), px); err != nil {
		return fail(err)
	}
	return ok()
}

func setLayerVisible(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return missing("layer id and visibility")
	}
	if err := eng.SetLayerVisible(args[0].String(), args[1].Bool()); err != nil {
		return fail(err)
	}
	return ok()
}

func setPreview(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("elements JSON")
	}
	var els []document.Element
	if err := json.Unmarshal([]byte(args[0].String()), &els); err != nil {
		return fail(err)
	}
	if err := eng.SetPreview(els...); err != nil {
		return fail(err)
	}
	return ok()
}

func clearPreview(this js.Value, args []js.Value) any {
	eng.ClearPreview()
	return nil
}

func setSelection(this js.Value, args []js.Value) any {
	ids := make([]string, len(args))
	for i, a := range args {
		ids[i] = a.String()
	}
	if err := eng.Select(ids...); err != nil {
		return fail(err)
	}
	return ok()
}

// --- Queries ---

// renderFrame draws the pending level and returns the display list as JSON,
// or null when nothing changed.
func renderFrame(this js.Value, args []js.Value) any {
	if eng.Pending() == render.LevelNone {
		return js.Null()
	}
	if res := eng.Render(); !res.OK {
		return js.ValueOf(map[string]any{"error": "render failed"})
	}
	out, err := target.JSON()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(out)
}

func hitTest(this js.Value, args []js.Value) any {
	f, has := floats(args, 2)
	if !has {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.HitTest(f[0], f[1]))
}

func pixelToWorld(this js.Value, args []js.Value) any {
	f, has := floats(args, 2)
	if !has {
		return js.Null()
	}
	w := eng.View().PixelToWorld(geom.Vec2{X: f[0], Y: f[1]})
	if !w.IsValid() {
		return js.Null()
	}
	return js.ValueOf([]any{w.X, w.Y, w.Z})
}

func getDocument(this js.Value, args []js.Value) any {
	doc, err := eng.Document()
	if err != nil {
		return fail(err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(string(data))
}

func getSelection(this js.Value, args []js.Value) any {
	ids := eng.Selected()
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return js.ValueOf(out)
}

func getView(this js.Value, args []js.Value) any {
	data, err := json.Marshal(eng.View())
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(string(data))
}
