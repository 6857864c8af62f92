package render

import (
	"errors"
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/view"
)

// Options toggles the per-frame overlays.
type Options struct {
	ShowGrid     bool
	ShowAxes     bool
	ShowScaleBar bool
	// GridSpacing is the distance between grid lines in world units.
	GridSpacing float64
	// ScaleBarPixels is the longest the scale bar may be.
	ScaleBarPixels int
	// Background, if set, is stretched over the frame before the scene.
	Background image.Image
}

// DefaultOptions shows axes and the scale bar, with the grid off.
func DefaultOptions() Options {
	return Options{
		ShowAxes:       true,
		ShowScaleBar:   true,
		GridSpacing:    50,
		ScaleBarPixels: 100,
	}
}

// Frame is the input of one Render call.
type Frame struct {
	Width  int
	Height int
	View   view.Settings
	Scene  Scene
	// Temp holds in-progress tool previews, drawn on top every frame and
	// never cached or culled.
	Temp      []Drawable
	BackColor color.NRGBA
	Level     InvalidationLevel
}

// FramePath records which path a frame took.
type FramePath int

const (
	PathFull FramePath = iota
	PathCached
)

func (p FramePath) String() string {
	if p == PathCached {
		return "cached"
	}
	return "full"
}

// Result is the output of one Render call.
//
// When OK is false the frame failed and Pixels holds the last good frame,
// which may be empty if no frame ever succeeded.
type Result struct {
	Pixels  PixelData
	Elapsed time.Duration
	OK      bool
	Path    FramePath
	Drawn   int
	Culled  int
}

// Manager drives a Target through one frame at a time, choosing between a
// full scene render and an overlay pass over the cached scene.
//
// A Manager is not safe for concurrent use; one goroutine owns it.
type Manager struct {
	target Target
	opts   Options

	lastWidth  int
	lastHeight int
	lastGood   PixelData
}

// NewManager returns a manager drawing into t.
func NewManager(t Target, opts Options) *Manager {
	if t == nil {
		panic("render: NewManager called with nil target")
	}
	return &Manager{target: t, opts: opts, lastWidth: -1, lastHeight: -1}
}

func (m *Manager) Target() Target {
	return m.target
}

func (m *Manager) Options() Options {
	return m.opts
}

// SetOptions replaces the overlay options. A change of background takes
// effect on the next full render; callers should request LevelFull.
func (m *Manager) SetOptions(o Options) {
	m.opts = o
}

// LastGood returns the last successfully extracted frame.
func (m *Manager) LastGood() PixelData {
	return m.lastGood
}

// Render draws one frame. A nil scene is a programming error and panics.
//
// A full render happens when the level is above LevelOverlay or the size
// changed since the previous frame; otherwise the frame starts from the
// backend's cached scene. If the backend has no cache, the manager falls back
// to a full render. Temp elements and enabled overlays are drawn in both cases.
func (m *Manager) Render(f Frame) Result {
	if f.Scene == nil {
		panic("render: Render called with nil scene")
	}
	start := time.Now()
	res := Result{Path: PathFull}

	if f.Width <= 0 || f.Height <= 0 {
		slog.Warn("render skipped: empty frame", "width", f.Width, "height", f.Height)
		return m.fail(res, start)
	}

	sizeChanged := f.Width != m.lastWidth || f.Height != m.lastHeight
	full := f.Level > LevelOverlay || sizeChanged

	if !full {
		err := m.target.BeginFrameFromCache()
		switch {
		case errors.Is(err, ErrNoCache):
			slog.Warn("scene cache missing, rendering full frame", "width", f.Width, "height", f.Height)
			full = true
		case err != nil:
			slog.Error("begin cached frame", "error", err)
			return m.fail(res, start)
		default:
			res.Path = PathCached
		}
	}

	if full {
		if err := m.target.BeginFrame(f.Width, f.Height); err != nil {
			slog.Error("begin frame", "error", err, "width", f.Width, "height", f.Height)
			m.lastWidth, m.lastHeight = -1, -1
			return m.fail(res, start)
		}
		res.Drawn, res.Culled = m.drawScene(f)
		m.target.EndScene()
		m.lastWidth, m.lastHeight = f.Width, f.Height
	}

	for _, d := range f.Temp {
		if d != nil {
			d.Emit(m.target, f.View)
		}
	}
	m.drawOverlays(f.View)
	m.target.EndFrame()

	if v, ok := m.target.(VectorTarget); !ok || !v.IsVector() {
		px, ok := m.target.PixelData()
		if !ok || px.IsEmpty() {
			slog.Error("extract pixels failed", "width", f.Width, "height", f.Height)
			return m.fail(res, start)
		}
		m.lastGood = px
		res.Pixels = px
	}
	res.OK = true
	res.Elapsed = time.Since(start)

	slog.Debug("frame rendered",
		"path", res.Path, "level", f.Level,
		"drawn", res.Drawn, "culled", res.Culled,
		"elapsed", res.Elapsed)
	return res
}

func (m *Manager) fail(res Result, start time.Time) Result {
	res.OK = false
	res.Pixels = m.lastGood
	res.Elapsed = time.Since(start)
	return res
}

func (m *Manager) drawScene(f Frame) (drawn, culled int) {
	if m.opts.Background != nil {
		m.target.Clear(color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		m.target.DrawImage(m.opts.Background, geom.Rect{Width: float64(f.Width), Height: float64(f.Height)})
	} else {
		m.target.Clear(f.BackColor)
	}

	f.Scene.WalkVisible(func(d Drawable) bool {
		if !DrawableVisible(d, f.View) {
			culled++
			return true
		}
		d.Emit(m.target, f.View)
		drawn++
		return true
	})
	return drawn, culled
}

func (m *Manager) drawOverlays(s view.Settings) {
	if !s.IsValid() {
		return
	}
	if m.opts.ShowScaleBar {
		DrawScaleBar(m.target, s, m.opts.ScaleBarPixels)
	}
	if m.opts.ShowGrid {
		DrawGrid(m.target, s, m.opts.GridSpacing)
	}
	if m.opts.ShowAxes {
		DrawAxes(m.target, s)
	}
}
