package scene

import (
	"errors"
	"fmt"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
	"github.com/inamate/vecview/internal/view"
)

// LayerManager owns the ordered layers of a scene and tracks which layer
// holds each element. Every element belongs to exactly one layer.
//
// A LayerManager is not safe for concurrent use.
type LayerManager struct {
	layers []*Layer
	active *Layer
	owner  map[string]*Layer

	revision uint64
}

var _ render.Scene = (*LayerManager)(nil)

func NewLayerManager() *LayerManager {
	return &LayerManager{owner: make(map[string]*Layer)}
}

// AddLayer appends an empty layer. The first layer becomes active.
func (m *LayerManager) AddLayer(id, name string) (*Layer, error) {
	if id == "" {
		return nil, fmt.Errorf("add layer: empty id")
	}
	if _, ok := m.Layer(id); ok {
		return nil, fmt.Errorf("add layer %s: %w", id, ErrDuplicateID)
	}
	l := NewLayer(id, name)
	m.layers = append(m.layers, l)
	if m.active == nil {
		m.active = l
	}
	m.revision++
	return l, nil
}

// RemoveLayer drops a layer and its elements. If it was active, the first
// remaining layer becomes active.
func (m *LayerManager) RemoveLayer(id string) error {
	for i, l := range m.layers {
		if l.id != id {
			continue
		}
		for _, el := range l.slots {
			if el != nil {
				delete(m.owner, el.Meta().ID)
			}
		}
		m.layers = append(m.layers[:i], m.layers[i+1:]...)
		// Keep the removed layer's count so Revision never goes back.
		m.revision += l.revision
		if m.active == l {
			m.active = nil
			if len(m.layers) > 0 {
				m.active = m.layers[0]
			}
		}
		m.revision++
		return nil
	}
	return fmt.Errorf("remove layer %s: %w", id, ErrLayerNotFound)
}

// Layer returns the layer with the given id.
func (m *LayerManager) Layer(id string) (*Layer, bool) {
	for _, l := range m.layers {
		if l.id == id {
			return l, true
		}
	}
	return nil, false
}

// Layers returns the layers in draw order. The slice is a copy.
func (m *LayerManager) Layers() []*Layer {
	return append([]*Layer(nil), m.layers...)
}

func (m *LayerManager) SetActive(id string) error {
	l, ok := m.Layer(id)
	if !ok {
		return fmt.Errorf("set active layer %s: %w", id, ErrLayerNotFound)
	}
	m.active = l
	return nil
}

// Active returns the layer new elements go to, or nil if there are no layers.
func (m *LayerManager) Active() *Layer {
	return m.active
}

// SetLayerVisible shows or hides a layer.
func (m *LayerManager) SetLayerVisible(id string, visible bool) error {
	l, ok := m.Layer(id)
	if !ok {
		return fmt.Errorf("set layer visibility %s: %w", id, ErrLayerNotFound)
	}
	if l.visible != visible {
		l.visible = visible
		m.revision++
	}
	return nil
}

// AddElement adds el to the active layer.
func (m *LayerManager) AddElement(el Element) error {
	if m.active == nil {
		return ErrNoActiveLayer
	}
	return m.addTo(m.active, el, true)
}

// AddElementTo adds el to the given layer. raise false skips the change
// count, for batch loads.
func (m *LayerManager) AddElementTo(layerID string, el Element, raise bool) error {
	l, ok := m.Layer(layerID)
	if !ok {
		return fmt.Errorf("add element: layer %s: %w", layerID, ErrLayerNotFound)
	}
	return m.addTo(l, el, raise)
}

func (m *LayerManager) addTo(l *Layer, el Element, raise bool) error {
	if el == nil {
		return fmt.Errorf("add element: nil element")
	}
	id := el.Meta().ID
	if _, ok := m.owner[id]; ok {
		return fmt.Errorf("add element %s: %w", id, ErrDuplicateID)
	}
	if err := l.Add(el, raise); err != nil {
		return err
	}
	m.owner[id] = l
	return nil
}

// RemoveElement removes an element from whichever layer holds it.
func (m *LayerManager) RemoveElement(id string) (Element, error) {
	l, ok := m.owner[id]
	if !ok {
		return nil, fmt.Errorf("remove element %s: %w", id, ErrNotFound)
	}
	el, err := l.Remove(id, true)
	if err != nil {
		return nil, err
	}
	delete(m.owner, id)
	return el, nil
}

// MoveElement moves an element to the end of another layer.
func (m *LayerManager) MoveElement(id, layerID string) error {
	src, ok := m.owner[id]
	if !ok {
		return fmt.Errorf("move element %s: %w", id, ErrNotFound)
	}
	dst, ok := m.Layer(layerID)
	if !ok {
		return fmt.Errorf("move element %s: layer %s: %w", id, layerID, ErrLayerNotFound)
	}
	if src == dst {
		return nil
	}
	if _, dup := dst.index[id]; dup {
		return fmt.Errorf("move element %s: layer %s: %w", id, layerID, ErrDuplicateID)
	}
	el, err := src.Remove(id, true)
	if err != nil {
		return err
	}
	if err := dst.Add(el, true); err != nil {
		if rerr := src.Add(el, true); rerr != nil {
			delete(m.owner, id)
			return errors.Join(err, rerr)
		}
		return err
	}
	m.owner[id] = dst
	return nil
}

// Element returns an element and the layer holding it.
func (m *LayerManager) Element(id string) (Element, *Layer, bool) {
	l, ok := m.owner[id]
	if !ok {
		return nil, nil, false
	}
	el, ok := l.Get(id)
	return el, l, ok
}

// Modify runs fn on an element through its layer.
func (m *LayerManager) Modify(id string, fn func(Element) error) error {
	l, ok := m.owner[id]
	if !ok {
		return fmt.Errorf("modify element %s: %w", id, ErrNotFound)
	}
	return l.Modify(id, fn)
}

func (m *LayerManager) MoveControlPoint(id string, i int, p geom.Vec3) error {
	l, ok := m.owner[id]
	if !ok {
		return fmt.Errorf("move control point of %s: %w", id, ErrNotFound)
	}
	return l.MoveControlPoint(id, i, p)
}

func (m *LayerManager) Touch(id string) error {
	l, ok := m.owner[id]
	if !ok {
		return fmt.Errorf("touch element %s: %w", id, ErrNotFound)
	}
	return l.Touch(id)
}

// Len returns the total number of elements.
func (m *LayerManager) Len() int {
	return len(m.owner)
}

// VisibleElements returns the elements of visible layers in draw order.
func (m *LayerManager) VisibleElements() []Element {
	var out []Element
	for _, l := range m.layers {
		if l.visible {
			out = append(out, l.Elements()...)
		}
	}
	return out
}

// AllElements returns every element in draw order.
func (m *LayerManager) AllElements() []Element {
	out := make([]Element, 0, len(m.owner))
	for _, l := range m.layers {
		out = append(out, l.Elements()...)
	}
	return out
}

// VisibleBounds is the union of the bounds of all visible layers.
func (m *LayerManager) VisibleBounds() geom.Box3 {
	b := geom.EmptyBox()
	for _, l := range m.layers {
		if l.visible {
			b = b.Union(l.Bounds())
		}
	}
	return b
}

// FindElementAtPoint returns the topmost visible element within tol of p,
// or nil. Later layers and later elements are on top.
func (m *LayerManager) FindElementAtPoint(p geom.Vec3, tol float64) Element {
	return m.findAt(p, tol, nil)
}

// FindElementInView is FindElementAtPoint for a point picked under s, so
// elements sized in pixels are hit where they are drawn.
func (m *LayerManager) FindElementInView(p geom.Vec3, tol float64, s view.Settings) Element {
	return m.findAt(p, tol, &s)
}

func (m *LayerManager) findAt(p geom.Vec3, tol float64, s *view.Settings) Element {
	for i := len(m.layers) - 1; i >= 0; i-- {
		l := m.layers[i]
		if !l.visible {
			continue
		}
		if el := l.findAt(p, tol, s); el != nil {
			return el
		}
	}
	return nil
}

// WalkVisible yields the elements of visible layers in draw order.
func (m *LayerManager) WalkVisible(fn func(render.Drawable) bool) {
	for _, l := range m.layers {
		if !l.visible {
			continue
		}
		stop := false
		l.Walk(func(el Element) bool {
			if !fn(el) {
				stop = true
				return false
			}
			return true
		})
		if stop {
			return
		}
	}
}

// SetSelected changes the selection flag of the given elements and clears
// it on all others. It reports whether anything changed.
func (m *LayerManager) SetSelected(ids ...string) bool {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	changed := false
	for id, l := range m.owner {
		el, _ := l.Get(id)
		if el.Meta().Selected != want[id] {
			_ = l.Modify(id, func(e Element) error {
				e.Meta().Selected = want[id]
				return nil
			})
			changed = true
		}
	}
	return changed
}

// Selected returns the ids of selected elements in draw order.
func (m *LayerManager) Selected() []string {
	var ids []string
	for _, l := range m.layers {
		l.Walk(func(el Element) bool {
			if el.Meta().Selected {
				ids = append(ids, el.Meta().ID)
			}
			return true
		})
	}
	return ids
}

// Revision increases whenever the scene changes in a counted way. It never
// decreases.
func (m *LayerManager) Revision() uint64 {
	r := m.revision
	for _, l := range m.layers {
		r += l.revision
	}
	return r
}
