package scene

import (
	"fmt"

	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
	"github.com/inamate/vecview/internal/view"
)

// compactMin is the number of tombstones tolerated before a layer considers
// compacting its slots.
const compactMin = 32

// Layer is an ordered set of elements. Elements live in a slot arena; removal
// leaves a tombstone, and the arena is compacted once tombstones outnumber
// live elements, so add and remove are amortised O(1) and draw order is
// insertion order.
//
// The layer caches the union of its elements' bounds. Any mutation through
// the layer marks the cache dirty and the next Bounds call rebuilds it.
type Layer struct {
	id      string
	name    string
	visible bool

	slots []Element
	index map[string]int
	live  int

	bounds geom.Box3
	dirty  bool

	revision uint64
}

// NewLayer returns an empty visible layer.
func NewLayer(id, name string) *Layer {
	return &Layer{id: id, name: name, visible: true, index: make(map[string]int)}
}

func (l *Layer) ID() string {
	return l.id
}

func (l *Layer) Name() string {
	return l.name
}

func (l *Layer) Visible() bool {
	return l.visible
}

// Len returns the number of live elements.
func (l *Layer) Len() int {
	return l.live
}

// Revision counts raised changes. It only grows.
func (l *Layer) Revision() uint64 {
	return l.revision
}

// Add appends el. With raise false the change is not counted, which is meant
// for batch loads; the bounds cache is kept right either way.
func (l *Layer) Add(el Element, raise bool) error {
	if el == nil {
		return fmt.Errorf("add element: nil element")
	}
	id := el.Meta().ID
	if id == "" {
		return fmt.Errorf("add element: empty id")
	}
	if _, ok := l.index[id]; ok {
		return fmt.Errorf("add element %s: %w", id, ErrDuplicateID)
	}
	l.index[id] = len(l.slots)
	l.slots = append(l.slots, el)
	l.live++
	if !l.dirty {
		l.bounds = l.bounds.Union(el.Bounds())
	}
	l.changed(raise)
	return nil
}

// Remove deletes the element with the given id and returns it.
func (l *Layer) Remove(id string, raise bool) (Element, error) {
	i, ok := l.index[id]
	if !ok {
		return nil, fmt.Errorf("remove element %s: %w", id, ErrNotFound)
	}
	el := l.slots[i]
	l.slots[i] = nil
	delete(l.index, id)
	l.live--
	l.dirty = true
	if dead := len(l.slots) - l.live; dead >= compactMin && dead > l.live {
		l.compact()
	}
	l.changed(raise)
	return el, nil
}

// Get returns the element with the given id.
func (l *Layer) Get(id string) (Element, bool) {
	i, ok := l.index[id]
	if !ok {
		return nil, false
	}
	return l.slots[i], true
}

// Modify runs fn on the element and marks the bounds dirty. fn must not
// change the element's id.
func (l *Layer) Modify(id string, fn func(Element) error) error {
	el, ok := l.Get(id)
	if !ok {
		return fmt.Errorf("modify element %s: %w", id, ErrNotFound)
	}
	err := fn(el)
	if el.Meta().ID != id {
		el.Meta().ID = id
		if err == nil {
			err = fmt.Errorf("modify element %s: id must not change", id)
		}
	}
	l.dirty = true
	l.changed(true)
	return err
}

// MoveControlPoint moves control point i of the element to p.
func (l *Layer) MoveControlPoint(id string, i int, p geom.Vec3) error {
	return l.Modify(id, func(el Element) error {
		return el.MoveControlPoint(i, p)
	})
}

// Touch records that the element was changed outside Modify.
func (l *Layer) Touch(id string) error {
	if _, ok := l.index[id]; !ok {
		return fmt.Errorf("touch element %s: %w", id, ErrNotFound)
	}
	l.dirty = true
	l.changed(true)
	return nil
}

// RebuildBounds recomputes the cached bounds. An empty layer has empty bounds.
func (l *Layer) RebuildBounds() {
	b := geom.EmptyBox()
	for _, el := range l.slots {
		if el != nil {
			b = b.Union(el.Bounds())
		}
	}
	l.bounds = b
	l.dirty = false
}

// Bounds returns the union of all element bounds, rebuilding if needed.
func (l *Layer) Bounds() geom.Box3 {
	if l.dirty {
		l.RebuildBounds()
	}
	return l.bounds
}

// Elements returns the live elements in draw order. The slice is a copy.
func (l *Layer) Elements() []Element {
	out := make([]Element, 0, l.live)
	for _, el := range l.slots {
		if el != nil {
			out = append(out, el)
		}
	}
	return out
}

// Walk calls fn for each element in draw order until fn returns false.
func (l *Layer) Walk(fn func(Element) bool) {
	for _, el := range l.slots {
		if el != nil && !fn(el) {
			return
		}
	}
}

// WalkVisible walks every element of the layer, regardless of the layer's
// own visibility.
func (l *Layer) WalkVisible(fn func(render.Drawable) bool) {
	l.Walk(func(el Element) bool { return fn(el) })
}

// FindAt returns the topmost element hit at p, or nil.
func (l *Layer) FindAt(p geom.Vec3, tol float64) Element {
	return l.findAt(p, tol, nil)
}

func (l *Layer) findAt(p geom.Vec3, tol float64, s *view.Settings) Element {
	for i := len(l.slots) - 1; i >= 0; i-- {
		if el := l.slots[i]; el != nil && hitTest(el, p, tol, s) {
			return el
		}
	}
	return nil
}

func (l *Layer) compact() {
	slots := make([]Element, 0, l.live)
	for _, el := range l.slots {
		if el != nil {
			l.index[el.Meta().ID] = len(slots)
			slots = append(slots, el)
		}
	}
	l.slots = slots
}

func (l *Layer) changed(raise bool) {
	if raise {
		l.revision++
	}
}
