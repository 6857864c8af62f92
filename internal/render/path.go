package render

import (
	"strconv"
	"strings"

	"github.com/inamate/vecview/internal/geom"
)

// PathOp is the kind of a path segment.
type PathOp uint8

const (
	OpMoveTo PathOp = iota
	OpLineTo
	OpClose
)

// PathSegment is one command of a Path. Point is unused for OpClose.
type PathSegment struct {
	Op    PathOp
	Point geom.Vec2
}

// Path is a sequence of pixel-space line segments, possibly in several
// subpaths.
type Path struct {
	segs []PathSegment
}

// NewPath returns an empty path with room for n segments.
func NewPath(n int) *Path {
	return &Path{segs: make([]PathSegment, 0, n)}
}

func (p *Path) MoveTo(pt geom.Vec2) {
	p.segs = append(p.segs, PathSegment{Op: OpMoveTo, Point: pt})
}

func (p *Path) LineTo(pt geom.Vec2) {
	p.segs = append(p.segs, PathSegment{Op: OpLineTo, Point: pt})
}

// Close closes the current subpath.
func (p *Path) Close() {
	p.segs = append(p.segs, PathSegment{Op: OpClose})
}

// Segments returns the path commands. The slice must not be modified.
func (p *Path) Segments() []PathSegment {
	return p.segs
}

func (p *Path) Len() int {
	return len(p.segs)
}

func (p *Path) IsEmpty() bool {
	return len(p.segs) == 0
}

// SVGData renders the path as an SVG "d" attribute.
func (p *Path) SVGData() string {
	var b strings.Builder
	for i, s := range p.segs {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch s.Op {
		case OpMoveTo:
			b.WriteString("M")
			writePoint(&b, s.Point)
		case OpLineTo:
			b.WriteString("L")
			writePoint(&b, s.Point)
		case OpClose:
			b.WriteString("Z")
		}
	}
	return b.String()
}

func writePoint(b *strings.Builder, pt geom.Vec2) {
	b.WriteString(formatCoord(pt.X))
	b.WriteByte(' ')
	b.WriteString(formatCoord(pt.Y))
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
